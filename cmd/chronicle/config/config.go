// Package configcmder provides the config command for managing persistent
// chronicle configuration stored in the .chronicle/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent chronicle configuration.

Configuration is stored as config.toml in the ~/.chronicle/ directory and
provides default values for command flags. CLI flags and CHRONICLE_
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_url,
  llm.provider, llm.model, llm.base_url,
  extraction.messages_per_extraction, extraction.memory_context_count,
  retrieval.token_budget, retrieval.max_memories, retrieval.pov_fail_open,
  backfill.batch_size, backfill.max_rpm,
  api.listen

Use subcommands to get, set, or list configuration values:
  chronicle config set <key> <value>    Set a configuration value
  chronicle config get <key>            Get a configuration value
  chronicle config list                 List all configuration values

Examples:
  chronicle config set llm.provider anthropic
  chronicle config set backfill.max_rpm 20
  chronicle config get retrieval.token_budget
  chronicle config list`

const configShortDesc string = "Manage persistent chronicle configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
