// Package chroniclecmder
package chroniclecmder

import (
	"github.com/spf13/cobra"

	backfillcmder "github.com/storylore/chronicle/cmd/chronicle/backfill"
	configcmder "github.com/storylore/chronicle/cmd/chronicle/config"
	extractcmder "github.com/storylore/chronicle/cmd/chronicle/extract"
	recallcmder "github.com/storylore/chronicle/cmd/chronicle/recall"
	servecmder "github.com/storylore/chronicle/cmd/chronicle/serve"
	statuscmder "github.com/storylore/chronicle/cmd/chronicle/status"
	versioncmder "github.com/storylore/chronicle/cmd/version"
)

const chronicleLongDesc string = `Chronicle is long-term story memory for roleplay sessions.

It extracts structured events from conversation turns with an LLM, tracks
character emotions and relationships, and builds point-of-view filtered
context blocks for prompt injection.

Common flows:
  chronicle extract     Extract memories from recent turns
  chronicle backfill    Backfill memories from an older transcript
  chronicle recall      Build the injectable memory block for a character
  chronicle serve       Run the HTTP API server`

const chronicleShortDesc string = "Chronicle - Story Memory"

func NewChronicleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chronicle",
		Short: chronicleShortDesc,
		Long:  chronicleLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the config directory (default ~/.chronicle)")

	// Add subcommands
	cmd.AddCommand(extractcmder.NewExtractCmd())
	cmd.AddCommand(backfillcmder.NewBackfillCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
