// Package recallcmder provides the `chronicle recall` CLI command.
package recallcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storylore/chronicle/cmd/chronicle/runtime"
	"github.com/storylore/chronicle/pkg/cliui"
	"github.com/storylore/chronicle/pkg/recall"
)

const recallLongDesc string = `Build the injectable memory block for a character.

Filters stored memories down to what the viewing character could plausibly
know, ranks them against the recent conversation text, and renders the
winners into a token-budgeted context block.

Examples:
  chronicle recall --session tavern-arc --viewer Elara
  chronicle recall -s tavern-arc -v Elara --text "the cellar door creaks open"
  chronicle recall -s tavern-arc -v Elara --active Elara --active Bram`

const recallShortDesc string = "Build the injectable memory block for a character"

type recallCommander struct {
	sessionID  string
	viewer     string
	recentText string
	active     []string
	sqlitePath string
	budget     int
	limit      int
}

// NewRecallCmd creates the recall cobra command.
func NewRecallCmd() *cobra.Command {
	cmder := &recallCommander{}

	cmd := &cobra.Command{
		Use:   "recall",
		Short: recallShortDesc,
		Long:  recallLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id to recall from")
	cmd.Flags().StringVarP(&cmder.viewer, "viewer", "v", "", "Character whose point of view bounds visibility")
	cmd.Flags().StringVarP(&cmder.recentText, "text", "t", "", "Recent conversation text to rank against")
	cmd.Flags().StringArrayVar(&cmder.active, "active", nil, "Character currently in the scene (repeatable)")
	cmd.Flags().StringVar(&cmder.sqlitePath, "sqlite", "", "Path to SQLite database")
	cmd.Flags().IntVar(&cmder.budget, "budget", 0, "Token budget for the block (default from config)")
	cmd.Flags().IntVar(&cmder.limit, "limit", 0, "Max memories to inject (default from config)")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("viewer")

	return cmd
}

func (c *recallCommander) run(ctx context.Context, cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")

	rt, err := runtime.Build(ctx, configDir, debug, runtime.Overrides{
		SQLitePath: c.sqlitePath,
	}, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	retriever := rt.Retriever
	if c.budget > 0 || c.limit > 0 {
		cfg := rt.Config.Retrieval
		if c.budget > 0 {
			cfg.TokenBudget = c.budget
		}
		if c.limit > 0 {
			cfg.MaxMemories = c.limit
		}
		retriever = rt.RetrieverWith(cfg)
	}

	resp, err := retriever.Retrieve(ctx, recall.Request{
		SessionID:        c.sessionID,
		Viewer:           c.viewer,
		RecentText:       c.recentText,
		ActiveCharacters: c.active,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if resp.MemoriesSelected == 0 {
		fmt.Fprintf(out, "  %s no memories visible to %s\n", cliui.DimStyle.Render("●"), c.viewer)
		return nil
	}

	fmt.Fprintf(out, "\n  %s %d selected of %d visible\n",
		cliui.KeyStyle.Render("Memories:"),
		resp.MemoriesSelected, resp.VisibleEvents,
	)
	if resp.POVFallback {
		fmt.Fprintf(out, "  %s point-of-view filter fell back to the full set\n", cliui.DimStyle.Render("note:"))
	}
	fmt.Fprintf(out, "\n%s\n", resp.Context)

	return nil
}
