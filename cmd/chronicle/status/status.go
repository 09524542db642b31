// Package statuscmder provides the status command for inspecting a stored
// session's memory state.
package statuscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storylore/chronicle/cmd/chronicle/runtime"
	"github.com/storylore/chronicle/pkg/cliui"
	"github.com/storylore/chronicle/pkg/storage"
)

const statusLongDesc string = `Show a session's stored memory state.

Displays the extraction high-water mark, stored event counts, tracked
characters and relationships, and a preview of the most recent memories.
Without --session, lists all stored sessions.

Examples:
  chronicle status
  chronicle status --session tavern-arc`

const statusShortDesc string = "Show stored memory state"

type statusCommander struct {
	sessionID  string
	sqlitePath string
}

// NewStatusCmd creates the status cobra command.
func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id to inspect")
	cmd.Flags().StringVar(&cmder.sqlitePath, "sqlite", "", "Path to SQLite database")

	return cmd
}

func (c *statusCommander) run(ctx context.Context, cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")

	rt, err := runtime.Build(ctx, configDir, debug, runtime.Overrides{
		SQLitePath: c.sqlitePath,
	}, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()

	if c.sessionID == "" {
		ids, err := rt.Store.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintf(out, "  %s No sessions stored yet.\n", cliui.DimStyle.Render("●"))
			return nil
		}
		fmt.Fprintf(out, "\n  %s %d\n\n", cliui.KeyStyle.Render("Sessions:"), len(ids))
		for _, id := range ids {
			fmt.Fprintf(out, "  %s\n", cliui.NameStyle.Render(id))
		}
		fmt.Fprintln(out)
		return nil
	}

	snap, err := rt.Store.Load(ctx, c.sessionID)
	if err != nil {
		if _, ok := err.(storage.ErrNotFound); ok {
			fmt.Fprintf(out, "  %s No memory state for session %q.\n", cliui.DimStyle.Render("●"), c.sessionID)
			return nil
		}
		return err
	}

	fmt.Fprintf(out, "\n  %s       %s\n", cliui.KeyStyle.Render("Session:"), cliui.NameStyle.Render(c.sessionID))
	fmt.Fprintf(out, "  %s      %d\n", cliui.KeyStyle.Render("Memories:"), len(snap.Memories))
	fmt.Fprintf(out, "  %s    %d\n", cliui.KeyStyle.Render("Characters:"), len(snap.CharacterStates))
	fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render("Relationships:"), len(snap.Relationships))
	fmt.Fprintf(out, "  %s     %d\n", cliui.KeyStyle.Render("Processed:"), snap.LastProcessedMessageID)
	if len(snap.ExtractedBatches) > 0 {
		fmt.Fprintf(out, "  %s      %d batches completed\n", cliui.KeyStyle.Render("Backfill:"), len(snap.ExtractedBatches))
	}
	fmt.Fprintln(out)

	const previewCount = 5
	start := len(snap.Memories) - previewCount
	if start < 0 {
		start = 0
	}
	for _, ev := range snap.Memories[start:] {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.DimStyle.Render("["+string(ev.Type)+"]"),
			cliui.PreviewStyle.Render(cliui.Truncate(ev.Summary, 72)),
		)
	}
	if len(snap.Memories) > 0 {
		fmt.Fprintln(out)
	}

	return nil
}
