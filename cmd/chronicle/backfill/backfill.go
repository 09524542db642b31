// Package backfillcmder provides the `chronicle backfill` CLI command.
package backfillcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storylore/chronicle/cmd/chronicle/runtime"
	"github.com/storylore/chronicle/pkg/backfill"
	"github.com/storylore/chronicle/pkg/cliui"
	"github.com/storylore/chronicle/pkg/extract"
	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/storage"
	"github.com/storylore/chronicle/pkg/transcript"
)

const backfillLongDesc string = `Backfill story memories from an existing transcript.

Splits the never-extracted portion of the conversation into fixed-size
batches and runs one extraction per batch, rate-limited to stay under the
model provider's request ceiling. The most recent turns are left for normal
incremental extraction. A failed batch is skipped and stays eligible for a
future run.

Examples:
  chronicle backfill --session tavern-arc --file turns.jsonl
  chronicle backfill -s tavern-arc -f turns.jsonl --batch-size 5 --rpm 10
  chronicle backfill -s tavern-arc -f turns.jsonl --plan`

const backfillShortDesc string = "Backfill story memories from a transcript"

type backfillCommander struct {
	sessionID     string
	file          string
	characterName string
	userName      string
	sqlitePath    string
	batchSize     int
	rpm           int
	plan          bool
}

// NewBackfillCmd creates the backfill cobra command.
func NewBackfillCmd() *cobra.Command {
	cmder := &backfillCommander{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: backfillShortDesc,
		Long:  backfillLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id to backfill into")
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Transcript file (JSON or JSONL)")
	cmd.Flags().StringVar(&cmder.characterName, "character", "", "Primary character card name")
	cmd.Flags().StringVar(&cmder.userName, "user", "", "Player persona name")
	cmd.Flags().StringVar(&cmder.sqlitePath, "sqlite", "", "Path to SQLite database")
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 0, "Turns per batch (default from config)")
	cmd.Flags().IntVar(&cmder.rpm, "rpm", 0, "Requests-per-minute ceiling (default from config)")
	cmd.Flags().BoolVar(&cmder.plan, "plan", false, "Show the batch plan without running it")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (c *backfillCommander) run(ctx context.Context, cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")

	turns, err := transcript.Load(c.file)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return fmt.Errorf("transcript %s contains no turns", c.file)
	}

	rt, err := runtime.Build(ctx, configDir, debug, runtime.Overrides{
		SQLitePath: c.sqlitePath,
	}, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	batchSize := c.batchSize
	if batchSize <= 0 {
		batchSize = rt.Config.Backfill.BatchSize
	}
	rpm := c.rpm
	if rpm <= 0 {
		rpm = rt.Config.Backfill.MaxRPM
	}

	if c.plan {
		return c.showPlan(ctx, cmd, rt, turns, batchSize)
	}

	scheduler := backfill.NewScheduler(rt.Extractor, rt.Store, backfill.Options{
		BatchSize: batchSize,
		MaxRPM:    rpm,
	}, rt.Logger)

	var result *backfill.Result
	err = cliui.Step(cmd.OutOrStdout(), "Backfilling memories", func() error {
		var runErr error
		result, runErr = scheduler.Run(ctx, extract.Batch{
			SessionID:     c.sessionID,
			Turns:         turns,
			CharacterName: c.characterName,
			UserName:      c.userName,
		})
		return runErr
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", result.Summary())
	return nil
}

// showPlan prints the batch plan a real run would execute, without calling
// the model.
func (c *backfillCommander) showPlan(ctx context.Context, cmd *cobra.Command, rt *runtime.Runtime, turns []session.Turn, batchSize int) error {
	snap, err := storage.LoadOrInit(ctx, rt.Store, c.sessionID)
	if err != nil {
		return err
	}

	turnIDs := make([]int, 0, len(turns))
	for _, t := range turns {
		if t.IsSystem {
			continue
		}
		turnIDs = append(turnIDs, t.ID)
	}

	batches, deferred := backfill.Plan(turnIDs, snap.ExtractedMessageIDs(), batchSize)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Session:"), cliui.ValueStyle.Render(c.sessionID))
	fmt.Fprintf(out, "  %s %d turns, %d batches of %d, %d deferred\n\n",
		cliui.KeyStyle.Render("Plan:"),
		len(turnIDs), len(batches), batchSize, deferred,
	)

	for i, ids := range batches {
		fmt.Fprintf(out, "  %s turns %d-%d\n",
			cliui.DimStyle.Render(fmt.Sprintf("batch %d:", i)),
			ids[0], ids[len(ids)-1],
		)
	}
	if len(batches) > 0 {
		fmt.Fprintln(out)
	}

	return nil
}
