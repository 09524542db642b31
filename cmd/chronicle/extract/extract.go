// Package extractcmder provides the `chronicle extract` CLI command.
package extractcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storylore/chronicle/cmd/chronicle/runtime"
	"github.com/storylore/chronicle/pkg/cliui"
	"github.com/storylore/chronicle/pkg/extract"
	"github.com/storylore/chronicle/pkg/session"
	"github.com/storylore/chronicle/pkg/transcript"
)

const extractLongDesc string = `Extract story memories from conversation turns.

Reads a transcript file (JSON array or JSONL, one turn per line), selects the
unprocessed tail of the conversation, and runs one LLM extraction cycle.
Derived character emotions and relationships are updated from the extracted
events.

Examples:
  chronicle extract --session tavern-arc --file turns.jsonl
  chronicle extract -s tavern-arc -f turns.json --character Elara --user Dana
  chronicle extract -s tavern-arc -f turns.jsonl --sqlite ./story.db
  chronicle extract -s tavern-arc -f turns.jsonl --card-type scenario --track-dates --names Bram`

const extractShortDesc string = "Extract story memories from conversation turns"

type extractCommander struct {
	sessionID     string
	file          string
	characterName string
	userName      string
	sqlitePath    string
	model         string
	cardType      string
	trackDates    bool
	nameList      []string
}

// NewExtractCmd creates the extract cobra command.
func NewExtractCmd() *cobra.Command {
	cmder := &extractCommander{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: extractShortDesc,
		Long:  extractLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id to extract into")
	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Transcript file (JSON or JSONL)")
	cmd.Flags().StringVar(&cmder.characterName, "character", "", "Primary character card name")
	cmd.Flags().StringVar(&cmder.userName, "user", "", "Player persona name")
	cmd.Flags().StringVar(&cmder.sqlitePath, "sqlite", "", "Path to SQLite database")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Override the extraction model")
	cmd.Flags().StringVar(&cmder.cardType, "card-type", "", "Card type (character or scenario; scenario treats the primary name as a narrator)")
	cmd.Flags().BoolVar(&cmder.trackDates, "track-dates", false, "Ask the model for in-story canonical dates")
	cmd.Flags().StringArrayVar(&cmder.nameList, "names", nil, "Additional known character name (repeatable)")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (c *extractCommander) run(ctx context.Context, cmd *cobra.Command) error {
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
		Model:      c.model,
	}, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	var settings *session.Settings
	if cmd.Flags().Changed("card-type") || cmd.Flags().Changed("track-dates") || cmd.Flags().Changed("names") {
		settings = &session.Settings{
			CardType:              c.cardType,
			CanonicalDateTracking: c.trackDates,
			NameList:              c.nameList,
		}
	}

	var result *extract.Result
	err = cliui.Step(cmd.OutOrStdout(), "Extracting memories", func() error {
		var runErr error
		result, runErr = rt.Extractor.Run(ctx, extract.Batch{
			SessionID:     c.sessionID,
			Turns:         turns,
			CharacterName: c.characterName,
			UserName:      c.userName,
			Settings:      settings,
		})
		return runErr
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", result.Summary())
	return nil
}
