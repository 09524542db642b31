// Package transcript loads roleplay conversation turns from exported chat
// files so CLI commands can feed them into extraction and backfill.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/storylore/chronicle/pkg/session"
)

// maxLineBytes bounds a single JSONL line. Roleplay turns can carry very
// long prose, so this is generous.
const maxLineBytes = 4 * 1024 * 1024

// Load reads turns from path. Files ending in .jsonl are parsed one turn
// per line; everything else is parsed as a single JSON array of turns.
func Load(path string) ([]session.Turn, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return loadJSONL(path)
	}
	return loadJSON(path)
}

func loadJSON(path string) ([]session.Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	var turns []session.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parsing transcript %s: %w", path, err)
	}

	return normalize(turns), nil
}

func loadJSONL(path string) ([]session.Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()

	var turns []session.Turn

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var turn session.Turn
		if err := json.Unmarshal([]byte(line), &turn); err != nil {
			return nil, fmt.Errorf("parsing transcript %s line %d: %w", path, lineNo, err)
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	return normalize(turns), nil
}

// normalize assigns positional ids to turns that came in without one.
// Exports from some frontends omit the id field entirely.
func normalize(turns []session.Turn) []session.Turn {
	seen := false
	for _, t := range turns {
		if t.ID != 0 {
			seen = true
			break
		}
	}
	if seen {
		return turns
	}

	// 1-based so a fresh session's zero high-water mark sits below every id.
	for i := range turns {
		turns[i].ID = i + 1
	}
	return turns
}
