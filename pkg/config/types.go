package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent chronicle configuration stored as
// config.toml in the .chronicle/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Storage    StorageConfig    `toml:"storage"`
	LLM        LLMConfig        `toml:"llm"`
	Extraction ExtractionConfig `toml:"extraction"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Backfill   BackfillConfig   `toml:"backfill"`
	API        APIConfig        `toml:"api"`
}

// StorageConfig selects and configures the session store driver.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"` // "sqlite", "postgres", or "inmemory"
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresURL string `toml:"postgres_url,omitempty"`
}

// LLMConfig selects the extraction model.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"` // "openai", "anthropic", or "ollama"
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
}

// ExtractionConfig holds extraction pipeline settings.
type ExtractionConfig struct {
	Enabled               bool `toml:"enabled"`
	Automatic             bool `toml:"automatic,omitempty"`
	MessagesPerExtraction int  `toml:"messages_per_extraction,omitempty"`
	MemoryContextCount    int  `toml:"memory_context_count,omitempty"`
	MaxResponseTokens     int  `toml:"max_response_tokens,omitempty"`
}

// RetrievalConfig holds retrieval/injection settings.
type RetrievalConfig struct {
	TokenBudget int `toml:"token_budget,omitempty"`
	MaxMemories int `toml:"max_memories,omitempty"`

	// POVFailOpen returns all memories when the POV filter yields none.
	POVFailOpen bool `toml:"pov_fail_open"`
}

// BackfillConfig holds backfill scheduler settings.
type BackfillConfig struct {
	BatchSize int `toml:"batch_size,omitempty"`
	MaxRPM    int `toml:"max_rpm,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_url": {
		get: func(c *Config) string { return c.Storage.PostgresURL },
		set: func(c *Config, v string) error { c.Storage.PostgresURL = v; return nil },
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.base_url": {
		get: func(c *Config) string { return c.LLM.BaseURL },
		set: func(c *Config, v string) error { c.LLM.BaseURL = v; return nil },
	},
	"extraction.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Extraction.Enabled) },
		set: func(c *Config, v string) error {
			return setBool(&c.Extraction.Enabled, "extraction.enabled", v)
		},
	},
	"extraction.automatic": {
		get: func(c *Config) string { return strconv.FormatBool(c.Extraction.Automatic) },
		set: func(c *Config, v string) error {
			return setBool(&c.Extraction.Automatic, "extraction.automatic", v)
		},
	},
	"extraction.messages_per_extraction": {
		get: func(c *Config) string { return strconv.Itoa(c.Extraction.MessagesPerExtraction) },
		set: func(c *Config, v string) error {
			return setInt(&c.Extraction.MessagesPerExtraction, "extraction.messages_per_extraction", v)
		},
	},
	"extraction.memory_context_count": {
		get: func(c *Config) string { return strconv.Itoa(c.Extraction.MemoryContextCount) },
		set: func(c *Config, v string) error {
			return setInt(&c.Extraction.MemoryContextCount, "extraction.memory_context_count", v)
		},
	},
	"extraction.max_response_tokens": {
		get: func(c *Config) string { return strconv.Itoa(c.Extraction.MaxResponseTokens) },
		set: func(c *Config, v string) error {
			return setInt(&c.Extraction.MaxResponseTokens, "extraction.max_response_tokens", v)
		},
	},
	"retrieval.token_budget": {
		get: func(c *Config) string { return strconv.Itoa(c.Retrieval.TokenBudget) },
		set: func(c *Config, v string) error {
			return setInt(&c.Retrieval.TokenBudget, "retrieval.token_budget", v)
		},
	},
	"retrieval.max_memories": {
		get: func(c *Config) string { return strconv.Itoa(c.Retrieval.MaxMemories) },
		set: func(c *Config, v string) error {
			return setInt(&c.Retrieval.MaxMemories, "retrieval.max_memories", v)
		},
	},
	"retrieval.pov_fail_open": {
		get: func(c *Config) string { return strconv.FormatBool(c.Retrieval.POVFailOpen) },
		set: func(c *Config, v string) error {
			return setBool(&c.Retrieval.POVFailOpen, "retrieval.pov_fail_open", v)
		},
	},
	"backfill.batch_size": {
		get: func(c *Config) string { return strconv.Itoa(c.Backfill.BatchSize) },
		set: func(c *Config, v string) error {
			return setInt(&c.Backfill.BatchSize, "backfill.batch_size", v)
		},
	},
	"backfill.max_rpm": {
		get: func(c *Config) string { return strconv.Itoa(c.Backfill.MaxRPM) },
		set: func(c *Config, v string) error {
			return setInt(&c.Backfill.MaxRPM, "backfill.max_rpm", v)
		},
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
}

func setBool(target *bool, key, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = b
	return nil
}

func setInt(target *int, key, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = n
	return nil
}
