package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

const (
	configFile = "config.toml"
	dotDir     = ".chronicle"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Configer loads and saves the persistent configuration.
type Configer struct {
	targetPath string
}

// NewConfiger creates a Configer. When override is non-empty it is used as
// the config directory; otherwise the config lives in ~/.chronicle/.
func NewConfiger(override string) (*Configer, error) {
	dir := override
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, dotDir)
	}

	return &Configer{targetPath: filepath.Join(dir, configFile)}, nil
}

// GetTarget returns the config file path.
func (c *Configer) GetTarget() string {
	return c.targetPath
}

// ValidConfigKeys returns the sorted list of all supported configuration key names.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// LoadConfig loads the configuration from config.toml. If the file does not
// exist, returns NewDefaultConfig() so callers always receive a fully
// populated Config. Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// ParseConfigTOML decodes a TOML config document.
func ParseConfigTOML(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = defaults.Storage.Provider
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = defaults.Storage.SQLitePath
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaults.LLM.Provider
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaults.LLM.Model
	}

	if cfg.Extraction.MessagesPerExtraction == 0 {
		cfg.Extraction.MessagesPerExtraction = defaults.Extraction.MessagesPerExtraction
	}
	if cfg.Extraction.MemoryContextCount == 0 {
		cfg.Extraction.MemoryContextCount = defaults.Extraction.MemoryContextCount
	}
	if cfg.Extraction.MaxResponseTokens == 0 {
		cfg.Extraction.MaxResponseTokens = defaults.Extraction.MaxResponseTokens
	}

	if cfg.Retrieval.TokenBudget == 0 {
		cfg.Retrieval.TokenBudget = defaults.Retrieval.TokenBudget
	}
	if cfg.Retrieval.MaxMemories == 0 {
		cfg.Retrieval.MaxMemories = defaults.Retrieval.MaxMemories
	}

	if cfg.Backfill.BatchSize == 0 {
		cfg.Backfill.BatchSize = defaults.Backfill.BatchSize
	}
	if cfg.Backfill.MaxRPM == 0 {
		cfg.Backfill.MaxRPM = defaults.Backfill.MaxRPM
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
}

// SaveConfig persists the configuration to config.toml, creating the target
// directory if necessary.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if err := os.MkdirAll(filepath.Dir(c.targetPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}
