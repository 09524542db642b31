package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if present in configDir or ~/.chronicle/), and binds environment
// variables with the CHRONICLE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the command)
//  2. Environment variables (CHRONICLE_API_LISTEN, CHRONICLE_LLM_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	cfger, err := NewConfiger(configDir)
	if err != nil {
		return nil, err
	}
	v.AddConfigPath(filepath.Dir(cfger.GetTarget()))

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("CHRONICLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from a viper instance, so callers see the
// merged view of defaults, config.toml, and CHRONICLE_ environment variables.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	for key, info := range configKeys {
		val := v.GetString(key)
		if val == "" {
			continue
		}
		if err := info.set(cfg, val); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	defaults := NewDefaultConfig()
	for key, info := range configKeys {
		v.SetDefault(key, info.get(defaults))
	}
}
