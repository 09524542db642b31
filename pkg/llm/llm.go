// Package llm provides the extraction pipeline's language-model callers.
//
// A caller is a plain function so tests can substitute a closure; the
// concrete callers speak the OpenAI, Anthropic, and Ollama HTTP APIs.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

const defaultTimeout = 90 * time.Second

// Request is one model invocation. The system instruction is fixed by the
// orchestrator; the prompt is the sole user message.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// CallFunc is the signature for an LLM inference call.
type CallFunc func(ctx context.Context, req Request) (string, error)

// Config holds configuration for creating a caller.
type Config struct {
	Provider string // "openai", "anthropic", or "ollama"
	Model    string // e.g. "gpt-4o-mini", "claude-haiku-4-5-20251001"
	APIKey   string // explicit API key (highest priority)
	BaseURL  string // override base URL
	Timeout  time.Duration
	Logger   *zap.Logger
}

// HasCredentials checks whether an API key can be resolved from the config
// without creating a caller.
func HasCredentials(cfg Config) bool {
	if cfg.APIKey != "" {
		return true
	}
	provider := strings.ToLower(cfg.Provider)
	if provider == ProviderOllama {
		return true
	}
	return resolveAPIKeyFromEnv(provider) != ""
}

// NewCaller creates a CallFunc based on the provided configuration.
// Resolution order for the API key:
//  1. Explicit APIKey in config
//  2. Environment variables (OPENAI_API_KEY / ANTHROPIC_API_KEY)
//  3. Fall back to Ollama at localhost:11434
func NewCaller(cfg Config) (CallFunc, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := strings.ToLower(cfg.Provider)
	model := cfg.Model
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = resolveAPIKeyFromEnv(provider)
	}

	if apiKey == "" && provider != ProviderOllama {
		logger.Info("no API key found, falling back to ollama",
			zap.String("provider", provider),
		)
		provider = ProviderOllama
	}

	switch provider {
	case ProviderOpenAI, "":
		if model == "" {
			model = "gpt-4o-mini"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		return newOpenAICaller(apiKey, model, baseURL, timeout), nil

	case ProviderAnthropic:
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.anthropic.com"
		}
		return newAnthropicCaller(apiKey, model, baseURL, timeout), nil

	case ProviderOllama:
		if model == "" {
			model = "llama3.2"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return newOllamaCaller(model, baseURL, timeout), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

func resolveAPIKeyFromEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI, "":
		return os.Getenv("OPENAI_API_KEY")
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("ANTHROPIC_API_KEY")
	}
}
