package config

const (
	defaultStorageProvider = "sqlite"
	defaultSQLitePath      = "chronicle.db"

	defaultLLMProvider = "ollama"
	defaultLLMModel    = "llama3.2"

	defaultMessagesPerExtraction = 10
	defaultMemoryContextCount    = 5
	defaultMaxResponseTokens     = 1024

	defaultTokenBudget = 500
	defaultMaxMemories = 10

	defaultBackfillBatchSize = 5
	defaultBackfillMaxRPM    = 10

	defaultAPIListen = ":8090"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider:   defaultStorageProvider,
			SQLitePath: defaultSQLitePath,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Model:    defaultLLMModel,
		},
		Extraction: ExtractionConfig{
			Enabled:               true,
			Automatic:             false,
			MessagesPerExtraction: defaultMessagesPerExtraction,
			MemoryContextCount:    defaultMemoryContextCount,
			MaxResponseTokens:     defaultMaxResponseTokens,
		},
		Retrieval: RetrievalConfig{
			TokenBudget: defaultTokenBudget,
			MaxMemories: defaultMaxMemories,
			POVFailOpen: true,
		},
		Backfill: BackfillConfig{
			BatchSize: defaultBackfillBatchSize,
			MaxRPM:    defaultBackfillMaxRPM,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
	}
}
