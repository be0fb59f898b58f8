package config

// Config holds all runtime configuration for the copygen service.
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Storage   StorageConfig
	Retrieval RetrievalConfig
	Prompt    PromptConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type LLMConfig struct {
	BaseURL    string
	GenModel   string
	EmbedModel string
}

type StorageConfig struct {
	DataDir string
}

// RetrievalConfig carries the similarity-search thresholds used when
// collecting reference phrases for generation.
type RetrievalConfig struct {
	CandidateLimit    int
	TopK              int
	MinSimilarity     float64
	MinCTR            float64
	MinConversionRate float64
}

// PromptConfig carries deployment-specific copy constraints.
// BrandTag is prepended to every RCS message that doesn't already carry it.
type PromptConfig struct {
	BrandTag string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4800,
		},
		LLM: LLMConfig{
			BaseURL:    "http://localhost:11434",
			GenModel:   "exaone3.5",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Retrieval: RetrievalConfig{
			CandidateLimit:    20,
			TopK:              3,
			MinSimilarity:     0.6,
			MinCTR:            0.01,
			MinConversionRate: 0.005,
		},
		Prompt: PromptConfig{
			BrandTag: "[브랜드]",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/copygen/config.json, then applies COPYGEN_* environment
// variable overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
