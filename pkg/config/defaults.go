package config

import "time"

// Defaults contains system-wide default configurations used when a Run
// doesn't override them.
type Defaults struct {
	BudgetCeilingUSD float64 `yaml:"budget_ceiling_usd"`

	// QueryExecutor
	RowCap              int           `yaml:"row_cap"`
	StatementTimeout    time.Duration `yaml:"statement_timeout"`
	ExecutorPoolMin     int           `yaml:"executor_pool_min"`
	ExecutorPoolMax     int           `yaml:"executor_pool_max"`

	// SemanticRetriever / EmbeddingIndex
	TopK             int           `yaml:"top_k"`
	EmbeddingTimeout time.Duration `yaml:"embedding_timeout"`

	// Per-call timeouts (§5 of the spec)
	LLMTimeout           time.Duration `yaml:"llm_timeout"`
	MetadataStoreTimeout time.Duration `yaml:"metadata_store_timeout"`

	// BenchmarkRunner
	MaxParallelWorkers int `yaml:"max_parallel_workers"`

	// APIKeyEnv names the environment variable holding the shared secret
	// ControlAPI requires on X-API-Key.
	APIKeyEnv string `yaml:"api_key_env"`
}

func defaultDefaults() Defaults {
	return Defaults{
		BudgetCeilingUSD:   5.00,
		RowCap:             1000,
		StatementTimeout:   5 * time.Second,
		ExecutorPoolMin:    2,
		ExecutorPoolMax:    10,
		TopK:               5,
		EmbeddingTimeout:   2 * time.Second,
		LLMTimeout:         60 * time.Second,
		MetadataStoreTimeout: 10 * time.Second,
		MaxParallelWorkers: 1,
		APIKeyEnv:          "EVALCORE_API_KEY",
	}
}
