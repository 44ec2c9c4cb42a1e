package config

// ProviderType names a supported LLM/embedding provider wire protocol.
type ProviderType string

const (
	ProviderOpenAICompatible ProviderType = "openai_compatible"
	ProviderAnthropic        ProviderType = "anthropic"
)

// ProviderConfig describes one configured LLM or embedding provider endpoint.
type ProviderConfig struct {
	Type      ProviderType `yaml:"type"`
	Model     string       `yaml:"model"`
	APIKeyEnv string       `yaml:"api_key_env"`
	BaseURL   string       `yaml:"base_url,omitempty"`

	// PromptPricePer1K and CompletionPricePer1K are USD per 1,000 tokens,
	// forming the static price table CostTracker/LLMClient consult.
	PromptPricePer1K     float64 `yaml:"prompt_price_per_1k"`
	CompletionPricePer1K float64 `yaml:"completion_price_per_1k"`
}

// TaskConfig maps a named LLM task to a provider plus sampling parameters.
// Tasks: baseline_sql, enhanced_sql, semantic_layer_generation, explanation,
// error_correction.
type TaskConfig struct {
	Provider        string  `yaml:"provider"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// EmbeddingConfig describes the configured embedding provider and its
// fixed vector dimension.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Dimension int    `yaml:"dimension"`
}
