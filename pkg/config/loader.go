package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors the on-disk evalcore.yaml structure.
type yamlConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Tasks     map[string]TaskConfig     `yaml:"tasks"`
	Embedding EmbeddingConfig           `yaml:"embedding"`
	Defaults  *Defaults                 `yaml:"defaults"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Read evalcore.yaml from configDir.
//  2. Expand environment variables.
//  3. Parse YAML into structs.
//  4. Apply system-wide defaults for any omitted fields.
//  5. Build in-memory registries.
//  6. Validate all configuration.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	path := filepath.Join(configDir, "evalcore.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := ExpandEnv(raw)

	var parsed yamlConfig
	if err := yaml.Unmarshal(expanded, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	defaults := defaultDefaults()
	if parsed.Defaults != nil {
		mergeDefaults(&defaults, parsed.Defaults)
	}

	providers := make(map[string]*ProviderConfig, len(parsed.Providers))
	for name, p := range parsed.Providers {
		pc := p
		providers[name] = &pc
	}

	tasks := make(map[string]*TaskConfig, len(parsed.Tasks))
	for name, t := range parsed.Tasks {
		tc := t
		tasks[name] = &tc
	}

	cfg := &Config{
		configDir:        configDir,
		Defaults:         defaults,
		Embedding:        parsed.Embedding,
		ProviderRegistry: NewProviderRegistry(providers),
		TaskRegistry:     NewTaskRegistry(tasks),
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}

	log.Info("configuration initialized", "providers", cfg.ProviderRegistry.Len(), "tasks", cfg.TaskRegistry.Len())
	return cfg, nil
}

// mergeDefaults overlays any non-zero fields in override onto base.
func mergeDefaults(base *Defaults, override *Defaults) {
	if override.BudgetCeilingUSD != 0 {
		base.BudgetCeilingUSD = override.BudgetCeilingUSD
	}
	if override.RowCap != 0 {
		base.RowCap = override.RowCap
	}
	if override.StatementTimeout != 0 {
		base.StatementTimeout = override.StatementTimeout
	}
	if override.ExecutorPoolMin != 0 {
		base.ExecutorPoolMin = override.ExecutorPoolMin
	}
	if override.ExecutorPoolMax != 0 {
		base.ExecutorPoolMax = override.ExecutorPoolMax
	}
	if override.TopK != 0 {
		base.TopK = override.TopK
	}
	if override.EmbeddingTimeout != 0 {
		base.EmbeddingTimeout = override.EmbeddingTimeout
	}
	if override.LLMTimeout != 0 {
		base.LLMTimeout = override.LLMTimeout
	}
	if override.MetadataStoreTimeout != 0 {
		base.MetadataStoreTimeout = override.MetadataStoreTimeout
	}
	if override.MaxParallelWorkers != 0 {
		base.MaxParallelWorkers = override.MaxParallelWorkers
	}
	if override.APIKeyEnv != "" {
		base.APIKeyEnv = override.APIKeyEnv
	}
}
