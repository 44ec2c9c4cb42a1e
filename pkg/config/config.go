// Package config loads and validates evalcore's YAML configuration: LLM
// providers, task routing, the embedding provider, and system-wide defaults
// (budget ceiling, timeouts, row caps, worker parallelism).
package config

// Config is the umbrella configuration object returned by Initialize and
// used throughout the application.
type Config struct {
	configDir string

	Defaults  Defaults
	Embedding EmbeddingConfig

	ProviderRegistry *ProviderRegistry
	TaskRegistry     *TaskRegistry
}

// Stats contains statistics about loaded configuration, surfaced on the
// health endpoint.
type Stats struct {
	Providers int
	Tasks     int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	return Stats{
		Providers: c.ProviderRegistry.Len(),
		Tasks:     c.TaskRegistry.Len(),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetProvider retrieves a provider configuration by name.
func (c *Config) GetProvider(name string) (*ProviderConfig, error) {
	return c.ProviderRegistry.Get(name)
}

// GetTask retrieves a task's routing configuration by name.
func (c *Config) GetTask(name string) (*TaskConfig, error) {
	return c.TaskRegistry.Get(name)
}

// ProviderForTask resolves the provider configured for a named task.
func (c *Config) ProviderForTask(task string) (*ProviderConfig, *TaskConfig, error) {
	t, err := c.GetTask(task)
	if err != nil {
		return nil, nil, err
	}
	p, err := c.GetProvider(t.Provider)
	if err != nil {
		return nil, nil, err
	}
	return p, t, nil
}
