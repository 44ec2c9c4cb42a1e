package config

import "fmt"

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateProviders(); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}
	if err := v.validateTasks(); err != nil {
		return fmt.Errorf("task validation failed: %w", err)
	}
	if err := v.validateEmbedding(); err != nil {
		return fmt.Errorf("embedding validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateProviders() error {
	for name, p := range v.cfg.ProviderRegistry.GetAll() {
		if p.Type != ProviderOpenAICompatible && p.Type != ProviderAnthropic {
			return NewValidationError("provider", name, "type", fmt.Errorf("unknown provider type %q", p.Type))
		}
		if p.Model == "" {
			return NewValidationError("provider", name, "model", ErrMissingRequiredField)
		}
		if p.APIKeyEnv == "" {
			return NewValidationError("provider", name, "api_key_env", ErrMissingRequiredField)
		}
	}
	return nil
}

func (v *Validator) validateTasks() error {
	for name, t := range v.cfg.TaskRegistry.tasks {
		if t.Provider == "" {
			return NewValidationError("task", name, "provider", ErrMissingRequiredField)
		}
		if _, err := v.cfg.ProviderRegistry.Get(t.Provider); err != nil {
			return NewValidationError("task", name, "provider", fmt.Errorf("references unknown provider %q", t.Provider))
		}
		if t.MaxOutputTokens <= 0 {
			return NewValidationError("task", name, "max_output_tokens", ErrInvalidValue)
		}
	}
	return nil
}

func (v *Validator) validateEmbedding() error {
	if v.cfg.Embedding.Provider == "" {
		return NewValidationError("embedding", "", "provider", ErrMissingRequiredField)
	}
	if v.cfg.Embedding.Dimension <= 0 {
		return NewValidationError("embedding", "", "dimension", ErrInvalidValue)
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d.BudgetCeilingUSD <= 0 {
		return NewValidationError("defaults", "", "budget_ceiling_usd", ErrInvalidValue)
	}
	if d.RowCap <= 0 {
		return NewValidationError("defaults", "", "row_cap", ErrInvalidValue)
	}
	if d.ExecutorPoolMin <= 0 || d.ExecutorPoolMax < d.ExecutorPoolMin {
		return NewValidationError("defaults", "", "executor_pool", fmt.Errorf("executor_pool_min (%d) must be positive and <= executor_pool_max (%d)", d.ExecutorPoolMin, d.ExecutorPoolMax))
	}
	if d.TopK <= 0 {
		return NewValidationError("defaults", "", "top_k", ErrInvalidValue)
	}
	if d.MaxParallelWorkers <= 0 || d.MaxParallelWorkers > 8 {
		return NewValidationError("defaults", "", "max_parallel_workers", fmt.Errorf("must be in [1,8], got %d", d.MaxParallelWorkers))
	}
	if d.APIKeyEnv == "" {
		return NewValidationError("defaults", "", "api_key_env", ErrMissingRequiredField)
	}
	return nil
}

// ValidationError wraps configuration validation errors with context.
type ValidationError struct {
	Component string
	ID        string
	Field     string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %q: field %q: %v", e.Component, e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Component, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError creates a new configuration validation error.
func NewValidationError(component, id, field string, err error) *ValidationError {
	return &ValidationError{Component: component, ID: id, Field: field, Err: err}
}

var (
	// ErrMissingRequiredField indicates a required field is missing.
	ErrMissingRequiredField = fmt.Errorf("missing required field")
	// ErrInvalidValue indicates a field has an invalid value.
	ErrInvalidValue = fmt.Errorf("invalid field value")
)
