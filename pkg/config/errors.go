package config

import "errors"

var (
	// ErrConfigNotFound indicates the configuration file was not found.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrProviderNotFound indicates a provider was not found in the registry.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrTaskNotFound indicates a task was not found in the registry.
	ErrTaskNotFound = errors.New("task not found")
)
