package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's standard
// library. Supports both ${VAR} and $VAR syntax (standard shell-style).
//
// Examples:
//   - ${OPENAI_API_KEY} → value of OPENAI_API_KEY environment variable
//   - ${DB_HOST}:${DB_PORT} → hostname:port with both variables expanded
//
// Missing variables expand to empty string; validation catches required
// fields left empty.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
