package llm

// ErrorKind classifies a completion failure for the retry combinator.
type ErrorKind string

const (
	ErrRateLimit        ErrorKind = "RATE_LIMIT"
	ErrTransient        ErrorKind = "TRANSIENT"
	ErrContextTooLarge  ErrorKind = "CONTEXT_TOO_LARGE"
	ErrProviderInvalid  ErrorKind = "PROVIDER_INVALID"
	ErrPermanent        ErrorKind = "PERMANENT"
)

// Error wraps a provider failure with its classification. Only RateLimit
// and Transient are retried by the shared combinator.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }
