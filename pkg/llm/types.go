package llm

import "context"

// Options carries per-call sampling overrides. Callers rarely set these
// directly; task routing in pkg/config supplies them.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
}

// Response is the Client's completion result. The client never throws from
// the response parser: if a provider returns malformed output, Text still
// carries whatever the model said.
type Response struct {
	Text             string
	TokensPrompt     int
	TokensCompletion int
	CostUSD          float64
	LatencyMS        int64
	ModelName        string
	ProviderName     string
}

// Client abstracts chat-completion providers behind a single-call capability
// set: no streaming, no tool calling — the benchmark only needs a final SQL
// string.
type Client interface {
	Complete(ctx context.Context, taskName, systemPrompt, userPrompt string, opts Options) (*Response, error)
}
