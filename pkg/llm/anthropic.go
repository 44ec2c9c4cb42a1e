package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spiderbench/evalcore/pkg/config"
)

// anthropicMessages posts to a /v1/messages-shaped endpoint.
type anthropicMessages struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	provider   *config.ProviderConfig
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicMessages) complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (*Response, error) {
	reqBody := anthropicRequest{
		Model:       c.model,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: userPrompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Kind: ErrPermanent, Message: err.Error()}
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: ErrPermanent, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: ErrTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrTransient, Message: err.Error()}
	}

	if kind, ok := classifyHTTPStatus(resp.StatusCode); ok {
		return nil, &Error{Kind: kind, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Kind: ErrProviderInvalid, Message: err.Error()}
	}
	if parsed.Error != nil {
		return nil, &Error{Kind: classifyAnthropicErrorType(parsed.Error.Type), Message: parsed.Error.Message}
	}

	var text string
	if len(parsed.Content) > 0 {
		text = parsed.Content[0].Text
	}

	return &Response{
		Text:             text,
		TokensPrompt:     parsed.Usage.InputTokens,
		TokensCompletion: parsed.Usage.OutputTokens,
		CostUSD:          price(parsed.Usage.InputTokens, parsed.Usage.OutputTokens, c.provider.PromptPricePer1K, c.provider.CompletionPricePer1K),
		LatencyMS:        time.Since(start).Milliseconds(),
		ModelName:        c.model,
		ProviderName:     "anthropic",
	}, nil
}

func classifyAnthropicErrorType(t string) ErrorKind {
	switch t {
	case "rate_limit_error":
		return ErrRateLimit
	case "invalid_request_error":
		return ErrContextTooLarge
	case "authentication_error", "permission_error":
		return ErrProviderInvalid
	case "overloaded_error", "api_error":
		return ErrTransient
	default:
		return ErrPermanent
	}
}
