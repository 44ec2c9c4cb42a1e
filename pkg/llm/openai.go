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

// openAICompatible posts to a configurable /chat/completions-shaped
// endpoint. Used for the default small chat model and for any self-hosted
// OpenAI-compatible gateway.
type openAICompatible struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	provider   *config.ProviderConfig
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *openAICompatible) complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (*Response, error) {
	reqBody := openAIChatRequest{
		Model: c.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &Error{Kind: ErrPermanent, Message: err.Error()}
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: ErrPermanent, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Kind: ErrProviderInvalid, Message: err.Error()}
	}
	if parsed.Error != nil {
		return nil, &Error{Kind: classifyProviderErrorCode(parsed.Error.Code), Message: parsed.Error.Message}
	}

	var text string
	if len(parsed.Choices) > 0 {
		text = parsed.Choices[0].Message.Content
	}

	return &Response{
		Text:             text,
		TokensPrompt:     parsed.Usage.PromptTokens,
		TokensCompletion: parsed.Usage.CompletionTokens,
		CostUSD:          price(parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, c.provider.PromptPricePer1K, c.provider.CompletionPricePer1K),
		LatencyMS:        time.Since(start).Milliseconds(),
		ModelName:        c.model,
		ProviderName:     "openai_compatible",
	}, nil
}

func classifyHTTPStatus(status int) (ErrorKind, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimit, true
	case status == http.StatusRequestEntityTooLarge:
		return ErrContextTooLarge, true
	case status >= 500:
		return ErrTransient, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusBadRequest:
		return ErrProviderInvalid, true
	case status >= 400:
		return ErrPermanent, true
	default:
		return "", false
	}
}

func classifyProviderErrorCode(code string) ErrorKind {
	switch code {
	case "rate_limit_exceeded":
		return ErrRateLimit
	case "context_length_exceeded":
		return ErrContextTooLarge
	case "invalid_api_key":
		return ErrProviderInvalid
	default:
		return ErrPermanent
	}
}
