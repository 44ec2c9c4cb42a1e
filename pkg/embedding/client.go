package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/spiderbench/evalcore/pkg/config"
)

// defaultCallTimeout bounds a single embedding call's latency when the
// config doesn't set one; provider outage must fail fast rather than stall
// generation.
const defaultCallTimeout = 2 * time.Second

// embedRate caps outbound embedding calls; retrieval embeds one question
// per call, so this stays well above the runner's
// worker-pool ceiling of 8.
const embedRate = 20

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// httpEmbedder is the small net/http client hitting a configured embedding
// endpoint, matching the plain-HTTP pattern used for LLMClient since no
// embedding provider SDK appears anywhere in the retrieval pack.
type httpEmbedder struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	limiter    *rate.Limiter
	dedup      singleflight.Group
}

func newHTTPEmbedder(providerCfg *config.ProviderConfig, timeout time.Duration) *httpEmbedder {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &httpEmbedder{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    providerCfg.BaseURL,
		apiKey:     os.Getenv(providerCfg.APIKeyEnv),
		model:      providerCfg.Model,
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Limit(embedRate), embedRate),
	}
}

// embed calls the provider for a single text, deduplicating concurrent
// identical requests (e.g. two workers embedding the same question text at
// once) via singleflight; calls that do not overlap in time
// each reach the provider.
func (e *httpEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	v, err, _ := e.dedup.Do(text, func() (any, error) {
		return e.doEmbed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

func (e *httpEmbedder) doEmbed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	payload, err := json.Marshal(embedRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding provider call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embed response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embed response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vectors")
	}
	return parsed.Data[0].Embedding, nil
}
