// Package llm implements LLMClient: a provider-abstracted chat-completion
// capability with config-driven task routing, a static price table, and
// error classification feeding the shared retry combinator.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/spiderbench/evalcore/pkg/config"
	"github.com/spiderbench/evalcore/pkg/retry"
)

// callRate caps outbound provider calls across all tasks; generous enough
// not to throttle a single benchmark run's worker pool (≤8 per spec.md §5)
// while still smoothing bursts against provider-side rate limits.
const callRate = 10

type completer interface {
	complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (*Response, error)
}

// Router is the Client implementation: it resolves a task name to a
// provider via pkg/config, builds (and caches) the matching HTTP-backed
// completer, and wraps the call with the retry combinator.
type Router struct {
	cfg        *config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	completers map[string]completer
}

// NewRouter builds a Router over a loaded Config. Provider clients are
// constructed lazily per provider name and cached. The HTTP client timeout
// is config-driven (cfg.Defaults.LLMTimeout), per spec.md §5's LLM per-call
// timeout; the outbound rate limit is the fixed callRate.
func NewRouter(cfg *config.Config) *Router {
	timeout := cfg.Defaults.LLMTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Router{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(callRate), callRate),
		completers: make(map[string]completer),
	}
}

var callPolicy = retry.Policy{MaxAttempts: 3, BaseDelay: 1 * time.Second, MaxDelay: 10 * time.Second}

func classifyLLMError(err error) retry.Verdict {
	var llmErr *Error
	if e, ok := err.(*Error); ok {
		llmErr = e
	}
	if llmErr == nil {
		return retry.Retry
	}
	switch llmErr.Kind {
	case ErrRateLimit, ErrTransient:
		return retry.Retry
	default:
		return retry.GiveUp
	}
}

// Complete routes taskName to its configured provider and runs the
// completion, retrying RATE_LIMIT/TRANSIENT failures per the shared
// combinator.
func (r *Router) Complete(ctx context.Context, taskName, systemPrompt, userPrompt string, opts Options) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	providerCfg, taskCfg, err := r.cfg.ProviderForTask(taskName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve task %q: %w", taskName, err)
	}

	if opts.Temperature == 0 {
		opts.Temperature = taskCfg.Temperature
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = taskCfg.MaxOutputTokens
	}

	c, err := r.completerFor(taskCfg.Provider, providerCfg)
	if err != nil {
		return nil, err
	}

	var resp *Response
	err = retry.Do(ctx, callPolicy, classifyLLMError, func(ctx context.Context) error {
		r, err := c.complete(ctx, systemPrompt, userPrompt, opts)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *Router) completerFor(name string, providerCfg *config.ProviderConfig) (completer, error) {
	if c, ok := r.completers[name]; ok {
		return c, nil
	}

	apiKey := os.Getenv(providerCfg.APIKeyEnv)

	var c completer
	switch providerCfg.Type {
	case config.ProviderOpenAICompatible:
		c = &openAICompatible{httpClient: r.httpClient, baseURL: providerCfg.BaseURL, apiKey: apiKey, model: providerCfg.Model, provider: providerCfg}
	case config.ProviderAnthropic:
		c = &anthropicMessages{httpClient: r.httpClient, baseURL: providerCfg.BaseURL, apiKey: apiKey, model: providerCfg.Model, provider: providerCfg}
	default:
		return nil, fmt.Errorf("unsupported provider type %q for provider %q", providerCfg.Type, name)
	}

	r.completers[name] = c
	return c, nil
}
