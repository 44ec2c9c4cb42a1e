// Package retry centralizes the retry-with-backoff combinator used by every
// retried external call in the core (MetadataStore writes, LLM calls,
// QueryExecutor statements): a small policy parameterized by
// attempts, base delay, jitter, and a classifier, shared rather than
// reimplemented per component.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Verdict is what a Classifier returns for an observed error.
type Verdict int

const (
	// Retry means the call may be retried.
	Retry Verdict = iota
	// GiveUp means the error is permanent; stop retrying and surface it.
	GiveUp
	// BudgetAbort means retrying is pointless because a hard budget/ceiling
	// was exceeded; callers should treat this like GiveUp but may branch on it.
	BudgetAbort
)

// Classifier decides whether an error observed during a retryable call should
// be retried, given up on, or treated as a budget-abort.
type Classifier func(err error) Verdict

// ErrGiveUp wraps an error a Classifier marked non-retryable, so callers can
// unwrap the original cause.
type ErrGiveUp struct{ Err error }

func (e *ErrGiveUp) Error() string { return e.Err.Error() }
func (e *ErrGiveUp) Unwrap() error { return e.Err }

// Policy configures attempts, delay, and jitter for a combinator invocation.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy matches the spec's default: initial 1-2s, factor 2, cap ~30s,
// attempts ~5 for store writes. Components with tighter SLAs (LLM, executor)
// construct their own Policy.
var DefaultPolicy = Policy{MaxAttempts: 5, BaseDelay: 1500 * time.Millisecond, MaxDelay: 30 * time.Second}

// Do runs fn, retrying per policy while classify(err) returns Retry. Stops
// immediately on GiveUp or BudgetAbort, or when ctx is cancelled.
func Do(ctx context.Context, p Policy, classify Classifier, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0 // bounded by MaxAttempts, not elapsed time

	bctx := backoff.WithContext(b, ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		switch classify(err) {
		case Retry:
			if attempt >= p.MaxAttempts {
				return backoff.Permanent(err)
			}
			return err
		default: // GiveUp, BudgetAbort
			return backoff.Permanent(&ErrGiveUp{Err: err})
		}
	}

	err := backoff.Retry(operation, bctx)
	if err == nil {
		return nil
	}
	var giveUp *ErrGiveUp
	if errors.As(err, &giveUp) {
		return giveUp.Err
	}
	return err
}

// Transient classifies nil as success, everything else as retryable, for
// components whose own error types already distinguish permanent failures
// before reaching the combinator.
func Transient(err error) Verdict {
	if err == nil {
		return GiveUp
	}
	return Retry
}
