// Package store implements MetadataStore: durable persistence of Runs,
// Results, SemanticLayers, and the global custom-instructions blob, backed
// directly by database/sql over the pgx driver (no ORM/code generation).
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spiderbench/evalcore/pkg/apperrors"
	"github.com/spiderbench/evalcore/pkg/retry"
)

// defaultTimeout matches spec.md §5's MetadataStore per-call timeout when
// New is called without an explicit one.
const defaultTimeout = 10 * time.Second

// Store is the MetadataStore implementation.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// New creates a Store over an already-migrated database connection. timeout
// bounds each call per spec.md §5 ("MetadataStore call ≤ 10s"); a
// non-positive value falls back to the spec's default.
func New(db *sql.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{db: db, timeout: timeout}
}

// writePolicy matches the spec's store-write retry policy: attempts ~5,
// initial 1-2s, factor 2, cap ~30s.
var writePolicy = retry.DefaultPolicy

// classifyWrite treats unique/foreign-key constraint violations and
// check-constraint failures as permanent (the caller's input was wrong, not
// the connection), likewise the store's own not-found / invalid-state
// errors, and everything else — connection resets, pool
// exhaustion, context deadline — as transient and retryable.
func classifyWrite(err error) retry.Verdict {
	if err == nil {
		return retry.GiveUp
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "23": // integrity constraint violation
			return retry.GiveUp
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return retry.GiveUp
	}
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidInput) ||
		errors.Is(err, apperrors.ErrNotCancellable) {
		return retry.GiveUp
	}
	return retry.Retry
}

func (s *Store) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return retry.Do(ctx, writePolicy, classifyWrite, fn)
}

// withTimeout bounds a single non-retried read call at s.timeout, per
// spec.md §5's MetadataStore per-call timeout.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
