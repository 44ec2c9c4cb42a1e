// Package executor implements QueryExecutor: safe, pooled, retry-aware
// read-only SQL execution against the benchmark databases under test. The
// pool is the single concurrency governor for the benchmark database — no
// other component holds a direct connection.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spiderbench/evalcore/pkg/retry"
)

const defaultRowCap = 1000

// Config configures the executor's pool and per-call session defaults.
type Config struct {
	DSN              string
	MinConns         int32
	MaxConns         int32
	StatementTimeout time.Duration
	RowCap           int
}

// Result is the outcome of one Execute call.
type Result struct {
	Columns      []string
	Rows         [][]any
	Truncated    bool
	ExecutionMS  int64
}

// Executor is the QueryExecutor implementation, backed by a dedicated
// pgxpool separate from the MetadataStore's pool.
type Executor struct {
	pool   *pgxpool.Pool
	rowCap int
	stmtTO time.Duration
}

// New opens a pooled connection to the benchmark Postgres instance.
func New(ctx context.Context, cfg Config) (*Executor, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse executor DSN: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	} else {
		poolCfg.MinConns = 2
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = 10
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping executor pool: %w", err)
	}

	rowCap := cfg.RowCap
	if rowCap <= 0 {
		rowCap = defaultRowCap
	}
	stmtTO := cfg.StatementTimeout
	if stmtTO <= 0 {
		stmtTO = 5 * time.Second
	}

	return &Executor{pool: pool, rowCap: rowCap, stmtTO: stmtTO}, nil
}

// Close releases the pool.
func (e *Executor) Close() {
	e.pool.Close()
}

// policy: 3 retries, jittered 2s/4s/8s, matching the spec's transient-error
// retry schedule for the executor (distinct from the store's policy).
var execPolicy = retry.Policy{MaxAttempts: 4, BaseDelay: 2 * time.Second, MaxDelay: 8 * time.Second}

func classifyExec(err error) retry.Verdict {
	if err == nil {
		return retry.GiveUp
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			return retry.Retry
		}
		// syntax errors, missing columns, permission errors are the subject
		// of the benchmark and must surface on first failure.
		return retry.GiveUp
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return retry.GiveUp
	}
	return retry.Retry
}

// Execute runs sql read-only against database, enforcing the safety filter,
// per-statement timeout, and row cap. The transaction is rolled back
// unconditionally regardless of outcome.
func (e *Executor) Execute(ctx context.Context, database, sql string) (*Result, error) {
	if err := validateSafe(sql); err != nil {
		return nil, err
	}

	var result *Result
	err := retry.Do(ctx, execPolicy, classifyExec, func(ctx context.Context) error {
		r, err := e.executeOnce(ctx, database, sql)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Executor) executeOnce(ctx context.Context, database, query string) (*Result, error) {
	start := time.Now()

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SET TRANSACTION READ ONLY"); err != nil {
		return nil, fmt.Errorf("failed to set read only: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET statement_timeout = %d", e.stmtTO.Milliseconds())); err != nil {
		return nil, fmt.Errorf("failed to set statement timeout: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{database}.Sanitize())); err != nil {
		return nil, fmt.Errorf("failed to set search path: %w", err)
	}

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	var out [][]any
	truncated := false
	for rows.Next() {
		if len(out) >= e.rowCap {
			truncated = true
			break
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return &Result{
		Columns:     columns,
		Rows:        out,
		Truncated:   truncated,
		ExecutionMS: time.Since(start).Milliseconds(),
	}, nil
}
