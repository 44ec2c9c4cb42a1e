package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spiderbench/evalcore/pkg/models"
)

// RecordResult inserts a Result, keyed by (run_id, question_id). Re-insertion
// of the same key is a silent no-op, enabling idempotent naive replay.
func (s *Store) RecordResult(ctx context.Context, r *models.Result) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO results (
				run_id, question_id, database, question, gold_sql, difficulty,
				baseline_sql, baseline_exact_match, baseline_exec_match, baseline_error,
				baseline_execution_time_ms, baseline_tokens_prompt, baseline_tokens_completion, baseline_cost_usd,
				enhanced_sql, enhanced_exact_match, enhanced_exec_match, enhanced_error,
				enhanced_execution_time_ms, enhanced_tokens_prompt, enhanced_tokens_completion, enhanced_cost_usd,
				enhanced_semantic_chunks_used, enhanced_has_semantic_context
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18, $19, $20, $21, $22, $23, $24
			)
			ON CONFLICT (run_id, question_id) DO NOTHING`,
			r.RunID, r.QuestionID, r.Database, r.Question, r.GoldSQL, string(r.Difficulty),
			modeField(r.Baseline, func(m *models.ModeResult) any { return m.SQL }),
			modeBool(r.Baseline, func(m *models.ModeResult) bool { return m.ExactMatch }),
			modeBool(r.Baseline, func(m *models.ModeResult) bool { return m.ExecMatch }),
			modeField(r.Baseline, func(m *models.ModeResult) any { return m.Error }),
			modeInt64(r.Baseline, func(m *models.ModeResult) int64 { return m.ExecutionTimeMS }),
			modeInt(r.Baseline, func(m *models.ModeResult) int { return m.TokensPrompt }),
			modeInt(r.Baseline, func(m *models.ModeResult) int { return m.TokensCompletion }),
			modeFloat(r.Baseline, func(m *models.ModeResult) float64 { return m.CostUSD }),
			modeField(r.Enhanced, func(m *models.ModeResult) any { return m.SQL }),
			modeBool(r.Enhanced, func(m *models.ModeResult) bool { return m.ExactMatch }),
			modeBool(r.Enhanced, func(m *models.ModeResult) bool { return m.ExecMatch }),
			modeField(r.Enhanced, func(m *models.ModeResult) any { return m.Error }),
			modeInt64(r.Enhanced, func(m *models.ModeResult) int64 { return m.ExecutionTimeMS }),
			modeInt(r.Enhanced, func(m *models.ModeResult) int { return m.TokensPrompt }),
			modeInt(r.Enhanced, func(m *models.ModeResult) int { return m.TokensCompletion }),
			modeFloat(r.Enhanced, func(m *models.ModeResult) float64 { return m.CostUSD }),
			modeInt(r.Enhanced, func(m *models.ModeResult) int { return m.SemanticChunksUsed }),
			modeBool(r.Enhanced, func(m *models.ModeResult) bool { return m.HasSemanticContext }),
		)
		return err
	})
}

func modeField(m *models.ModeResult, get func(*models.ModeResult) any) any {
	if m == nil {
		return nil
	}
	return get(m)
}
func modeBool(m *models.ModeResult, get func(*models.ModeResult) bool) bool {
	if m == nil {
		return false
	}
	return get(m)
}
func modeInt(m *models.ModeResult, get func(*models.ModeResult) int) int {
	if m == nil {
		return 0
	}
	return get(m)
}
func modeInt64(m *models.ModeResult, get func(*models.ModeResult) int64) int64 {
	if m == nil {
		return 0
	}
	return get(m)
}
func modeFloat(m *models.ModeResult, get func(*models.ModeResult) float64) float64 {
	if m == nil {
		return 0
	}
	return get(m)
}

// ListResults returns a paginated slice of Results for a Run. page_size is
// capped at 500.
func (s *Store) ListResults(ctx context.Context, runID string, filters models.ResultFilters, page models.Page) (*models.ResultPage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = 50
	} else if pageSize > 500 {
		pageSize = 500
	}
	pageNum := page.Page
	if pageNum < 1 {
		pageNum = 1
	}

	where := `WHERE run_id = $1`
	args := []any{runID}
	n := 1
	if filters.FailuresOnly {
		where += ` AND (NOT baseline_exec_match OR NOT enhanced_exec_match)`
	}
	if filters.Database != "" {
		n++
		where += fmt.Sprintf(" AND database = $%d", n)
		args = append(args, filters.Database)
	}
	if filters.Difficulty != "" {
		n++
		where += fmt.Sprintf(" AND difficulty = $%d", n)
		args = append(args, string(filters.Difficulty))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM results `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}

	n++
	limitArg := n
	args = append(args, pageSize)
	n++
	offsetArg := n
	args = append(args, (pageNum-1)*pageSize)

	query := fmt.Sprintf(`
		SELECT run_id, question_id, database, question, gold_sql, difficulty,
			baseline_sql, baseline_exact_match, baseline_exec_match, baseline_error,
			baseline_execution_time_ms, baseline_tokens_prompt, baseline_tokens_completion, baseline_cost_usd,
			enhanced_sql, enhanced_exact_match, enhanced_exec_match, enhanced_error,
			enhanced_execution_time_ms, enhanced_tokens_prompt, enhanced_tokens_completion, enhanced_cost_usd,
			enhanced_semantic_chunks_used, enhanced_has_semantic_context
		FROM results %s ORDER BY question_id LIMIT $%d OFFSET $%d`, where, limitArg, offsetArg)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*models.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.ResultPage{Results: results, TotalCount: total, Page: pageNum, PageSize: pageSize}, nil
}

func scanResult(rows *sql.Rows) (*models.Result, error) {
	r := &models.Result{Baseline: &models.ModeResult{}, Enhanced: &models.ModeResult{}}
	var difficulty sql.NullString
	var baselineSQL, baselineError, enhancedSQL, enhancedError sql.NullString

	if err := rows.Scan(
		&r.RunID, &r.QuestionID, &r.Database, &r.Question, &r.GoldSQL, &difficulty,
		&baselineSQL, &r.Baseline.ExactMatch, &r.Baseline.ExecMatch, &baselineError,
		&r.Baseline.ExecutionTimeMS, &r.Baseline.TokensPrompt, &r.Baseline.TokensCompletion, &r.Baseline.CostUSD,
		&enhancedSQL, &r.Enhanced.ExactMatch, &r.Enhanced.ExecMatch, &enhancedError,
		&r.Enhanced.ExecutionTimeMS, &r.Enhanced.TokensPrompt, &r.Enhanced.TokensCompletion, &r.Enhanced.CostUSD,
		&r.Enhanced.SemanticChunksUsed, &r.Enhanced.HasSemanticContext,
	); err != nil {
		return nil, fmt.Errorf("failed to scan result: %w", err)
	}
	r.Difficulty = models.Difficulty(difficulty.String)
	r.Baseline.SQL = baselineSQL.String
	r.Baseline.Error = baselineError.String
	r.Enhanced.SQL = enhancedSQL.String
	r.Enhanced.Error = enhancedError.String
	return r, nil
}
