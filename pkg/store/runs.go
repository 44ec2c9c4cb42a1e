package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spiderbench/evalcore/pkg/apperrors"
	"github.com/spiderbench/evalcore/pkg/models"
)

// CreateRun inserts a Run in pending state. By default, concurrent
// identical runs are allowed (policy is implementation-choice per the spec).
func (s *Store) CreateRun(ctx context.Context, req models.CreateRunRequest, questionCount int) (string, error) {
	if req.Name == "" {
		return "", apperrors.NewValidationError("name", "required")
	}
	if req.Mode == "" {
		return "", apperrors.NewValidationError("run_type", "required")
	}

	ceiling := 5.00
	if req.BudgetCeiling != nil {
		ceiling = *req.BudgetCeiling
	}

	databasesJSON, err := json.Marshal(req.Databases)
	if err != nil {
		return "", fmt.Errorf("failed to marshal databases: %w", err)
	}

	runID := uuid.New().String()

	err = s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO runs (id, name, mode, databases, question_count, status, budget_ceiling_usd)
			VALUES ($1, $2, $3, $4, $5, 'pending', $6)`,
			runID, req.Name, string(req.Mode), databasesJSON, questionCount, ceiling,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return "", apperrors.ErrAlreadyExists
		}
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID, nil
}

// MarkRunning transitions pending -> running, stamping started_at. Idempotent
// if already running; fails from terminal states.
func (s *Store) MarkRunning(ctx context.Context, runID string) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE runs SET status = 'running', started_at = COALESCE(started_at, now())
			WHERE id = $1 AND status IN ('pending', 'running')`, runID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return checkExistsOrTerminal(ctx, s.db, runID)
		}
		return nil
	})
}

func checkExistsOrTerminal(ctx context.Context, db *sql.DB, runID string) error {
	var status string
	err := db.QueryRowContext(ctx, `SELECT status FROM runs WHERE id = $1`, runID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: run %s is in terminal state %s", apperrors.ErrInvalidInput, runID, status)
}

// UpdateProgress upserts progress counters. Safe under contention from a
// single writer (the Runner owning the Run); readers may see monotonically
// advancing counts.
func (s *Store) UpdateProgress(ctx context.Context, runID string, delta models.ProgressDelta) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE runs SET
				completed_count = completed_count + $2,
				failed_count = failed_count + $3,
				current_question = COALESCE(NULLIF($4, ''), current_question),
				baseline_cost_usd = baseline_cost_usd + $5,
				enhanced_cost_usd = enhanced_cost_usd + $6
			WHERE id = $1`,
			runID, delta.CompletedDelta, delta.FailedDelta, delta.CurrentQuestion,
			delta.BaselineCostDelta, delta.EnhancedCostDelta,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// FinalizeRun transitions a Run to a terminal state and stores rollup
// metrics. Idempotent.
func (s *Store) FinalizeRun(ctx context.Context, runID string, final models.RunStatus, reason string, rollup *models.Rollup) error {
	rollupJSON, err := json.Marshal(rollup)
	if err != nil {
		return fmt.Errorf("failed to marshal rollup: %w", err)
	}

	stampCol := "completed_at"
	if final == models.RunCancelled {
		stampCol = "cancelled_at"
	}

	return s.withRetry(ctx, func(ctx context.Context) error {
		q := fmt.Sprintf(`
			UPDATE runs SET status = $2, reason = $3, rollup = $4, %s = COALESCE(%s, now())
			WHERE id = $1`, stampCol, stampCol)
		_, err := s.db.ExecContext(ctx, q, runID, string(final), reason, rollupJSON)
		return err
	})
}

// CancelRun requests cancellation; honored only while pending/running. The
// Runner observes this on its next status poll.
func (s *Store) CancelRun(ctx context.Context, runID, reason string) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE runs SET status = 'cancelled', reason = $2, cancelled_at = now()
			WHERE id = $1 AND status IN ('pending', 'running')`, runID, reason)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			err := checkExistsOrTerminal(ctx, s.db, runID)
			if errors.Is(err, apperrors.ErrInvalidInput) {
				return fmt.Errorf("%w: %v", apperrors.ErrNotCancellable, err)
			}
			return err
		}
		return nil
	})
}

// ListRuns lists run summaries, newest first, paginated.
func (s *Store) ListRuns(ctx context.Context, filters models.RunFilters) ([]*models.RunSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, name, mode, status, question_count, completed_count, failed_count,
		baseline_cost_usd + enhanced_cost_usd, created_at FROM runs WHERE 1=1`
	args := []any{}
	n := 0
	if filters.Status != "" {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(filters.Status))
	}
	if filters.Mode != "" {
		n++
		query += fmt.Sprintf(" AND mode = $%d", n)
		args = append(args, string(filters.Mode))
	}
	query += " ORDER BY created_at DESC"
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)
	n++
	query += fmt.Sprintf(" OFFSET $%d", n)
	args = append(args, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var result []*models.RunSummary
	for rows.Next() {
		r := &models.RunSummary{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Mode, &r.Status, &r.QuestionCount,
			&r.CompletedCount, &r.FailedCount, &r.TotalCost, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetStatus returns the live status view for a Run.
func (s *Store) GetStatus(ctx context.Context, runID string) (*models.RunStatusView, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, question_count, completed_count, failed_count, current_question,
			baseline_cost_usd + enhanced_cost_usd, rollup
		FROM runs WHERE id = $1`, runID)

	var v models.RunStatusView
	var currentQuestion sql.NullString
	var rollupJSON []byte
	if err := row.Scan(&v.ID, &v.Status, &v.QuestionCount, &v.CompletedCount, &v.FailedCount,
		&currentQuestion, &v.TotalCostUSD, &rollupJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	v.CurrentQuestion = currentQuestion.String
	if v.QuestionCount > 0 {
		v.Progress = float64(v.CompletedCount+v.FailedCount) / float64(v.QuestionCount)
	}

	if len(rollupJSON) > 0 {
		var r models.Rollup
		if err := json.Unmarshal(rollupJSON, &r); err == nil {
			if r.Baseline != nil {
				v.BaselineExecMatchRate = r.Baseline.ExecMatchRate
				v.BaselineCorrectCount = r.Baseline.CorrectCount
			}
			if r.Enhanced != nil {
				v.EnhancedExecMatchRate = r.Enhanced.ExecMatchRate
				v.EnhancedCorrectCount = r.Enhanced.CorrectCount
			}
		}
	}
	return &v, nil
}

// GetSummary returns the stored rollup, pre-aggregated at finalize time.
func (s *Store) GetSummary(ctx context.Context, runID string) (*models.Rollup, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rollupJSON []byte
	err := s.db.QueryRowContext(ctx, `SELECT rollup FROM runs WHERE id = $1`, runID).Scan(&rollupJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	if len(rollupJSON) == 0 {
		return nil, nil
	}
	var r models.Rollup
	if err := json.Unmarshal(rollupJSON, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rollup: %w", err)
	}
	return &r, nil
}

// DeleteRun deletes a Run and cascades to its Results.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = $1`, runID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}
