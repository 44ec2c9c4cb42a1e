package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetInstructions returns the global custom-instructions text, or "" if
// never set.
func (s *Store) GetInstructions(ctx context.Context) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var text string
	err := s.db.QueryRowContext(ctx, `SELECT text FROM instructions WHERE id = true`).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get instructions: %w", err)
	}
	return text, nil
}

// SetInstructions replaces the global custom-instructions text. The
// singleton row is created on first write.
func (s *Store) SetInstructions(ctx context.Context, text string) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO instructions (id, text, updated_at) VALUES (true, $1, now())
			ON CONFLICT (id) DO UPDATE SET text = excluded.text, updated_at = now()`,
			text)
		return err
	})
}
