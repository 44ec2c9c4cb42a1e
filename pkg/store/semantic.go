package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spiderbench/evalcore/pkg/apperrors"
	"github.com/spiderbench/evalcore/pkg/models"
)

// SaveSemanticLayer inserts a new version of a SemanticLayer. Versions are
// append-only; callers pick the next version number.
func (s *Store) SaveSemanticLayer(ctx context.Context, layer *models.SemanticLayer) error {
	doc, err := json.Marshal(layer)
	if err != nil {
		return fmt.Errorf("failed to marshal semantic layer: %w", err)
	}
	return s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO semantic_layers (connection, database, version, document)
			VALUES ($1, $2, $3, $4)`,
			layer.Connection, layer.Database, layer.Version, doc)
		return err
	})
}

// LoadSemanticLayer returns the highest-versioned SemanticLayer for a
// connection/database pair.
func (s *Store) LoadSemanticLayer(ctx context.Context, connection, database string) (*models.SemanticLayer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT document FROM semantic_layers
		WHERE connection = $1 AND database = $2
		ORDER BY version DESC LIMIT 1`, connection, database).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load semantic layer: %w", err)
	}
	var layer models.SemanticLayer
	if err := json.Unmarshal(doc, &layer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal semantic layer: %w", err)
	}
	return &layer, nil
}

// ListSemanticLayers returns the latest version of every known
// connection/database pair.
func (s *Store) ListSemanticLayers(ctx context.Context) ([]*models.SemanticLayer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (connection, database) connection, database, version, document
		FROM semantic_layers
		ORDER BY connection, database, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list semantic layers: %w", err)
	}
	defer rows.Close()

	var layers []*models.SemanticLayer
	for rows.Next() {
		var connection, database string
		var version int
		var doc []byte
		if err := rows.Scan(&connection, &database, &version, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan semantic layer: %w", err)
		}
		var layer models.SemanticLayer
		if err := json.Unmarshal(doc, &layer); err != nil {
			return nil, fmt.Errorf("failed to unmarshal semantic layer: %w", err)
		}
		layers = append(layers, &layer)
	}
	return layers, rows.Err()
}

// DeleteSemanticLayer removes every version of a connection/database pair.
func (s *Store) DeleteSemanticLayer(ctx context.Context, connection, database string) error {
	return s.withRetry(ctx, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM semantic_layers WHERE connection = $1 AND database = $2`,
			connection, database)
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
