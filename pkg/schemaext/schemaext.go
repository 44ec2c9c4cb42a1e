// Package schemaext implements SchemaExtractor: catalog introspection
// producing a deterministic, alphabetized Schema snapshot for prompt
// assembly.
package schemaext

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/spiderbench/evalcore/pkg/models"
)

// Extractor queries information_schema and pg_stat_user_tables for a single
// database (identified by its Postgres schema/namespace), scoped to the
// given schema name.
type Extractor struct {
	db *sql.DB
}

// New wraps an already-connected *sql.DB.
func New(db *sql.DB) *Extractor {
	return &Extractor{db: db}
}

// Extract returns the Schema snapshot for a database's schema namespace.
// Tables and columns are returned in alphabetized order so prompt text built
// from the snapshot is stable across calls.
func (e *Extractor) Extract(ctx context.Context, database string) (*models.Schema, error) {
	tableNames, err := e.listTables(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	pkCols, err := e.primaryKeyColumns(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("failed to load primary keys: %w", err)
	}
	fks, err := e.foreignKeys(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("failed to load foreign keys: %w", err)
	}
	rowCounts, err := e.rowCounts(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("failed to load row counts: %w", err)
	}

	schema := &models.Schema{Database: database}
	for _, name := range tableNames {
		cols, err := e.columns(ctx, database, name, pkCols[name])
		if err != nil {
			return nil, fmt.Errorf("failed to load columns for %s: %w", name, err)
		}
		schema.Tables = append(schema.Tables, models.SchemaTable{
			Name:        name,
			Columns:     cols,
			ForeignKeys: fks[name],
			RowCount:    rowCounts[name],
		})
	}
	return schema, nil
}

func (e *Extractor) listTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, rows.Err()
}

func (e *Extractor) columns(ctx context.Context, schema, table string, pkCols map[string]bool) ([]models.Column, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY column_name`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []models.Column
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, err
		}
		cols = append(cols, models.Column{
			Name:       name,
			Type:       dataType,
			Nullable:   nullable == "YES",
			PrimaryKey: pkCols[name],
		})
	}
	return cols, rows.Err()
}

func (e *Extractor) primaryKeyColumns(ctx context.Context, schema string) (map[string]map[string]bool, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'`, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]map[string]bool)
	for rows.Next() {
		var table, col string
		if err := rows.Scan(&table, &col); err != nil {
			return nil, err
		}
		if result[table] == nil {
			result[table] = make(map[string]bool)
		}
		result[table][col] = true
	}
	return result, rows.Err()
}

func (e *Extractor) foreignKeys(ctx context.Context, schema string) (map[string][]models.ForeignKeyRef, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT
			tc.table_name, kcu.column_name,
			ccu.table_name AS ref_table, ccu.column_name AS ref_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY tc.table_name, kcu.column_name`, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]models.ForeignKeyRef)
	for rows.Next() {
		var table, col, refTable, refCol string
		if err := rows.Scan(&table, &col, &refTable, &refCol); err != nil {
			return nil, err
		}
		result[table] = append(result[table], models.ForeignKeyRef{
			LocalColumn: col,
			RefTable:    refTable,
			RefColumn:   refCol,
		})
	}
	return result, rows.Err()
}

// rowCounts is best-effort: pg_stat_user_tables' n_live_tup is an estimate
// refreshed by autovacuum/analyze, not a live count.
func (e *Extractor) rowCounts(ctx context.Context, schema string) (map[string]int64, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT relname, n_live_tup FROM pg_stat_user_tables WHERE schemaname = $1`, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		result[name] = count
	}
	return result, rows.Err()
}
