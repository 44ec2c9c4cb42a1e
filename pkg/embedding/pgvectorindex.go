package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/spiderbench/evalcore/pkg/config"
)

// PGVectorIndex stores vectors in semantic_chunks.embedding and queries them
// with the <=> cosine-distance operator. Index identity and dimension are
// fixed at startup; changing the embedding model requires re-indexing.
type PGVectorIndex struct {
	pool     *pgxpool.Pool
	embedder *httpEmbedder
}

// New wires a PGVectorIndex over the MetadataStore's pool and the
// configured embedding provider.
func New(pool *pgxpool.Pool, embeddingCfg config.EmbeddingConfig, providerCfg *config.ProviderConfig, callTimeout time.Duration) *PGVectorIndex {
	return &PGVectorIndex{pool: pool, embedder: newHTTPEmbedder(providerCfg, callTimeout)}
}

// Embed calls the configured embedding provider for each text in turn.
func (idx *PGVectorIndex) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := idx.embedder.embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Upsert inserts or replaces chunk rows by id, including the metadata
// needed to render a match without a second round-trip (chunk_kind,
// table_name, text_content).
func (idx *PGVectorIndex) Upsert(ctx context.Context, records []Record) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO semantic_chunks (id, database, chunk_kind, table_name, text_content, embedding)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				database = excluded.database,
				chunk_kind = excluded.chunk_kind,
				table_name = excluded.table_name,
				text_content = excluded.text_content,
				embedding = excluded.embedding`,
			r.ID, r.Database, r.Kind, r.TableName, r.TextContent, pgvector.NewVector(r.Vector),
		)
	}
	results := idx.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunk batch: %w", err)
		}
	}
	return nil
}

// Query returns the top-k nearest chunk ids by cosine distance, optionally
// scoped to one database.
func (idx *PGVectorIndex) Query(ctx context.Context, vector []float32, topK int, database string) ([]Match, error) {
	v := pgvector.NewVector(vector)

	var rows pgx.Rows
	var err error

	if database != "" {
		rows, err = idx.pool.Query(ctx, `
			SELECT id, 1 - (embedding <=> $1) AS score, chunk_kind, COALESCE(table_name, ''), text_content
			FROM semantic_chunks
			WHERE database = $2 AND embedding IS NOT NULL
			ORDER BY embedding <=> $1 ASC
			LIMIT $3`, v, database, topK)
	} else {
		rows, err = idx.pool.Query(ctx, `
			SELECT id, 1 - (embedding <=> $1) AS score, chunk_kind, COALESCE(table_name, ''), text_content
			FROM semantic_chunks
			WHERE embedding IS NOT NULL
			ORDER BY embedding <=> $1 ASC
			LIMIT $2`, v, topK)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding index: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Score, &m.Kind, &m.TableName, &m.TextContent); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteByDatabase clears chunks for one database ahead of re-indexing.
func (idx *PGVectorIndex) DeleteByDatabase(ctx context.Context, database string) error {
	_, err := idx.pool.Exec(ctx, `DELETE FROM semantic_chunks WHERE database = $1`, database)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for database %s: %w", database, err)
	}
	return nil
}
