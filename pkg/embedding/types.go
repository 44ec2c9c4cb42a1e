// Package embedding implements EmbeddingIndex: a pgvector-backed
// cosine-similarity index over semantic_chunks, fronted by a small HTTP
// embedding client with request dedup and a fail-fast timeout.
package embedding

import "context"

// Record is one chunk to upsert: its embedding vector, owning database
// (for scoped deletion), and the metadata needed to render it in a prompt
// on retrieval without a second round-trip to the store.
type Record struct {
	ID          string
	Vector      []float32
	Database    string
	Kind        string
	TableName   string
	TextContent string
}

// Match is one query hit: the chunk id, its cosine similarity score, and
// the chunk metadata needed to render it in a prompt without a second
// round-trip to the store.
type Match struct {
	ID          string
	Score       float32
	Kind        string
	TableName   string
	TextContent string
}

// Index is the EmbeddingIndex capability set.
type Index interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int, database string) ([]Match, error)
	DeleteByDatabase(ctx context.Context, database string) error
}
