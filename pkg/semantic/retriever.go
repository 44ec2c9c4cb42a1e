package semantic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spiderbench/evalcore/pkg/embedding"
	"github.com/spiderbench/evalcore/pkg/models"
)

// Retriever composes chunking with an EmbeddingIndex to index and retrieve
// semantic context for a database.
type Retriever struct {
	index embedding.Index
	topK  int
}

// New wires a Retriever over an EmbeddingIndex with a default top-k.
func New(index embedding.Index, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{index: index, topK: topK}
}

// IndexDatabase deletes existing chunks for layer.Database, then chunks,
// embeds, and upserts the new set in one batch.
func (r *Retriever) IndexDatabase(ctx context.Context, layer *models.SemanticLayer) error {
	if err := r.index.DeleteByDatabase(ctx, layer.Database); err != nil {
		return fmt.Errorf("failed to delete existing chunks for %s: %w", layer.Database, err)
	}

	chunks := Chunk(layer)
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.TextContent
	}
	vectors, err := r.index.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks for %s: %w", layer.Database, err)
	}

	records := make([]embedding.Record, len(chunks))
	for i, c := range chunks {
		records[i] = embedding.Record{
			ID:          c.ID,
			Vector:      vectors[i],
			Database:    layer.Database,
			Kind:        string(c.Kind),
			TableName:   c.TableName,
			TextContent: c.TextContent,
		}
	}
	if err := r.index.Upsert(ctx, records); err != nil {
		return fmt.Errorf("failed to upsert chunks for %s: %w", layer.Database, err)
	}
	return nil
}

// Retrieve embeds question and returns the top-k chunks relevant to it,
// scoped to database, in descending score order. An empty result (index
// has no chunks for this database yet) is not an error — callers degrade
// to baseline and log a warning per §4.8/§9.
func (r *Retriever) Retrieve(ctx context.Context, database, question string, topK int) ([]models.RetrievedChunk, error) {
	if topK <= 0 {
		topK = r.topK
	}

	vectors, err := r.index.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	matches, err := r.index.Query(ctx, vectors[0], topK, database)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding index: %w", err)
	}
	if len(matches) == 0 {
		slog.Warn("no semantic chunks found for database, degrading to baseline", "database", database)
		return nil, nil
	}

	chunks := make([]models.RetrievedChunk, len(matches))
	for i, m := range matches {
		chunks[i] = models.RetrievedChunk{
			Chunk: models.SemanticChunk{
				ID:          m.ID,
				Database:    database,
				Kind:        models.ChunkKind(m.Kind),
				TableName:   m.TableName,
				TextContent: m.TextContent,
			},
			Score: m.Score,
		}
	}
	return chunks, nil
}
