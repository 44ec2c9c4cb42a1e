package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiderbench/evalcore/pkg/embedding"
	"github.com/spiderbench/evalcore/pkg/models"
)

type fakeIndex struct {
	deleted   []string
	upserted  []embedding.Record
	queryResp []embedding.Match
}

func (f *fakeIndex) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (f *fakeIndex) Upsert(ctx context.Context, records []embedding.Record) error {
	f.upserted = append(f.upserted, records...)
	return nil
}
func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int, database string) ([]embedding.Match, error) {
	return f.queryResp, nil
}
func (f *fakeIndex) DeleteByDatabase(ctx context.Context, database string) error {
	f.deleted = append(f.deleted, database)
	return nil
}

func TestRetriever_IndexDatabase(t *testing.T) {
	idx := &fakeIndex{}
	r := New(idx, 5)

	err := r.IndexDatabase(context.Background(), sampleLayer())
	require.NoError(t, err)

	assert.Equal(t, []string{"car_1"}, idx.deleted)
	assert.NotEmpty(t, idx.upserted)
	for _, rec := range idx.upserted {
		assert.Equal(t, "car_1", rec.Database)
		assert.NotEmpty(t, rec.TextContent)
	}
}

func TestRetriever_RetrieveEmptyIndexDegrades(t *testing.T) {
	idx := &fakeIndex{queryResp: nil}
	r := New(idx, 5)

	chunks, err := r.Retrieve(context.Background(), "car_1", "question", 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetriever_RetrieveReturnsOrderedChunks(t *testing.T) {
	idx := &fakeIndex{queryResp: []embedding.Match{
		{ID: "car_1::table::car_names", Score: 0.9, Kind: "table", TableName: "car_names", TextContent: "details"},
	}}
	r := New(idx, 5)

	chunks, err := r.Retrieve(context.Background(), "car_1", "question", 5)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, models.ChunkTable, chunks[0].Chunk.Kind)
	assert.Equal(t, "car_names", chunks[0].Chunk.TableName)
}
