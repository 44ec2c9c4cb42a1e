package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiderbench/evalcore/pkg/llm"
	"github.com/spiderbench/evalcore/pkg/models"
)

type fakeSchema struct {
	schema *models.Schema
	err    error
}

func (f *fakeSchema) Extract(ctx context.Context, database string) (*models.Schema, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.schema, nil
}

type fakeRetriever struct {
	chunks []models.RetrievedChunk
	err    error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, database, question string, topK int) ([]models.RetrievedChunk, error) {
	return f.chunks, f.err
}

type fakeLLM struct {
	responses []*llm.Response
	errs      []error
	calls     int
	gotTasks  []string
}

func (f *fakeLLM) Complete(ctx context.Context, taskName, systemPrompt, userPrompt string, opts llm.Options) (*llm.Response, error) {
	f.gotTasks = append(f.gotTasks, taskName)
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &llm.Response{Text: "SELECT 1"}, nil
}

func sampleSchema() *models.Schema {
	return &models.Schema{Database: "car_1", Tables: []models.SchemaTable{
		{Name: "cars", Columns: []models.Column{{Name: "id", Type: "int", PrimaryKey: true}}},
	}}
}

func TestGenerateBaseline_ExtractsSQL(t *testing.T) {
	llmClient := &fakeLLM{responses: []*llm.Response{{Text: "```sql\nSELECT id FROM cars;\n```", TokensPrompt: 10, TokensCompletion: 5, CostUSD: 0.001, ModelName: "gpt"}}}
	p := New(&fakeSchema{schema: sampleSchema()}, &fakeRetriever{}, llmClient, 5)

	result, err := p.GenerateBaseline(context.Background(), "car_1", "how many cars?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM cars", result.SQL)
	assert.False(t, result.HasSemanticContext)
	assert.Equal(t, []string{taskBaseline}, llmClient.gotTasks)
}

func TestGenerateEnhanced_DegradesToBaselineWhenIndexEmpty(t *testing.T) {
	llmClient := &fakeLLM{responses: []*llm.Response{{Text: "SELECT id FROM cars"}}}
	p := New(&fakeSchema{schema: sampleSchema()}, &fakeRetriever{chunks: nil}, llmClient, 5)

	result, err := p.GenerateEnhanced(context.Background(), "car_1", "how many cars?")
	require.NoError(t, err)
	assert.False(t, result.HasSemanticContext)
	assert.False(t, result.FellBackToBaseline)
	assert.Equal(t, []string{taskBaseline}, llmClient.gotTasks)
}

func TestGenerateEnhanced_UsesRetrievedChunks(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Chunk: models.SemanticChunk{ID: "car_1::table::cars", Kind: models.ChunkTable, TableName: "cars", TextContent: "car details"}, Score: 0.9},
	}
	llmClient := &fakeLLM{responses: []*llm.Response{{Text: "SELECT id FROM cars"}}}
	p := New(&fakeSchema{schema: sampleSchema()}, &fakeRetriever{chunks: chunks}, llmClient, 5)

	result, err := p.GenerateEnhanced(context.Background(), "car_1", "how many cars?")
	require.NoError(t, err)
	assert.True(t, result.HasSemanticContext)
	assert.Equal(t, 1, result.SemanticChunksUsed)
	assert.Equal(t, []string{taskEnhanced}, llmClient.gotTasks)
}

func TestGenerateEnhanced_ContextTooLargeDropsChunksThenRetries(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Chunk: models.SemanticChunk{ID: "a", TextContent: "a"}, Score: 0.9},
		{Chunk: models.SemanticChunk{ID: "b", TextContent: "b"}, Score: 0.5},
	}
	llmClient := &fakeLLM{
		errs:      []error{&llm.Error{Kind: llm.ErrContextTooLarge}, nil},
		responses: []*llm.Response{nil, {Text: "SELECT id FROM cars"}},
	}
	p := New(&fakeSchema{schema: sampleSchema()}, &fakeRetriever{chunks: chunks}, llmClient, 5)

	result, err := p.GenerateEnhanced(context.Background(), "car_1", "how many cars?")
	require.NoError(t, err)
	assert.False(t, result.FellBackToBaseline)
	assert.Equal(t, 1, result.SemanticChunksUsed)
	assert.Equal(t, []string{taskEnhanced, taskEnhanced}, llmClient.gotTasks)
}

func TestGenerateEnhanced_ContextTooLargeTwiceFallsBackToBaseline(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Chunk: models.SemanticChunk{ID: "a", TextContent: "a"}, Score: 0.9},
		{Chunk: models.SemanticChunk{ID: "b", TextContent: "b"}, Score: 0.5},
	}
	ctxTooLarge := &llm.Error{Kind: llm.ErrContextTooLarge}
	llmClient := &fakeLLM{
		errs:      []error{ctxTooLarge, ctxTooLarge, nil},
		responses: []*llm.Response{nil, nil, {Text: "SELECT id FROM cars"}},
	}
	p := New(&fakeSchema{schema: sampleSchema()}, &fakeRetriever{chunks: chunks}, llmClient, 5)

	result, err := p.GenerateEnhanced(context.Background(), "car_1", "how many cars?")
	require.NoError(t, err)
	assert.True(t, result.FellBackToBaseline)
	assert.False(t, result.HasSemanticContext)
	assert.Equal(t, []string{taskEnhanced, taskEnhanced, taskBaseline}, llmClient.gotTasks)
}

func TestExtractSQL_StripsFencesAndTakesFirstStatement(t *testing.T) {
	in := "```sql\nSELECT 1;\nSELECT 2;\n```"
	assert.Equal(t, "SELECT 1", extractSQL(in))
}

func TestExtractSQL_PlainTextNoFences(t *testing.T) {
	assert.Equal(t, "SELECT * FROM cars", extractSQL("  SELECT * FROM cars  "))
}

func TestGenerateBaseline_PropagatesSchemaError(t *testing.T) {
	p := New(&fakeSchema{err: assertErr{}}, &fakeRetriever{}, &fakeLLM{}, 5)
	_, err := p.GenerateBaseline(context.Background(), "car_1", "q")
	assert.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
