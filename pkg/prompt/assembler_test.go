package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiderbench/evalcore/pkg/models"
)

func sampleSchema() *models.Schema {
	return &models.Schema{
		Database: "world_1",
		Tables: []models.SchemaTable{
			{
				Name: "singer",
				Columns: []models.Column{
					{Name: "id", Type: "integer", PrimaryKey: true},
					{Name: "name", Type: "text", Nullable: true},
				},
			},
		},
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	schema := sampleSchema()
	p1 := Assemble("How many singers?", schema, models.ModeBaseline, nil, "")
	p2 := Assemble("How many singers?", schema, models.ModeBaseline, nil, "")
	assert.Equal(t, p1, p2)
}

func TestAssemble_BaselineHasNoSemanticContext(t *testing.T) {
	p := Assemble("q", sampleSchema(), models.ModeBaseline, []models.RetrievedChunk{
		{Chunk: models.SemanticChunk{Kind: models.ChunkOverview, TextContent: "leaked"}},
	}, "")
	assert.NotContains(t, p.UserPrompt, "Semantic Context")
	assert.NotContains(t, p.UserPrompt, "leaked")
}

func TestAssemble_EnhancedIncludesChunksInOrder(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Chunk: models.SemanticChunk{Kind: models.ChunkTable, TableName: "singer", TextContent: "first"}},
		{Chunk: models.SemanticChunk{Kind: models.ChunkGlossary, TextContent: "second"}},
	}
	p := Assemble("q", sampleSchema(), models.ModeEnhanced, chunks, "")
	require.Contains(t, p.UserPrompt, "Semantic Context")
	firstIdx := indexOf(p.UserPrompt, "first")
	secondIdx := indexOf(p.UserPrompt, "second")
	require.True(t, firstIdx >= 0 && secondIdx >= 0)
	assert.Less(t, firstIdx, secondIdx)
	assert.Contains(t, p.SystemPrompt, "AND-semantics")
}

func TestAssemble_CustomInstructionsAppended(t *testing.T) {
	p := Assemble("q", sampleSchema(), models.ModeBaseline, nil, "Always use lowercase identifiers.")
	assert.Contains(t, p.SystemPrompt, "Always use lowercase identifiers.")
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
