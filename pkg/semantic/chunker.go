// Package semantic implements SemanticRetriever: deterministic chunking of
// a SemanticLayer into the six-kind taxonomy of spec.md §4.6, plus
// indexing and retrieval over an EmbeddingIndex.
package semantic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spiderbench/evalcore/pkg/models"
)

// Chunk produces the deterministic set of SemanticChunks for layer. Same
// input layer always yields byte-identical chunk texts and identifiers
// (§8's chunking-determinism law).
func Chunk(layer *models.SemanticLayer) []models.SemanticChunk {
	var chunks []models.SemanticChunk

	chunks = append(chunks, models.SemanticChunk{
		ID:          chunkID(layer.Database, models.ChunkOverview, ""),
		Database:    layer.Database,
		Kind:        models.ChunkOverview,
		TextContent: renderOverview(layer.Overview),
	})

	for _, table := range layer.Tables {
		chunks = append(chunks, models.SemanticChunk{
			ID:          chunkID(layer.Database, models.ChunkTable, table.Name),
			Database:    layer.Database,
			Kind:        models.ChunkTable,
			TableName:   table.Name,
			TextContent: renderTable(table),
		})
	}

	if len(layer.CrossTableInsights) > 0 {
		chunks = append(chunks, models.SemanticChunk{
			ID:          chunkID(layer.Database, models.ChunkCrossTable, ""),
			Database:    layer.Database,
			Kind:        models.ChunkCrossTable,
			TextContent: strings.Join(layer.CrossTableInsights, "\n"),
		})
	}

	if len(layer.DomainGlossary) > 0 {
		chunks = append(chunks, models.SemanticChunk{
			ID:          chunkID(layer.Database, models.ChunkGlossary, ""),
			Database:    layer.Database,
			Kind:        models.ChunkGlossary,
			TextContent: renderGlossary(layer.DomainGlossary),
		})
	}

	if len(layer.Ambiguities) > 0 {
		chunks = append(chunks, models.SemanticChunk{
			ID:          chunkID(layer.Database, models.ChunkAmbiguities, ""),
			Database:    layer.Database,
			Kind:        models.ChunkAmbiguities,
			TextContent: strings.Join(layer.Ambiguities, "\n"),
		})
	}

	if len(layer.QueryGuidelines) > 0 {
		chunks = append(chunks, models.SemanticChunk{
			ID:          chunkID(layer.Database, models.ChunkGuidelines, ""),
			Database:    layer.Database,
			Kind:        models.ChunkGuidelines,
			TextContent: strings.Join(layer.QueryGuidelines, "\n"),
		})
	}

	return chunks
}

func chunkID(database string, kind models.ChunkKind, table string) string {
	if table == "" {
		return fmt.Sprintf("%s::%s", database, kind)
	}
	return fmt.Sprintf("%s::%s::%s", database, kind, table)
}

func renderOverview(o models.Overview) string {
	var b strings.Builder
	b.WriteString(o.Domain)
	if o.Purpose != "" {
		b.WriteString("\n")
		b.WriteString(o.Purpose)
	}
	if len(o.KeyEntities) > 0 {
		b.WriteString("\nKey entities: ")
		b.WriteString(strings.Join(o.KeyEntities, ", "))
	}
	if len(o.TypicalQuestions) > 0 {
		b.WriteString("\nTypical questions:\n")
		for _, q := range o.TypicalQuestions {
			b.WriteString("- ")
			b.WriteString(q)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTable(t models.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", t.Name, t.BusinessName)
	if t.Purpose != "" {
		b.WriteString(t.Purpose)
		b.WriteString("\n")
	}
	for _, col := range t.Columns {
		fmt.Fprintf(&b, "- %s: %s", col.Name, col.BusinessMeaning)
		if len(col.Synonyms) > 0 {
			fmt.Fprintf(&b, " (synonyms: %s)", strings.Join(col.Synonyms, ", "))
		}
		b.WriteString("\n")
	}
	for _, fk := range t.ForeignKeys {
		fmt.Fprintf(&b, "%s -> %s.%s\n", fk.LocalColumn, fk.RefTable, fk.RefColumn)
	}
	if len(t.SampleValues) > 0 {
		b.WriteString("Sample values:\n")
		cols := make([]string, 0, len(t.SampleValues))
		for c := range t.SampleValues {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			fmt.Fprintf(&b, "  %s: %s\n", c, strings.Join(t.SampleValues[c], ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderGlossary(g map[string]string) string {
	terms := make([]string, 0, len(g))
	for term := range g {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	var b strings.Builder
	for _, term := range terms {
		fmt.Fprintf(&b, "%s: %s\n", term, g[term])
	}
	return strings.TrimRight(b.String(), "\n")
}
