// Package prompt implements PromptAssembler: a pure function producing
// baseline and enhanced system/user prompt pairs from a schema snapshot and
// optional retrieved semantic context. No I/O, no randomness, no
// timestamps — identical inputs always produce byte-identical output
// (§8's prompt-determinism law).
package prompt

import (
	"fmt"
	"strings"

	"github.com/spiderbench/evalcore/pkg/models"
)

// Pair is the {system_prompt, user_prompt} result of Assemble.
type Pair struct {
	SystemPrompt string
	UserPrompt   string
}

const baselineInstruction = `You are a SQL generation assistant for the Spider text-to-SQL benchmark.
Given a database schema and a natural language question, emit a single valid SELECT query for the target dialect.
Rules:
- Output only SQL. No prose, no explanation, no markdown code fences.
- Use fully qualified table names with the schema prefix shown in the schema block.
- Emit exactly one statement.`

const enhancedGuidance = `Additional guidance:
- Preserve AND-semantics vs IN-list semantics: "X and Y" almost always means both conditions must hold (e.g. via JOIN/GROUP BY/HAVING COUNT), not a single IN-list membership test.
- Use DISTINCT when the question implies uniqueness of the result.
- When a column could live in more than one table, prefer the table identified in the semantic context as the authoritative source for that column.`

// Assemble builds the system/user prompt pair for mode. chunks is nil/empty
// for baseline. customInstructions, if non-empty, is appended verbatim to
// the system prompt.
func Assemble(question string, schema *models.Schema, mode models.RunMode, chunks []models.RetrievedChunk, customInstructions string) Pair {
	var sys strings.Builder
	sys.WriteString(baselineInstruction)
	if mode == models.ModeEnhanced {
		sys.WriteString("\n\n")
		sys.WriteString(enhancedGuidance)
	}
	if customInstructions != "" {
		sys.WriteString("\n\n")
		sys.WriteString(customInstructions)
	}

	var usr strings.Builder
	usr.WriteString("Schema:\n")
	usr.WriteString(renderSchema(schema))

	if mode == models.ModeEnhanced && len(chunks) > 0 {
		usr.WriteString("\n\nSemantic Context:\n")
		usr.WriteString(renderChunks(chunks))
	}

	usr.WriteString("\n\nQuestion: ")
	usr.WriteString(question)

	return Pair{SystemPrompt: sys.String(), UserPrompt: usr.String()}
}

// renderSchema renders a table-by-table DDL-like block: names, types,
// keys, FK arrows. Tables/columns are already alphabetized by
// SchemaExtractor, so output is stable for identical input.
func renderSchema(schema *models.Schema) string {
	var b strings.Builder
	for _, table := range schema.Tables {
		fmt.Fprintf(&b, "TABLE %s.%s (\n", schema.Database, table.Name)
		for i, col := range table.Columns {
			marker := ""
			if col.PrimaryKey {
				marker = " PRIMARY KEY"
			}
			nullable := "NOT NULL"
			if col.Nullable {
				nullable = "NULL"
			}
			sep := ","
			if i == len(table.Columns)-1 {
				sep = ""
			}
			fmt.Fprintf(&b, "  %s %s %s%s%s\n", col.Name, col.Type, nullable, marker, sep)
		}
		b.WriteString(")\n")
		for _, fk := range table.ForeignKeys {
			fmt.Fprintf(&b, "  FK %s.%s.%s -> %s.%s.%s\n",
				schema.Database, table.Name, fk.LocalColumn, schema.Database, fk.RefTable, fk.RefColumn)
		}
	}
	return b.String()
}

// renderChunks renders retrieved chunks in retrieval order, each tagged
// with its kind.
func renderChunks(chunks []models.RetrievedChunk) string {
	var b strings.Builder
	for i, rc := range chunks {
		fmt.Fprintf(&b, "[%s]", rc.Chunk.Kind)
		if rc.Chunk.TableName != "" {
			fmt.Fprintf(&b, " (%s)", rc.Chunk.TableName)
		}
		b.WriteString("\n")
		b.WriteString(rc.Chunk.TextContent)
		if i != len(chunks)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
