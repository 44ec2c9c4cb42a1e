package models

// SemanticLayer is a versioned, out-of-band-authored document describing a
// database in natural language. Produced by a separate batch job; consumed
// read-only here.
type SemanticLayer struct {
	Connection string   `json:"connection"`
	Database   string    `json:"database"`
	Version    int       `json:"version"`
	Overview   Overview  `json:"overview"`
	Tables     []Table   `json:"tables"`
	CrossTableInsights []string          `json:"cross_table_insights"`
	DomainGlossary     map[string]string `json:"domain_glossary"`
	Ambiguities        []string          `json:"ambiguities"`
	QueryGuidelines    []string          `json:"query_guidelines"`
}

// Overview is the semantic layer's top-level domain summary.
type Overview struct {
	Domain           string   `json:"domain"`
	Purpose          string   `json:"purpose"`
	KeyEntities      []string `json:"key_entities"`
	TypicalQuestions []string `json:"typical_questions"`
}

// Table documents one table of a SemanticLayer.
type Table struct {
	Name         string       `json:"name"`
	BusinessName string       `json:"business_name"`
	Purpose      string       `json:"purpose"`
	Columns      []ColumnDoc  `json:"columns"`
	ForeignKeys  []ForeignKey `json:"foreign_keys"`
	SampleValues map[string][]string `json:"sample_values,omitempty"`
}

// ColumnDoc documents one column's business meaning.
type ColumnDoc struct {
	Name            string   `json:"name"`
	BusinessMeaning string   `json:"business_meaning"`
	Synonyms        []string `json:"synonyms,omitempty"`
}

// ForeignKey is a documented relationship local_col -> ref_table.ref_col.
type ForeignKey struct {
	LocalColumn string `json:"local_column"`
	RefTable    string `json:"ref_table"`
	RefColumn   string `json:"ref_column"`
}

// ChunkKind enumerates the six chunk taxonomies produced from a SemanticLayer.
type ChunkKind string

const (
	ChunkOverview    ChunkKind = "overview"
	ChunkTable       ChunkKind = "table"
	ChunkCrossTable  ChunkKind = "cross_table"
	ChunkGlossary    ChunkKind = "glossary"
	ChunkAmbiguities ChunkKind = "ambiguities"
	ChunkGuidelines  ChunkKind = "guidelines"
)

// SemanticChunk is a derived, embeddable fragment of a SemanticLayer.
type SemanticChunk struct {
	ID         string    `json:"id"`
	Database   string    `json:"database"`
	Kind       ChunkKind `json:"kind"`
	TableName  string    `json:"table_name,omitempty"`
	TextContent string   `json:"text_content"`
	Embedding  []float32 `json:"-"`
}

// RetrievedChunk is a SemanticChunk annotated with its similarity score,
// used to preserve retrieval order and support progressive chunk-drop.
type RetrievedChunk struct {
	Chunk SemanticChunk
	Score float32
}
