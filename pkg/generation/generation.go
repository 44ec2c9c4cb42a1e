// Package generation implements GenerationPipeline: the baseline and
// enhanced SQL-generation flows, collapsed to the non-streaming,
// non-tool-calling shape of the teacher's
// pkg/agent/controller/single_shot.go (build prompt, make one LLM call,
// extract a result) since this domain never streams and never calls tools.
package generation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"log/slog"

	"github.com/spiderbench/evalcore/pkg/llm"
	"github.com/spiderbench/evalcore/pkg/models"
	"github.com/spiderbench/evalcore/pkg/prompt"
)

const (
	taskBaseline = "baseline_sql"
	taskEnhanced = "enhanced_sql"
)

// GenerationResult is the outcome of one generate_baseline/generate_enhanced
// call, per spec.md §4.8.
type GenerationResult struct {
	SQL                 string
	Explanation         string
	TokensPrompt        int
	TokensCompletion    int
	CostUSD             float64
	Model               string
	GenerationTimeMS    int64
	SemanticChunksUsed  int
	HasSemanticContext  bool
	FellBackToBaseline  bool
}

// SchemaSource is the narrow slice of SchemaExtractor this pipeline needs.
type SchemaSource interface {
	Extract(ctx context.Context, database string) (*models.Schema, error)
}

// ContextSource is the narrow slice of SemanticRetriever this pipeline
// needs.
type ContextSource interface {
	Retrieve(ctx context.Context, database, question string, topK int) ([]models.RetrievedChunk, error)
}

// Pipeline wires SchemaExtractor, SemanticRetriever, PromptAssembler and
// LLMClient into the two generation variants. The two variants share the
// bulk of their code; only retrieval and the context-too-large fallback
// differ.
type Pipeline struct {
	Schema    SchemaSource
	Retriever ContextSource
	LLM       llm.Client
	TopK      int
}

// New builds a Pipeline. topK bounds how many semantic chunks
// generate_enhanced retrieves per question.
func New(schema SchemaSource, retriever ContextSource, client llm.Client, topK int) *Pipeline {
	return &Pipeline{Schema: schema, Retriever: retriever, LLM: client, TopK: topK}
}

// GenerateBaseline builds the baseline prompt and returns the extracted SQL.
func (p *Pipeline) GenerateBaseline(ctx context.Context, database, question string) (*GenerationResult, error) {
	start := time.Now()

	schema, err := p.Schema.Extract(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("extract schema for %q: %w", database, err)
	}

	pair := prompt.Assemble(question, schema, models.ModeBaseline, nil, "")
	return p.complete(ctx, taskBaseline, pair, start, nil)
}

// GenerateEnhanced retrieves semantic context, assembles the enhanced
// prompt and returns the extracted SQL. An empty index degrades to
// baseline generation with a logged warning rather than an error — §4.8.
// On CONTEXT_TOO_LARGE it progressively drops the lowest-scored chunks and
// retries once; if still too large it drops all chunks and falls back to
// the baseline prompt, flagging the result.
func (p *Pipeline) GenerateEnhanced(ctx context.Context, database, question string) (*GenerationResult, error) {
	start := time.Now()

	schema, err := p.Schema.Extract(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("extract schema for %q: %w", database, err)
	}

	chunks, err := p.Retriever.Retrieve(ctx, database, question, p.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve semantic context for %q: %w", database, err)
	}
	if len(chunks) == 0 {
		slog.Warn("semantic index empty, degrading to baseline", "database", database)
		pair := prompt.Assemble(question, schema, models.ModeBaseline, nil, "")
		return p.complete(ctx, taskBaseline, pair, start, nil)
	}

	pair := prompt.Assemble(question, schema, models.ModeEnhanced, chunks, "")
	result, err := p.complete(ctx, taskEnhanced, pair, start, chunks)
	if err == nil {
		return result, nil
	}

	e, ok := err.(*llm.Error)
	if !ok || e.Kind != llm.ErrContextTooLarge {
		return nil, err
	}

	dropped := dropLowestScored(chunks)
	if len(dropped) > 0 {
		pair = prompt.Assemble(question, schema, models.ModeEnhanced, dropped, "")
		result, err = p.complete(ctx, taskEnhanced, pair, start, dropped)
		if err == nil {
			return result, nil
		}
		e, ok = err.(*llm.Error)
		if !ok || e.Kind != llm.ErrContextTooLarge {
			return nil, err
		}
	}

	pair = prompt.Assemble(question, schema, models.ModeBaseline, nil, "")
	result, err = p.complete(ctx, taskBaseline, pair, start, nil)
	if err != nil {
		return nil, err
	}
	result.FellBackToBaseline = true
	return result, nil
}

// dropLowestScored keeps the top-scoring half (rounded down) of chunks ranked
// by score, so at least one chunk is removed and zero or one chunk yields
// none, preserving the relative retrieval order of the survivors.
func dropLowestScored(chunks []models.RetrievedChunk) []models.RetrievedChunk {
	if len(chunks) <= 1 {
		return nil
	}
	ranked := make([]models.RetrievedChunk, len(chunks))
	copy(ranked, chunks)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	keep := len(ranked) / 2
	if keep == 0 {
		keep = 1
	}
	survivors := make(map[string]bool, keep)
	for _, rc := range ranked[:keep] {
		survivors[rc.Chunk.ID] = true
	}

	out := make([]models.RetrievedChunk, 0, keep)
	for _, rc := range chunks {
		if survivors[rc.Chunk.ID] {
			out = append(out, rc)
		}
	}
	return out
}

func (p *Pipeline) complete(ctx context.Context, task string, pair prompt.Pair, start time.Time, chunks []models.RetrievedChunk) (*GenerationResult, error) {
	resp, err := p.LLM.Complete(ctx, task, pair.SystemPrompt, pair.UserPrompt, llm.Options{})
	if err != nil {
		return nil, err
	}

	return &GenerationResult{
		SQL:                extractSQL(resp.Text),
		TokensPrompt:       resp.TokensPrompt,
		TokensCompletion:   resp.TokensCompletion,
		CostUSD:            resp.CostUSD,
		Model:              resp.ModelName,
		GenerationTimeMS:   time.Since(start).Milliseconds(),
		SemanticChunksUsed: len(chunks),
		HasSemanticContext: len(chunks) > 0,
	}, nil
}

// extractSQL strips Markdown code fences, keeps the first statement and
// trims surrounding whitespace, per §4.8 step 5.
func extractSQL(text string) string {
	s := strings.TrimSpace(text)
	s = stripCodeFences(s)
	s = firstStatement(s)
	return strings.TrimSpace(s)
}

func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	start := strings.Index(s, "```")
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		first := strings.TrimSpace(rest[:nl])
		if first != "" && !strings.ContainsAny(first, " \t") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func firstStatement(s string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(s), ";")
	if idx := strings.Index(trimmed, ";"); idx != -1 {
		return trimmed[:idx]
	}
	return trimmed
}
