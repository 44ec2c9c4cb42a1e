// Package runner implements BenchmarkRunner: the per-Run orchestration
// loop that drives question generation, judging, cost accounting and
// progress persistence to completion or cancellation, per spec.md §4.11.
//
// Grounded on the teacher's pkg/queue/{worker.go,pool.go} for the
// poll-and-dispatch shape (per-session context, heartbeat progress,
// graceful stop) and on the cloud-gpu-shopper benchmark runner for the
// budget-checked bounded-worker dispatch loop.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spiderbench/evalcore/pkg/apperrors"
	"github.com/spiderbench/evalcore/pkg/cost"
	"github.com/spiderbench/evalcore/pkg/generation"
	"github.com/spiderbench/evalcore/pkg/judge"
	"github.com/spiderbench/evalcore/pkg/models"
	"github.com/spiderbench/evalcore/pkg/rollup"
	"github.com/spiderbench/evalcore/pkg/spider"
)

// maxParallelCeiling bounds per-question parallelism regardless of what a
// caller requests, per spec.md §5 ("≤8").
const maxParallelCeiling = 8

// Store is the narrow slice of MetadataStore the Runner needs.
type Store interface {
	MarkRunning(ctx context.Context, runID string) error
	GetStatus(ctx context.Context, runID string) (*models.RunStatusView, error)
	UpdateProgress(ctx context.Context, runID string, delta models.ProgressDelta) error
	RecordResult(ctx context.Context, r *models.Result) error
	FinalizeRun(ctx context.Context, runID string, final models.RunStatus, reason string, rollup *models.Rollup) error
}

// Generator is the narrow slice of GenerationPipeline the Runner needs.
type Generator interface {
	GenerateBaseline(ctx context.Context, database, question string) (*generation.GenerationResult, error)
	GenerateEnhanced(ctx context.Context, database, question string) (*generation.GenerationResult, error)
}

// Config parameterizes one Runner invocation.
type Config struct {
	RunID       string
	Mode        models.RunMode
	Questions   []spider.Question
	MaxParallel int
}

// Runner owns exactly one Run. Distinct Runs must use distinct Runners and
// distinct CostTrackers (§5).
type Runner struct {
	store     Store
	tracker   *cost.Tracker
	executor  judge.Executor
	generator Generator
	cfg       Config

	mu      sync.Mutex
	results []*models.Result
}

// New builds a Runner for one Run.
func New(store Store, tracker *cost.Tracker, executor judge.Executor, generator Generator, cfg Config) *Runner {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	if cfg.MaxParallel > maxParallelCeiling {
		cfg.MaxParallel = maxParallelCeiling
	}
	return &Runner{store: store, tracker: tracker, executor: executor, generator: generator, cfg: cfg}
}

// Run executes the Run to a terminal state: completed, cancelled (if
// observed mid-run), or failed (on a catastrophic store failure). It
// returns only on a finalize failure severe enough that the caller should
// log and exit non-zero, per §7's "catastrophic" error class.
func (r *Runner) Run(ctx context.Context) error {
	log := slog.With("run_id", r.cfg.RunID)

	if err := r.store.MarkRunning(ctx, r.cfg.RunID); err != nil {
		return r.finalizeOrFail(ctx, models.RunFailed, "fatal_error: "+err.Error())
	}

	status, reason := r.dispatch(ctx, log)

	rollupResult := rollup.Compute(r.snapshotResults())
	if err := r.store.FinalizeRun(ctx, r.cfg.RunID, status, reason, rollupResult); err != nil {
		log.Error("failed to finalize run", "error", err)
		return fmt.Errorf("finalize run %s: %w", r.cfg.RunID, err)
	}
	return nil
}

// dispatch runs the bounded-parallelism question loop and returns the
// terminal status and reason to finalize with.
func (r *Runner) dispatch(ctx context.Context, log *slog.Logger) (models.RunStatus, string) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.MaxParallel)

	for _, q := range r.cfg.Questions {
		status, err := r.store.GetStatus(ctx, r.cfg.RunID)
		if err == nil && status.Status == models.RunCancelled {
			break
		}
		if r.tracker.Exceeded() {
			log.Warn("budget exceeded, stopping dispatch")
			_ = eg.Wait()
			return models.RunFailed, "budget_exceeded"
		}
		if ctx.Err() != nil {
			break
		}

		question := q
		eg.Go(func() error {
			r.processQuestion(egCtx, log, question)
			return nil
		})
	}

	_ = eg.Wait()

	final, err := r.store.GetStatus(ctx, r.cfg.RunID)
	if err == nil && final.Status == models.RunCancelled {
		return models.RunCancelled, "cancelled"
	}
	if r.tracker.Exceeded() {
		return models.RunFailed, "budget_exceeded"
	}
	return models.RunCompleted, ""
}

// processQuestion generates, judges and records the result for one
// question, covering whichever mode(s) this Run exercises.
func (r *Runner) processQuestion(ctx context.Context, log *slog.Logger, q spider.Question) {
	result := &models.Result{
		RunID:      r.cfg.RunID,
		QuestionID: q.ID,
		Database:   q.Database,
		Question:   q.Text,
		GoldSQL:    q.GoldSQL,
		Difficulty: q.Difficulty,
	}

	var failed bool

	if r.cfg.Mode == models.ModeBaseline || r.cfg.Mode == models.ModeBoth {
		mr := r.runMode(ctx, models.ModeBaseline, q)
		result.Baseline = mr
		if mr.Error != "" {
			failed = true
		}
	}
	if r.cfg.Mode == models.ModeEnhanced || r.cfg.Mode == models.ModeBoth {
		mr := r.runMode(ctx, models.ModeEnhanced, q)
		result.Enhanced = mr
		if mr.Error != "" {
			failed = true
		}
	}

	if err := r.store.RecordResult(ctx, result); err != nil {
		log.Error("failed to record result", "question_id", q.ID, "error", err)
		failed = true
	}

	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()

	delta := models.ProgressDelta{CurrentQuestion: q.Text}
	if failed {
		delta.FailedDelta = 1
	} else {
		delta.CompletedDelta = 1
	}
	if result.Baseline != nil {
		delta.BaselineCostDelta = result.Baseline.CostUSD
	}
	if result.Enhanced != nil {
		delta.EnhancedCostDelta = result.Enhanced.CostUSD
	}
	if err := r.store.UpdateProgress(ctx, r.cfg.RunID, delta); err != nil {
		log.Error("failed to update progress", "question_id", q.ID, "error", err)
	}
}

// runMode generates and judges a single question under one mode, recording
// its cost against the tracker. Generation/judging failures are captured in
// ModeResult.Error rather than aborting the question.
func (r *Runner) runMode(ctx context.Context, mode models.RunMode, q spider.Question) *models.ModeResult {
	mr := &models.ModeResult{}
	start := time.Now()

	var genResult *generation.GenerationResult
	var err error
	if mode == models.ModeBaseline {
		genResult, err = r.generator.GenerateBaseline(ctx, q.Database, q.Text)
	} else {
		genResult, err = r.generator.GenerateEnhanced(ctx, q.Database, q.Text)
	}
	if err != nil {
		mr.Error = err.Error()
		mr.ExecutionTimeMS = time.Since(start).Milliseconds()
		return mr
	}

	mr.SQL = genResult.SQL
	mr.TokensPrompt = genResult.TokensPrompt
	mr.TokensCompletion = genResult.TokensCompletion
	mr.CostUSD = genResult.CostUSD
	mr.SemanticChunksUsed = genResult.SemanticChunksUsed
	mr.HasSemanticContext = genResult.HasSemanticContext

	if err := r.tracker.Record(mode, genResult.CostUSD); err != nil && !errors.Is(err, apperrors.ErrBudgetExceeded) {
		mr.Error = err.Error()
	}

	mr.ExactMatch = judge.ExactMatch(q.GoldSQL, genResult.SQL, q.Database)
	verdict := judge.ExecMatch(ctx, r.executor, q.Database, q.GoldSQL, genResult.SQL)
	mr.ExecMatch = verdict.Match
	if verdict.CandError != "" {
		mr.Error = verdict.CandError
	}

	mr.ExecutionTimeMS = time.Since(start).Milliseconds()
	return mr
}

func (r *Runner) snapshotResults() []*models.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Result, len(r.results))
	copy(out, r.results)
	return out
}

// finalizeOrFail attempts one final finalize_run(failed, reason) call,
// per §7's catastrophic-failure path: "the Runner attempts one final
// finalize_run; if that fails, logs and exits non-zero."
func (r *Runner) finalizeOrFail(ctx context.Context, status models.RunStatus, reason string) error {
	if err := r.store.FinalizeRun(ctx, r.cfg.RunID, status, reason, nil); err != nil {
		return fmt.Errorf("catastrophic failure finalizing run %s: %w", r.cfg.RunID, err)
	}
	return nil
}
