package runner

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiderbench/evalcore/pkg/cost"
	"github.com/spiderbench/evalcore/pkg/generation"
	"github.com/spiderbench/evalcore/pkg/judge"
	"github.com/spiderbench/evalcore/pkg/models"
	"github.com/spiderbench/evalcore/pkg/spider"
)

type fakeStore struct {
	mu          sync.Mutex
	running     bool
	progress    []models.ProgressDelta
	recorded    []*models.Result
	finalStatus models.RunStatus
	finalReason string
	status      models.RunStatus
}

func (f *fakeStore) MarkRunning(ctx context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	return nil
}

func (f *fakeStore) GetStatus(ctx context.Context, runID string) (*models.RunStatusView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := f.status
	if status == "" {
		status = models.RunRunning
	}
	return &models.RunStatusView{Status: status}, nil
}

func (f *fakeStore) UpdateProgress(ctx context.Context, runID string, delta models.ProgressDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, delta)
	return nil
}

func (f *fakeStore) RecordResult(ctx context.Context, r *models.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, r)
	return nil
}

func (f *fakeStore) FinalizeRun(ctx context.Context, runID string, final models.RunStatus, reason string, rollup *models.Rollup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalStatus = final
	f.finalReason = reason
	return nil
}

type fakeGenerator struct {
	sql string
	err error
}

func (f *fakeGenerator) GenerateBaseline(ctx context.Context, database, question string) (*generation.GenerationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &generation.GenerationResult{SQL: f.sql, CostUSD: 0.001, Model: "fake"}, nil
}

func (f *fakeGenerator) GenerateEnhanced(ctx context.Context, database, question string) (*generation.GenerationResult, error) {
	return f.GenerateBaseline(ctx, database, question)
}

type fakeJudgeExecutor struct{}

func (fakeJudgeExecutor) Execute(ctx context.Context, database, sql string) (*judge.Result, error) {
	return &judge.Result{Columns: []string{"c"}, Rows: [][]any{{1}}}, nil
}

func sampleQuestions(n int) []spider.Question {
	out := make([]spider.Question, n)
	for i := range out {
		out[i] = spider.Question{ID: "dev_0001", Database: "car_1", Text: "q", GoldSQL: "SELECT 1"}
	}
	return out
}

func TestRun_CompletesAndFinalizes(t *testing.T) {
	store := &fakeStore{}
	tracker := cost.New(5.0)
	gen := &fakeGenerator{sql: "SELECT 1"}
	r := New(store, tracker, fakeJudgeExecutor{}, gen, Config{
		RunID: "run-1", Mode: models.ModeBaseline, Questions: sampleQuestions(3), MaxParallel: 2,
	})

	err := r.Run(context.Background())
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.True(t, store.running)
	assert.Equal(t, models.RunCompleted, store.finalStatus)
	assert.Len(t, store.recorded, 3)
	assert.Len(t, store.progress, 3)
}

func TestRun_BudgetExceededFinalizesAsFailed(t *testing.T) {
	store := &fakeStore{}
	tracker := cost.New(0.0005)
	gen := &fakeGenerator{sql: "SELECT 1"}
	r := New(store, tracker, fakeJudgeExecutor{}, gen, Config{
		RunID: "run-2", Mode: models.ModeBaseline, Questions: sampleQuestions(5), MaxParallel: 1,
	})

	err := r.Run(context.Background())
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, models.RunFailed, store.finalStatus)
	assert.Equal(t, "budget_exceeded", store.finalReason)
}

func TestRun_CancelledMidRunFinalizesAsCancelled(t *testing.T) {
	store := &fakeStore{status: models.RunCancelled}
	tracker := cost.New(5.0)
	gen := &fakeGenerator{sql: "SELECT 1"}
	r := New(store, tracker, fakeJudgeExecutor{}, gen, Config{
		RunID: "run-3", Mode: models.ModeBaseline, Questions: sampleQuestions(5), MaxParallel: 1,
	})

	err := r.Run(context.Background())
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, models.RunCancelled, store.finalStatus)
	assert.Equal(t, "cancelled", store.finalReason)
	assert.Empty(t, store.recorded)
}

func TestRun_BothModesRecordsBaselineAndEnhanced(t *testing.T) {
	store := &fakeStore{}
	tracker := cost.New(5.0)
	gen := &fakeGenerator{sql: "SELECT 1"}
	r := New(store, tracker, fakeJudgeExecutor{}, gen, Config{
		RunID: "run-4", Mode: models.ModeBoth, Questions: sampleQuestions(1), MaxParallel: 1,
	})

	err := r.Run(context.Background())
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.recorded, 1)
	assert.NotNil(t, store.recorded[0].Baseline)
	assert.NotNil(t, store.recorded[0].Enhanced)
}

func TestRun_GenerationErrorRecordsModeErrorAndFailedDelta(t *testing.T) {
	store := &fakeStore{}
	tracker := cost.New(5.0)
	gen := &fakeGenerator{err: assertErr{}}
	r := New(store, tracker, fakeJudgeExecutor{}, gen, Config{
		RunID: "run-5", Mode: models.ModeBaseline, Questions: sampleQuestions(1), MaxParallel: 1,
	})

	err := r.Run(context.Background())
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.recorded, 1)
	assert.NotEmpty(t, store.recorded[0].Baseline.Error)
	require.Len(t, store.progress, 1)
	assert.Equal(t, 1, store.progress[0].FailedDelta)
}

type assertErr struct{}

func (assertErr) Error() string { return "generation failed" }
