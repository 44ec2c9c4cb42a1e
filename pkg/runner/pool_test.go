package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiderbench/evalcore/pkg/cost"
	"github.com/spiderbench/evalcore/pkg/models"
)

type fakeListRunsStore struct {
	runs []*models.RunSummary
}

func (f *fakeListRunsStore) ListRuns(ctx context.Context, filters models.RunFilters) ([]*models.RunSummary, error) {
	return f.runs, nil
}

func TestPool_StartTracksAndClearsCancelEntry(t *testing.T) {
	store := &fakeStore{}
	tracker := cost.New(5.0)
	gen := &fakeGenerator{sql: "SELECT 1"}
	r := New(store, tracker, fakeJudgeExecutor{}, gen, Config{
		RunID: "run-pool-1", Mode: models.ModeBaseline, Questions: sampleQuestions(1), MaxParallel: 1,
	})

	pool := NewPool(&fakeListRunsStore{})

	var wg sync.WaitGroup
	wg.Add(1)
	pool.Start(context.Background(), r, func(err error) { wg.Done() })

	assert.Eventually(t, func() bool { return pool.Active("run-pool-1") }, time.Second, time.Millisecond)
	wg.Wait()
	assert.Eventually(t, func() bool { return !pool.Active("run-pool-1") }, time.Second, time.Millisecond)
}

func TestPool_CancelUnknownRunReturnsFalse(t *testing.T) {
	pool := NewPool(&fakeListRunsStore{})
	assert.False(t, pool.Cancel("no-such-run"))
}

func TestPool_ListStaleRunningFiltersByAge(t *testing.T) {
	old := &models.RunSummary{ID: "old", Status: models.RunRunning, CreatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := &models.RunSummary{ID: "fresh", Status: models.RunRunning, CreatedAt: time.Now()}
	store := &fakeListRunsStore{runs: []*models.RunSummary{old, fresh}}
	pool := NewPool(store)

	stale, err := pool.ListStaleRunning(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
}
