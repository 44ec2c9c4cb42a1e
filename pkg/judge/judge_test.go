package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	results map[string]*Result
	errs    map[string]error
}

func (f *fakeExecutor) Execute(ctx context.Context, database, sql string) (*Result, error) {
	if err, ok := f.errs[sql]; ok {
		return nil, err
	}
	if r, ok := f.results[sql]; ok {
		return r, nil
	}
	return &Result{}, nil
}

func TestExecMatch_OrderedMatchWhenOrderByPresent(t *testing.T) {
	gold := "SELECT id FROM singer ORDER BY id"
	cand := "SELECT id FROM singer ORDER BY id"
	exec := &fakeExecutor{results: map[string]*Result{
		gold: {Columns: []string{"id"}, Rows: [][]any{{1}, {2}}},
		cand: {Columns: []string{"id"}, Rows: [][]any{{1}, {2}}},
	}}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	assert.True(t, v.Match)
}

func TestExecMatch_OrderedMismatchOnRowOrder(t *testing.T) {
	gold := "SELECT id FROM singer ORDER BY id"
	cand := "SELECT id FROM singer ORDER BY id"
	exec := &fakeExecutor{results: map[string]*Result{
		gold: {Columns: []string{"id"}, Rows: [][]any{{1}, {2}}},
		cand: {Columns: []string{"id"}, Rows: [][]any{{2}, {1}}},
	}}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	assert.False(t, v.Match)
}

func TestExecMatch_MultisetMatchIgnoresOrderWithoutOrderBy(t *testing.T) {
	gold := "SELECT id FROM singer"
	cand := "SELECT id FROM singer"
	exec := &fakeExecutor{results: map[string]*Result{
		gold: {Columns: []string{"id"}, Rows: [][]any{{1}, {2}}},
		cand: {Columns: []string{"id"}, Rows: [][]any{{2}, {1}}},
	}}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	assert.True(t, v.Match)
}

func TestExecMatch_NumericToleranceWithinBounds(t *testing.T) {
	gold := "SELECT avg(age) FROM singer"
	cand := "SELECT avg(age) FROM singer"
	exec := &fakeExecutor{results: map[string]*Result{
		gold: {Columns: []string{"avg"}, Rows: [][]any{{1.000000}}},
		cand: {Columns: []string{"avg"}, Rows: [][]any{{1.0000001}}},
	}}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	assert.True(t, v.Match)
}

func TestExecMatch_NumericDifferenceBeyondToleranceFails(t *testing.T) {
	gold := "SELECT avg(age) FROM singer"
	cand := "SELECT avg(age) FROM singer"
	exec := &fakeExecutor{results: map[string]*Result{
		gold: {Columns: []string{"avg"}, Rows: [][]any{{1.0}}},
		cand: {Columns: []string{"avg"}, Rows: [][]any{{1.1}}},
	}}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	assert.False(t, v.Match)
}

func TestExecMatch_ColumnCountMismatch(t *testing.T) {
	gold := "SELECT id, name FROM singer"
	cand := "SELECT id FROM singer"
	exec := &fakeExecutor{results: map[string]*Result{
		gold: {Columns: []string{"id", "name"}, Rows: [][]any{{1, "a"}}},
		cand: {Columns: []string{"id"}, Rows: [][]any{{1}}},
	}}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	assert.False(t, v.Match)
	assert.NotEmpty(t, v.CandError)
}

func TestExecMatch_AsymmetricTruncationFails(t *testing.T) {
	gold := "SELECT id FROM singer"
	cand := "SELECT id FROM singer"
	exec := &fakeExecutor{results: map[string]*Result{
		gold: {Columns: []string{"id"}, Rows: [][]any{{1}, {2}}, Truncated: false},
		cand: {Columns: []string{"id"}, Rows: [][]any{{1}, {2}}, Truncated: true},
	}}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	assert.False(t, v.Match)
}

func TestExecMatch_GoldErrorPropagates(t *testing.T) {
	gold := "SELECT bogus FROM singer"
	cand := "SELECT id FROM singer"
	exec := &fakeExecutor{
		errs:    map[string]error{gold: errors.New("no such column")},
		results: map[string]*Result{cand: {Columns: []string{"id"}, Rows: [][]any{{1}}}},
	}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	assert.False(t, v.Match)
	assert.Equal(t, "no such column", v.GoldError)
	assert.Empty(t, v.CandError)
}

func TestExecMatch_CandErrorPropagates(t *testing.T) {
	gold := "SELECT id FROM singer"
	cand := "SELECT bogus FROM singer"
	exec := &fakeExecutor{
		errs:    map[string]error{cand: errors.New("no such column")},
		results: map[string]*Result{gold: {Columns: []string{"id"}, Rows: [][]any{{1}}}},
	}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	assert.False(t, v.Match)
	assert.Equal(t, "no such column", v.CandError)
}

func TestExecMatch_EmptyResultSetsMatch(t *testing.T) {
	gold := "SELECT id FROM singer WHERE 1=0"
	cand := "SELECT id FROM singer WHERE 1=0"
	exec := &fakeExecutor{results: map[string]*Result{
		gold: {Columns: []string{"id"}, Rows: [][]any{}},
		cand: {Columns: []string{"id"}, Rows: [][]any{}},
	}}

	v := ExecMatch(context.Background(), exec, "world_1", gold, cand)
	require.True(t, v.Match)
}
