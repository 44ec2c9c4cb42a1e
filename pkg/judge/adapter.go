package judge

import (
	"context"

	"github.com/spiderbench/evalcore/pkg/executor"
)

// ExecutorAdapter wraps *executor.Executor to satisfy the judge's narrow
// Executor interface, translating executor.Result into judge.Result.
type ExecutorAdapter struct {
	Exec *executor.Executor
}

// Execute implements Executor.
func (a *ExecutorAdapter) Execute(ctx context.Context, database, sql string) (*Result, error) {
	r, err := a.Exec.Execute(ctx, database, sql)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: r.Columns, Rows: r.Rows, Truncated: r.Truncated}, nil
}
