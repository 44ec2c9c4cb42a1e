package judge

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Result carries a row-set from either QueryExecutor or any source the
// judge can compare. Defined locally (rather than importing pkg/executor)
// to keep the judge decoupled from the executor's connection-pool
// concerns — callers adapt executor.Result into this shape.
type Result struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
}

// Executor is the narrow slice of QueryExecutor the judge needs.
type Executor interface {
	Execute(ctx context.Context, database, sql string) (*Result, error)
}

// ExecVerdict is the outcome of comparing a candidate's and gold's
// executed rowsets.
type ExecVerdict struct {
	Match      bool
	GoldError  string
	CandError  string
	GoldMS     int64
	CandMS     int64
}

var orderByPattern = regexp.MustCompile(`(?i)\border\s+by\b`)

// ExecMatch executes gold and candidate against database via exec, and
// compares the result sets per spec.md §4.9. It never returns an error
// itself — execution failures are recorded in the verdict's error fields
// and make Match false.
func ExecMatch(ctx context.Context, exec Executor, database, gold, candidate string) ExecVerdict {
	goldRes, goldErr := exec.Execute(ctx, database, gold)
	candRes, candErr := exec.Execute(ctx, database, candidate)

	v := ExecVerdict{}
	if goldErr != nil {
		v.GoldError = goldErr.Error()
	}
	if candErr != nil {
		v.CandError = candErr.Error()
	}
	if goldErr != nil || candErr != nil {
		return v
	}

	if len(goldRes.Columns) != len(candRes.Columns) {
		v.CandError = fmt.Sprintf("column count mismatch: gold=%d candidate=%d", len(goldRes.Columns), len(candRes.Columns))
		return v
	}

	if goldRes.Truncated || candRes.Truncated {
		if goldRes.Truncated != candRes.Truncated || len(goldRes.Rows) != len(candRes.Rows) {
			v.CandError = "result truncated asymmetrically"
			return v
		}
	}

	ordered := orderByPattern.MatchString(gold)
	if ordered {
		v.Match = rowsEqualOrdered(goldRes.Rows, candRes.Rows)
	} else {
		v.Match = rowsEqualAsMultiset(goldRes.Rows, candRes.Rows)
	}
	return v
}

func rowsEqualOrdered(a, b [][]any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !rowEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func rowsEqualAsMultiset(a, b [][]any) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ra := range a {
		found := false
		for j, rb := range b {
			if used[j] {
				continue
			}
			if rowEqual(ra, rb) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func rowEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !cellEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

const numericTolerance = 1e-6

func cellEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return math.Abs(af-bf) <= numericTolerance
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.TrimSpace(as) == strings.TrimSpace(bs)
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
