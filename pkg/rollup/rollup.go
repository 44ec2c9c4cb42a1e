// Package rollup computes the aggregate metrics finalize_run stores on a
// Run: per-mode exact/exec match rates plus per-database and
// per-difficulty breakdowns, per spec.md §3/§4.11. Pure functions over a
// Run's accumulated Results, mirroring the small aggregation helper shape
// of pkg/config's Config.Stats().
package rollup

import (
	"github.com/spiderbench/evalcore/pkg/models"
)

// Compute builds the full Rollup for a completed set of Results: overall
// per-mode metrics plus per-database and per-difficulty breakdowns. An
// empty results slice yields a Rollup with nil mode rollups, matching the
// spec's "question set empty" boundary case.
func Compute(results []*models.Result) *models.Rollup {
	r := &models.Rollup{}

	r.Baseline = modeRollup(results, func(res *models.Result) *models.ModeResult { return res.Baseline })
	r.Enhanced = modeRollup(results, func(res *models.Result) *models.ModeResult { return res.Enhanced })

	byDatabase := groupBy(results, func(res *models.Result) string { return res.Database })
	if len(byDatabase) > 0 {
		r.ByDatabase = make(map[string]*models.Rollup, len(byDatabase))
		for key, group := range byDatabase {
			r.ByDatabase[key] = Compute(group)
		}
	}

	byDifficulty := groupBy(results, func(res *models.Result) string { return string(res.Difficulty) })
	if len(byDifficulty) > 0 {
		r.ByDifficulty = make(map[models.Difficulty]*models.Rollup, len(byDifficulty))
		for key, group := range byDifficulty {
			r.ByDifficulty[models.Difficulty(key)] = Compute(group)
		}
	}

	return r
}

func modeRollup(results []*models.Result, pick func(*models.Result) *models.ModeResult) *models.ModeRollup {
	var total, exactCorrect, execCorrect int
	var totalCost float64

	for _, res := range results {
		mr := pick(res)
		if mr == nil {
			continue
		}
		total++
		totalCost += mr.CostUSD
		if mr.ExactMatch {
			exactCorrect++
		}
		if mr.ExecMatch {
			execCorrect++
		}
	}

	if total == 0 {
		return nil
	}

	return &models.ModeRollup{
		ExactMatchRate: float64(exactCorrect) / float64(total),
		ExecMatchRate:  float64(execCorrect) / float64(total),
		CorrectCount:   execCorrect,
		TotalCount:     total,
		TotalCostUSD:   totalCost,
	}
}

func groupBy(results []*models.Result, key func(*models.Result) string) map[string][]*models.Result {
	groups := make(map[string][]*models.Result)
	for _, res := range results {
		k := key(res)
		if k == "" {
			continue
		}
		groups[k] = append(groups[k], res)
	}
	return groups
}
