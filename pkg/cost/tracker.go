// Package cost implements CostTracker: a process-wide, mutex-guarded
// running total scoped to a single Run, enforcing a hard budget ceiling.
package cost

import (
	"fmt"
	"sync"

	"github.com/spiderbench/evalcore/pkg/apperrors"
	"github.com/spiderbench/evalcore/pkg/models"
)

// Snapshot is the point-in-time view returned by Tracker.Snapshot.
type Snapshot struct {
	BaselineCost float64
	EnhancedCost float64
	TotalCost    float64
}

// Tracker accumulates cost for one Run. Distinct Runs must never share a
// Tracker (§5 of the spec).
type Tracker struct {
	mu      sync.Mutex
	ceiling float64
	cost    map[models.RunMode]float64
}

// New creates a Tracker with the given budget ceiling in USD.
func New(ceiling float64) *Tracker {
	return &Tracker{
		ceiling: ceiling,
		cost:    map[models.RunMode]float64{models.ModeBaseline: 0, models.ModeEnhanced: 0},
	}
}

// Record adds costUSD to the running total for mode. If the post-add total
// exceeds the ceiling, it returns apperrors.ErrBudgetExceeded — the delta is
// still recorded, so the caller's snapshot reflects the overshoot exactly
// once (§8 testable property: "observed once and never again").
func (t *Tracker) Record(mode models.RunMode, costUSD float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cost[mode] += costUSD
	total := t.cost[models.ModeBaseline] + t.cost[models.ModeEnhanced]
	if total > t.ceiling {
		return fmt.Errorf("%w: total %.6f exceeds ceiling %.6f", apperrors.ErrBudgetExceeded, total, t.ceiling)
	}
	return nil
}

// Snapshot returns the current per-mode and total cost.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		BaselineCost: t.cost[models.ModeBaseline],
		EnhancedCost: t.cost[models.ModeEnhanced],
		TotalCost:    t.cost[models.ModeBaseline] + t.cost[models.ModeEnhanced],
	}
}

// Exceeded reports whether the current total already exceeds the ceiling,
// without recording anything. The Runner polls this once per mode per
// question (§5 "Suspension points").
func (t *Tracker) Exceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cost[models.ModeBaseline]+t.cost[models.ModeEnhanced] > t.ceiling
}

// Ceiling returns the configured budget ceiling.
func (t *Tracker) Ceiling() float64 {
	return t.ceiling
}
