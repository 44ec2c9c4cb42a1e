package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiderbench/evalcore/pkg/apperrors"
	"github.com/spiderbench/evalcore/pkg/models"
)

func TestTracker_RecordAccumulatesPerMode(t *testing.T) {
	tr := New(5.00)

	require.NoError(t, tr.Record(models.ModeBaseline, 0.01))
	require.NoError(t, tr.Record(models.ModeEnhanced, 0.02))

	snap := tr.Snapshot()
	assert.InDelta(t, 0.01, snap.BaselineCost, 1e-9)
	assert.InDelta(t, 0.02, snap.EnhancedCost, 1e-9)
	assert.InDelta(t, 0.03, snap.TotalCost, 1e-9)
}

func TestTracker_RecordExceedsCeiling(t *testing.T) {
	tr := New(0.01)

	err := tr.Record(models.ModeEnhanced, 0.02)
	require.ErrorIs(t, err, apperrors.ErrBudgetExceeded)

	// Overshoot is still recorded exactly once.
	assert.InDelta(t, 0.02, tr.Snapshot().TotalCost, 1e-9)
	assert.True(t, tr.Exceeded())
}

func TestTracker_ExceededFalseUnderCeiling(t *testing.T) {
	tr := New(5.00)
	require.NoError(t, tr.Record(models.ModeBaseline, 1.00))
	assert.False(t, tr.Exceeded())
}
