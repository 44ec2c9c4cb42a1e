// Package models contains the plain data types shared across the store,
// runner, and API layers: Runs, Results, SemanticLayers, and schema
// snapshots.
package models

import "time"

// RunMode selects which generation pipeline(s) a Run exercises.
type RunMode string

const (
	ModeBaseline RunMode = "baseline"
	ModeEnhanced RunMode = "enhanced"
	ModeBoth     RunMode = "both"
)

// RunStatus is a Run's lifecycle state.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Difficulty is a Spider question's categorical hardness label.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExtra  Difficulty = "extra"
)

// CreateRunRequest specifies a new benchmark Run.
type CreateRunRequest struct {
	Name           string   `json:"name"`
	Mode           RunMode  `json:"run_type"`
	Databases      []string `json:"databases,omitempty"`
	QuestionLimit  *int     `json:"question_limit,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	BudgetCeiling  *float64 `json:"budget_ceiling_usd,omitempty"`
}

// ModeRollup holds per-mode aggregate metrics.
type ModeRollup struct {
	ExactMatchRate float64 `json:"exact_match_rate"`
	ExecMatchRate  float64 `json:"exec_match_rate"`
	CorrectCount   int     `json:"correct_count"`
	TotalCount     int     `json:"total_count"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
}

// Rollup holds the full rollup computed at finalize time: overall per-mode
// metrics plus per-database and per-difficulty breakdowns.
type Rollup struct {
	Baseline      *ModeRollup           `json:"baseline,omitempty"`
	Enhanced      *ModeRollup           `json:"enhanced,omitempty"`
	ByDatabase    map[string]*Rollup    `json:"by_database,omitempty"`
	ByDifficulty  map[Difficulty]*Rollup `json:"by_difficulty,omitempty"`
	TotalWallTime int64                 `json:"total_wall_time_ms"`
}

// Run is a single benchmark execution.
type Run struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Mode           RunMode    `json:"run_type"`
	Databases      []string   `json:"databases,omitempty"`
	QuestionCount  int        `json:"question_count"`
	Status         RunStatus  `json:"status"`
	CompletedCount int        `json:"completed_count"`
	FailedCount    int        `json:"failed_count"`
	CurrentQuestion string    `json:"current_question,omitempty"`
	BudgetCeiling  float64    `json:"budget_ceiling_usd"`
	BaselineCost   float64    `json:"baseline_cost_usd"`
	EnhancedCost   float64    `json:"enhanced_cost_usd"`
	TotalCost      float64    `json:"total_cost_usd"`
	Rollup         *Rollup    `json:"rollup,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
}

// RunSummary is the condensed view returned by list_runs.
type RunSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Mode           RunMode   `json:"run_type"`
	Status         RunStatus `json:"status"`
	QuestionCount  int       `json:"question_count"`
	CompletedCount int       `json:"completed_count"`
	FailedCount    int       `json:"failed_count"`
	TotalCost      float64   `json:"total_cost_usd"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunStatusView is the shape returned by GET .../status.
type RunStatusView struct {
	ID                     string    `json:"id"`
	Status                 RunStatus `json:"status"`
	Progress               float64   `json:"progress"`
	CompletedCount         int       `json:"completed_count"`
	FailedCount            int       `json:"failed_count"`
	QuestionCount          int       `json:"question_count"`
	CurrentQuestion        string    `json:"current_question,omitempty"`
	TotalCostUSD           float64   `json:"total_cost_usd"`
	BaselineExecMatchRate  float64   `json:"baseline_exec_match_rate"`
	BaselineCorrectCount   int       `json:"baseline_correct_count"`
	EnhancedExecMatchRate  float64   `json:"enhanced_exec_match_rate"`
	EnhancedCorrectCount   int       `json:"enhanced_correct_count"`
}

// ProgressDelta is applied by update_progress.
type ProgressDelta struct {
	CompletedDelta  int
	FailedDelta     int
	CurrentQuestion string
	BaselineCostDelta float64
	EnhancedCostDelta float64
}

// RunFilters filters list_runs.
type RunFilters struct {
	Status RunStatus
	Mode   RunMode
	Limit  int
	Offset int
}
