package api

// StartRunResponse is returned by POST /api/benchmark/run.
type StartRunResponse struct {
	RunID         string `json:"run_id"`
	QuestionCount int    `json:"question_count"`
}

// CancelRunResponse is returned by POST /api/benchmark/run/:id/cancel.
type CancelRunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string      `json:"status"`
	Version       string      `json:"version"`
	Database      any         `json:"database"`
	Configuration ConfigStats `json:"configuration"`
}

// ConfigStats mirrors config.Config.Stats() for the health endpoint.
type ConfigStats struct {
	Providers int `json:"providers"`
	Tasks     int `json:"tasks"`
}

// ExecuteCompareRequest is the body of POST /api/benchmark/execute-compare.
type ExecuteCompareRequest struct {
	GoldSQL     string `json:"gold_sql"`
	BaselineSQL string `json:"baseline_sql"`
	EnhancedSQL string `json:"enhanced_sql"`
	Database    string `json:"database"`
}

// ExecuteCompareSide is one side's outcome in ExecuteCompareResponse.
type ExecuteCompareSide struct {
	Success         bool     `json:"success"`
	Columns         []string `json:"columns,omitempty"`
	Rows            [][]any  `json:"results,omitempty"`
	RowCount        int      `json:"row_count,omitempty"`
	ExecutionTimeMS int64    `json:"execution_time_ms,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// ExecuteCompareResponse is returned by POST /api/benchmark/execute-compare.
type ExecuteCompareResponse struct {
	Gold     ExecuteCompareSide `json:"gold"`
	Baseline ExecuteCompareSide `json:"baseline"`
	Enhanced ExecuteCompareSide `json:"enhanced"`
}

// errorBody is the structured error payload the spec requires: {detail}.
type errorBody struct {
	Detail string `json:"detail"`
}
