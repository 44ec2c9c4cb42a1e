package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/spiderbench/evalcore/pkg/cost"
	"github.com/spiderbench/evalcore/pkg/models"
	"github.com/spiderbench/evalcore/pkg/runner"
	"github.com/spiderbench/evalcore/pkg/spider"
)

// startRunRequest mirrors the POST body in spec.md §6.
type startRunRequest struct {
	Name          string         `json:"name"`
	RunType       models.RunMode `json:"run_type"`
	Databases     []string       `json:"databases"`
	QuestionLimit *int           `json:"question_limit"`
	BudgetCeiling *float64       `json:"budget_ceiling_usd"`
}

func (s *Server) startRunHandler(c *echo.Context) error {
	var req startRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{Detail: "malformed request body"})
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{Detail: "name is required"})
	}
	switch req.RunType {
	case models.ModeBaseline, models.ModeEnhanced, models.ModeBoth:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{Detail: "run_type must be one of baseline, enhanced, both"})
	}

	selected := spider.Filter(s.questions, req.Databases, req.QuestionLimit)
	if len(selected) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{Detail: "no questions match the requested databases"})
	}

	ceiling := s.cfg.Defaults.BudgetCeilingUSD
	if req.BudgetCeiling != nil {
		ceiling = *req.BudgetCeiling
	}

	ctx := c.Request().Context()
	runID, err := s.store.CreateRun(ctx, models.CreateRunRequest{
		Name:          req.Name,
		Mode:          req.RunType,
		Databases:     req.Databases,
		QuestionLimit: req.QuestionLimit,
		BudgetCeiling: &ceiling,
	}, len(selected))
	if err != nil {
		return mapServiceError(err)
	}

	// tracker enforces the same ceiling just persisted on the Run, so the
	// live budget invariant (spec.md §3) and the stored budget_ceiling_usd
	// never diverge.
	tracker := cost.New(ceiling)
	r := runner.New(s.store, tracker, s.execAdapter, s.generator, runner.Config{
		RunID:       runID,
		Mode:        req.RunType,
		Questions:   selected,
		MaxParallel: s.cfg.Defaults.MaxParallelWorkers,
	})

	// The Run proceeds independently of this request's lifetime.
	s.pool.Start(context.Background(), r, func(err error) {
		if err != nil {
			slogRunFailed(runID, err)
		}
	})

	return c.JSON(http.StatusOK, StartRunResponse{RunID: runID, QuestionCount: len(selected)})
}

func (s *Server) listRunsHandler(c *echo.Context) error {
	runs, err := s.store.ListRuns(c.Request().Context(), models.RunFilters{})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) getStatusHandler(c *echo.Context) error {
	view, err := s.store.GetStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) getSummaryHandler(c *echo.Context) error {
	rollup, err := s.store.GetSummary(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rollup)
}

func (s *Server) listResultsHandler(c *echo.Context) error {
	filters := models.ResultFilters{
		FailuresOnly: c.QueryParam("failures_only") == "true",
	}
	page := parsePageQuery(c)

	results, err := s.store.ListResults(c.Request().Context(), c.Param("id"), filters, page)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) cancelRunHandler(c *echo.Context) error {
	runID := c.Param("id")
	if err := s.store.CancelRun(c.Request().Context(), runID, "cancelled via API"); err != nil {
		return mapServiceError(err)
	}
	s.pool.Cancel(runID)
	return c.JSON(http.StatusOK, CancelRunResponse{RunID: runID, Status: string(models.RunCancelled)})
}

func (s *Server) deleteRunHandler(c *echo.Context) error {
	runID := c.Param("id")
	if err := s.store.DeleteRun(c.Request().Context(), runID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) executeCompareHandler(c *echo.Context) error {
	var req ExecuteCompareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{Detail: "malformed request body"})
	}
	if req.Database == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{Detail: "database is required"})
	}

	ctx := c.Request().Context()
	resp := ExecuteCompareResponse{
		Gold:     s.executeOne(ctx, req.Database, req.GoldSQL),
		Baseline: s.executeOne(ctx, req.Database, req.BaselineSQL),
		Enhanced: s.executeOne(ctx, req.Database, req.EnhancedSQL),
	}
	return c.JSON(http.StatusOK, resp)
}

// executeOne runs a single SQL string via the shared QueryExecutor adapter
// and shapes the outcome as one side of an execute-compare response. A
// blank sql (an omitted enhanced query, for instance) is reported as a
// no-op success rather than an execution error.
func (s *Server) executeOne(ctx context.Context, database, sql string) ExecuteCompareSide {
	if sql == "" {
		return ExecuteCompareSide{Success: true}
	}

	start := time.Now()
	result, err := s.execAdapter.Execute(ctx, database, sql)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return ExecuteCompareSide{Success: false, Error: err.Error(), ExecutionTimeMS: elapsed}
	}
	return ExecuteCompareSide{
		Success:         true,
		Columns:         result.Columns,
		Rows:            result.Rows,
		RowCount:        len(result.Rows),
		ExecutionTimeMS: elapsed,
	}
}

func slogRunFailed(runID string, err error) {
	slog.Error("benchmark run ended with error", "run_id", runID, "error", err)
}
