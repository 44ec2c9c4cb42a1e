package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiderbench/evalcore/pkg/apperrors"
	"github.com/spiderbench/evalcore/pkg/generation"
	"github.com/spiderbench/evalcore/pkg/judge"
	"github.com/spiderbench/evalcore/pkg/models"
	"github.com/spiderbench/evalcore/pkg/runner"
	"github.com/spiderbench/evalcore/pkg/spider"
)

type fakeStore struct {
	createErr    error
	createID     string
	statusView   *models.RunStatusView
	statusErr    error
	summary      *models.Rollup
	summaryErr   error
	resultsPage  *models.ResultPage
	resultsErr   error
	cancelErr    error
	deleteErr    error
	runs         []*models.RunSummary
}

func (f *fakeStore) MarkRunning(ctx context.Context, runID string) error { return nil }
func (f *fakeStore) GetStatus(ctx context.Context, runID string) (*models.RunStatusView, error) {
	return f.statusView, f.statusErr
}
func (f *fakeStore) UpdateProgress(ctx context.Context, runID string, delta models.ProgressDelta) error {
	return nil
}
func (f *fakeStore) RecordResult(ctx context.Context, r *models.Result) error { return nil }
func (f *fakeStore) FinalizeRun(ctx context.Context, runID string, final models.RunStatus, reason string, rollup *models.Rollup) error {
	return nil
}
func (f *fakeStore) CreateRun(ctx context.Context, req models.CreateRunRequest, questionCount int) (string, error) {
	return f.createID, f.createErr
}
func (f *fakeStore) ListRuns(ctx context.Context, filters models.RunFilters) ([]*models.RunSummary, error) {
	return f.runs, nil
}
func (f *fakeStore) GetSummary(ctx context.Context, runID string) (*models.Rollup, error) {
	return f.summary, f.summaryErr
}
func (f *fakeStore) ListResults(ctx context.Context, runID string, filters models.ResultFilters, page models.Page) (*models.ResultPage, error) {
	return f.resultsPage, f.resultsErr
}
func (f *fakeStore) CancelRun(ctx context.Context, runID, reason string) error { return f.cancelErr }
func (f *fakeStore) DeleteRun(ctx context.Context, runID string) error        { return f.deleteErr }

type fakePool struct {
	started    bool
	cancelled  string
	cancelRV   bool
}

func (f *fakePool) Start(ctx context.Context, r *runner.Runner, done func(error)) {
	f.started = true
}
func (f *fakePool) Cancel(runID string) bool {
	f.cancelled = runID
	return f.cancelRV
}

type fakeGenerator struct{}

func (fakeGenerator) GenerateBaseline(ctx context.Context, database, question string) (*generation.GenerationResult, error) {
	return &generation.GenerationResult{SQL: "SELECT 1"}, nil
}
func (fakeGenerator) GenerateEnhanced(ctx context.Context, database, question string) (*generation.GenerationResult, error) {
	return &generation.GenerationResult{SQL: "SELECT 1"}, nil
}

type fakeExecAdapter struct {
	result *judge.Result
	err    error
}

func (f *fakeExecAdapter) Execute(ctx context.Context, database, sql string) (*judge.Result, error) {
	return f.result, f.err
}

func newTestServer(store Store) *Server {
	return &Server{
		echo:        echo.New(),
		store:       store,
		pool:        &fakePool{},
		generator:   fakeGenerator{},
		execAdapter: &fakeExecAdapter{result: &judge.Result{Columns: []string{"n"}, Rows: [][]any{{1}}}},
		questions:   []spider.Question{{ID: "dev_0000", Database: "concert_singer", Text: "how many singers", GoldSQL: "select 1"}},
		apiKey:      "secret",
	}
}

func TestStartRunHandler_RejectsMissingName(t *testing.T) {
	s := newTestServer(&fakeStore{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/benchmark/run", strings.NewReader(`{"run_type":"baseline"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.startRunHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestStartRunHandler_RejectsInvalidRunType(t *testing.T) {
	s := newTestServer(&fakeStore{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/benchmark/run", strings.NewReader(`{"name":"smoke","run_type":"bogus"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.startRunHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestStartRunHandler_HappyPathReturnsRunAndQuestionCount(t *testing.T) {
	s := newTestServer(&fakeStore{createID: "run-123"})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/benchmark/run", strings.NewReader(`{"name":"smoke","run_type":"baseline"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.startRunHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-123")
	assert.Contains(t, rec.Body.String(), `"question_count":1`)
}

func TestGetStatusHandler_NotFoundMapsTo404(t *testing.T) {
	s := newTestServer(&fakeStore{statusErr: apperrors.ErrNotFound})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/benchmark/run/missing/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := s.getStatusHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestCancelRunHandler_NotCancellableMapsTo409(t *testing.T) {
	s := newTestServer(&fakeStore{cancelErr: apperrors.ErrNotCancellable})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/benchmark/run/run-1/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("run-1")

	err := s.cancelRunHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestExecuteCompareHandler_RunsAllThreeSides(t *testing.T) {
	s := newTestServer(&fakeStore{})
	e := echo.New()
	body := `{"gold_sql":"select 1","baseline_sql":"select 1","enhanced_sql":"","database":"concert_singer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/benchmark/execute-compare", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, s.executeCompareHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestExecuteCompareHandler_RequiresDatabase(t *testing.T) {
	s := newTestServer(&fakeStore{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/benchmark/execute-compare", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.executeCompareHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestApiKeyAuth_RejectsMissingKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/benchmark/runs", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := apiKeyAuth("secret")
	handler := mw(func(c *echo.Context) error { return c.NoContent(http.StatusOK) })

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApiKeyAuth_AllowsMatchingKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/benchmark/runs", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := apiKeyAuth("secret")
	handler := mw(func(c *echo.Context) error { return c.NoContent(http.StatusOK) })

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
