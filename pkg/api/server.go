// Package api implements ControlAPI: the thin HTTP/JSON request-response
// boundary over MetadataStore and the Runner pool, per spec.md §4.12/§6.
// Grounded on the teacher's pkg/api/server.go: an Echo v5 server, Set*-style
// wiring with a ValidateWiring pre-flight check, and a single mapServiceError
// translation layer.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/spiderbench/evalcore/pkg/config"
	"github.com/spiderbench/evalcore/pkg/database"
	"github.com/spiderbench/evalcore/pkg/judge"
	"github.com/spiderbench/evalcore/pkg/models"
	"github.com/spiderbench/evalcore/pkg/runner"
	"github.com/spiderbench/evalcore/pkg/spider"
	"github.com/spiderbench/evalcore/pkg/version"
)

// Store is the slice of MetadataStore ControlAPI needs: the full
// request/response surface of §4.1, plus runner.Store (which the Server
// hands to each spawned Runner).
type Store interface {
	runner.Store
	CreateRun(ctx context.Context, req models.CreateRunRequest, questionCount int) (string, error)
	ListRuns(ctx context.Context, filters models.RunFilters) ([]*models.RunSummary, error)
	GetSummary(ctx context.Context, runID string) (*models.Rollup, error)
	ListResults(ctx context.Context, runID string, filters models.ResultFilters, page models.Page) (*models.ResultPage, error)
	CancelRun(ctx context.Context, runID, reason string) error
	DeleteRun(ctx context.Context, runID string) error
}

// RunPool is the slice of runner.Pool the Server needs to launch and stop
// Runner goroutines.
type RunPool interface {
	Start(ctx context.Context, r *runner.Runner, done func(error))
	Cancel(runID string) bool
}

// Server is the ControlAPI HTTP server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg         *config.Config
	dbClient    *database.Client
	store       Store
	pool        RunPool
	generator   runner.Generator
	execAdapter judge.Executor
	questions   []spider.Question
	apiKey      string
}

// NewServer builds a ControlAPI server wired over store, a run pool, a
// shared GenerationPipeline, a shared QueryExecutor adapter (for
// execute-compare and per-question exec-match) and the loaded Spider
// question set. generator and execAdapter are safe for concurrent use
// across distinct Runs; only the per-Run CostTracker must not be shared.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	store Store,
	pool RunPool,
	generator runner.Generator,
	execAdapter judge.Executor,
	questions []spider.Question,
	apiKey string,
) *Server {
	e := echo.New()

	s := &Server{
		echo:        e,
		cfg:         cfg,
		dbClient:    dbClient,
		store:       store,
		pool:        pool,
		generator:   generator,
		execAdapter: execAdapter,
		questions:   questions,
		apiKey:      apiKey,
	}

	s.setupRoutes()
	return s
}

// ValidateWiring checks that all required dependencies were supplied to
// NewServer. Call before Start so a wiring gap fails fast at startup
// instead of surfacing as a 500 at request time.
func (s *Server) ValidateWiring() error {
	if s.store == nil {
		return fmt.Errorf("server wiring incomplete: store not set")
	}
	if s.pool == nil {
		return fmt.Errorf("server wiring incomplete: run pool not set")
	}
	if s.generator == nil {
		return fmt.Errorf("server wiring incomplete: generation pipeline not set")
	}
	if s.execAdapter == nil {
		return fmt.Errorf("server wiring incomplete: query executor not set")
	}
	if s.apiKey == "" {
		return fmt.Errorf("server wiring incomplete: api key not set")
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	grp := s.echo.Group("/api/benchmark", apiKeyAuth(s.apiKey))
	grp.POST("/run", s.startRunHandler)
	grp.GET("/runs", s.listRunsHandler)
	grp.GET("/run/:id/status", s.getStatusHandler)
	grp.GET("/run/:id/summary", s.getSummaryHandler)
	grp.GET("/run/:id/results", s.listResultsHandler)
	grp.POST("/run/:id/cancel", s.cancelRunHandler)
	grp.DELETE("/run/:id", s.deleteRunHandler)
	grp.POST("/execute-compare", s.executeCompareHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.dbClient.DB())
	status := "healthy"
	if err != nil {
		status = "unhealthy"
	}

	stats := s.cfg.Stats()
	return c.JSON(http.StatusOK, HealthResponse{
		Status:        status,
		Version:       version.Full(),
		Database:      dbHealth,
		Configuration: ConfigStats{Providers: stats.Providers, Tasks: stats.Tasks},
	})
}

// parsePageQuery reads page/page_size query params with defaults matching
// MetadataStore's own clamps (page 1, size 50, cap 500).
func parsePageQuery(c *echo.Context) models.Page {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	pageSize := 50
	if v := c.QueryParam("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			pageSize = n
		}
	}
	return models.Page{Page: page, PageSize: pageSize}
}
