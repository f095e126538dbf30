// ABOUTME: HTTP API server: route table, error mapping and graceful shutdown.
// ABOUTME: JSON over echo with bearer-token sessions.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/harperreed/healthdash/internal/auth"
	"github.com/harperreed/healthdash/internal/blob"
	"github.com/harperreed/healthdash/internal/dashboard"
	"github.com/harperreed/healthdash/internal/reports"
	"github.com/harperreed/healthdash/internal/storage"
	"github.com/harperreed/healthdash/internal/tracking"
)

// Deps are the services the API exposes.
type Deps struct {
	Repo      storage.Repository
	Auth      *auth.Service
	Dashboard *dashboard.Service
	Tracking  *tracking.Service
	Reports   *reports.Service
	Logger    zerolog.Logger
}

// Server is the HTTP API.
type Server struct {
	echo     *echo.Echo
	repo     storage.Repository
	auth     *auth.Service
	dash     *dashboard.Service
	tracking *tracking.Service
	reports  *reports.Service
	metrics  *Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// New builds the server and its routes.
func New(deps Deps) *Server {
	if deps.Dashboard == nil {
		deps.Dashboard = dashboard.NewService(deps.Repo, nil)
	}
	if deps.Tracking == nil {
		deps.Tracking = tracking.NewService(deps.Repo)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	s := &Server{
		echo:     e,
		repo:     deps.Repo,
		auth:     deps.Auth,
		dash:     deps.Dashboard,
		tracking: deps.Tracking,
		reports:  deps.Reports,
		metrics:  NewMetrics(),
		logger:   deps.Logger,
		now:      time.Now,
	}

	e.Use(Logger(s.logger), s.metrics.Middleware(), Recovery(s.logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := e.Group("/api/v1")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	authed := api.Group("", RequireAuth(s.auth))
	authed.GET("/me", s.me)

	authed.GET("/samples", s.listSamples)
	authed.POST("/samples", s.createSample)
	authed.DELETE("/samples/:id", s.deleteSample)

	authed.GET("/daily", s.getDaily)
	authed.PUT("/daily", s.putDaily)
	authed.GET("/goals", s.getGoals)
	authed.PUT("/goals/:metric", s.putGoal)

	authed.GET("/profile", s.getProfile)
	authed.PUT("/profile", s.putProfile)

	authed.GET("/reports", s.listReports)
	authed.POST("/reports", s.uploadReport)
	authed.GET("/reports/:id/file", s.downloadReport)
	authed.DELETE("/reports/:id", s.deleteReport)

	authed.GET("/dashboard", s.getDashboard)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http api listening")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("http api shutting down")
	return s.echo.Shutdown(shutdownCtx)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps an error onto a status code and client message.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		return he.Code, msg
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, storage.ErrAmbiguous), errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, reports.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// errorHandler writes the JSON error body for err.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := statusFor(err)

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorBody{Error: msg})
}

func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
