// Package http provides the HTTP API for crewd: session lifecycle,
// mid-run messages, checkpoint approvals, and the SSE event stream.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/events"
	"github.com/fyrsmithlabs/crewd/internal/interrupt"
	"github.com/fyrsmithlabs/crewd/internal/orchestrator"
	"github.com/fyrsmithlabs/crewd/internal/session"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// IterationLimit and StepLimit seed new sessions. Zero values fall
	// back to the session package defaults.
	IterationLimit int
	StepLimit      int
}

// Server exposes the orchestration engine over HTTP.
type Server struct {
	echo       *echo.Echo
	sessions   *session.Manager
	engine     *orchestrator.Engine
	interrupts *interrupt.Handler
	subscriber events.Subscriber
	logger     *zap.Logger
	config     Config
}

// NewServer creates the HTTP server. The subscriber may be nil, in which
// case the event stream endpoint reports unavailable.
func NewServer(sessions *session.Manager, engine *orchestrator.Engine, interrupts *interrupt.Handler, subscriber events.Subscriber, logger *zap.Logger, cfg Config) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session manager cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if interrupts == nil {
		return nil, fmt.Errorf("interrupt handler cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8420
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	metrics := NewHTTPMetrics(logger)
	e.Use(metrics.Middleware())

	s := &Server{
		echo:       e,
		sessions:   sessions,
		engine:     engine,
		interrupts: interrupts,
		subscriber: subscriber,
		logger:     logger,
		config:     cfg,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/sessions", s.handleCreateSession)
	v1.GET("/sessions", s.handleListSessions)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.POST("/sessions/:id/messages", s.handleMessage)
	v1.POST("/sessions/:id/approval", s.handleApproval)
	v1.GET("/sessions/:id/events", s.handleEvents)
}

// CreateSessionRequest is the body for POST /api/v1/sessions.
type CreateSessionRequest struct {
	Goal string `json:"goal"`
}

// MessageRequest is the body for POST /api/v1/sessions/:id/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse pairs the interrupt outcome with the state it left
// behind.
type MessageResponse struct {
	Outcome *interrupt.Outcome `json:"outcome"`
	Session session.Snapshot   `json:"session"`
}

// ApprovalRequest is the body for POST /api/v1/sessions/:id/approval.
// An empty response approves the checkpoint as-is.
type ApprovalRequest struct {
	Response string `json:"response"`
}

// ListSessionsResponse is the body for GET /api/v1/sessions.
type ListSessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Sessions: s.sessions.Len()})
}

// handleCreateSession starts a run and drives it until it suspends at a
// checkpoint or terminates. The response snapshot carries the pending
// checkpoint, if any.
func (s *Server) handleCreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Goal == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "goal field is required")
	}

	st := session.NewRunState(req.Goal, s.config.IterationLimit, s.config.StepLimit)
	sess, err := s.sessions.Add(st)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := sess.Do(func(st *session.RunState) error {
		_, err := s.engine.Run(c.Request().Context(), st)
		return err
	}); err != nil {
		s.logger.Error("run failed", zap.String("session_id", sess.ID()), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "run failed")
	}

	return c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, ListSessionsResponse{Sessions: s.sessions.IDs()})
}

func (s *Server) handleGetSession(c echo.Context) error {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}

// handleMessage routes a mid-run user message through the interrupt
// handler and, unless the handler withheld a destructive change for
// confirmation, continues the run.
func (s *Server) handleMessage(c echo.Context) error {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	var outcome *interrupt.Outcome
	err := sess.Do(func(st *session.RunState) error {
		var err error
		outcome, err = s.interrupts.Handle(c.Request().Context(), st, req.Message)
		if err != nil {
			return err
		}
		if outcome.NeedsConfirmation {
			return nil
		}
		// A suspended checkpoint is dropped when the message changes
		// course; the run continues from the interrupt's outcome.
		st.PendingGate = nil
		_, err = s.engine.Run(c.Request().Context(), st)
		return err
	})
	if err != nil {
		s.logger.Error("message handling failed", zap.String("session_id", sess.ID()), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "message handling failed")
	}

	return c.JSON(http.StatusOK, MessageResponse{Outcome: outcome, Session: sess.Snapshot()})
}

// handleApproval answers a pending checkpoint and continues the run.
func (s *Server) handleApproval(c echo.Context) error {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var resumeErr error
	err := sess.Do(func(st *session.RunState) error {
		status, err := s.engine.Resume(c.Request().Context(), st, req.Response)
		if err != nil {
			resumeErr = err
			return nil
		}
		if status == orchestrator.StatusRunning {
			_, err = s.engine.Run(c.Request().Context(), st)
		}
		return err
	})
	if err != nil {
		s.logger.Error("approval handling failed", zap.String("session_id", sess.ID()), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "approval handling failed")
	}
	if resumeErr != nil {
		return echo.NewHTTPError(http.StatusConflict, resumeErr.Error())
	}

	return c.JSON(http.StatusOK, sess.Snapshot())
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
