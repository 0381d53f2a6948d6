package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/events"
)

const heartbeatInterval = 30 * time.Second

// handleEvents streams a session's orchestration events via Server-Sent
// Events. The connection stays open until the session terminates or the
// client disconnects.
//
// Example:
//
//	GET /api/v1/sessions/{id}/events
//
//	event: worker_message
//	data: {"id":"...","session_id":"...","worker":"coder","message":"..."}
//
//	event: terminal
//	data: {"id":"...","session_id":"...","message":"All plan steps completed."}
func (s *Server) handleEvents(c echo.Context) error {
	if s.subscriber == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event streaming is not configured")
	}

	id := c.Param("id")
	if _, ok := s.sessions.Get(id); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	ch, cancel, err := s.subscriber.Subscribe(id)
	if err != nil {
		s.logger.Error("event subscription failed", zap.String("session_id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "event subscription failed")
	}
	defer cancel()

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn("dropping unencodable event", zap.String("session_id", id), zap.Error(err))
				continue
			}
			fmt.Fprintf(c.Response(), "event: %s\n", ev.Type)
			fmt.Fprintf(c.Response(), "data: %s\n\n", data)
			c.Response().Flush()

			if ev.Type == events.TypeTerminal {
				return nil
			}

		case <-ticker.C:
			// Keep proxies from timing out the idle stream.
			fmt.Fprintf(c.Response(), ": heartbeat\n\n")
			c.Response().Flush()

		case <-c.Request().Context().Done():
			return nil
		}
	}
}
