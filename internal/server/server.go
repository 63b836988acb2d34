// ABOUTME: HTTP surface of the bot: interactive callback endpoint and health checks.
// ABOUTME: Routes are served by chi with request id, logging and panic recovery.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2389/taskbridge/internal/bridge"
	"github.com/2389/taskbridge/internal/mattermost"
)

// maxCallbackBody caps the size of a callback request body.
const maxCallbackBody = 1 << 20

// CallbackHandler processes interactive card callbacks.
type CallbackHandler interface {
	HandleCallback(ctx context.Context, raw []byte) (bridge.CallbackResponse, error)
}

// Check is a named readiness check.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Config holds server settings.
type Config struct {
	Addr string
	// CallbackTimeout bounds the work done for one callback. The chat
	// server gives up waiting on the integration after about 30s.
	CallbackTimeout time.Duration
}

// Server is the bot's HTTP endpoint.
type Server struct {
	cfg       Config
	callbacks CallbackHandler
	checks    []Check
	router    *chi.Mux
	logger    *slog.Logger
}

// New creates a server. Readiness is reported only when every check passes.
func New(cfg Config, callbacks CallbackHandler, checks []Check, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = 25 * time.Second
	}
	s := &Server{
		cfg:       cfg,
		callbacks: callbacks,
		checks:    checks,
		logger:    logger.With("component", "http"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(s.logger))
	r.Use(Recovery(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Post("/mattermost/actions", s.handleAction)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for _, c := range s.checks {
		if err := c.Fn(ctx); err != nil {
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleAction answers POST /mattermost/actions.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}

	// The click is processed to the end even if the chat server hangs up.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.CallbackTimeout)
	defer cancel()

	resp, err := s.callbacks.HandleCallback(ctx, raw)
	switch {
	case errors.Is(err, bridge.ErrBadCallback):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, bridge.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden")
		return
	case err != nil:
		s.logger.Error("callback failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, mattermost.ActionResponse{EphemeralText: resp.EphemeralText})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
