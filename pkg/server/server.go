// Package server exposes the webhook endpoint the control sheets call
// to kick off a pipeline stage. Stages run in the background; the
// webhook only acknowledges the trigger.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/config"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/runner"
)

// Trigger values accepted by the webhook.
const (
	TriggerIngestion = "pipeline_trigger"
	TriggerSync      = "sync_trigger"
	TriggerReconcile = "reconcile_trigger"
)

// Server handles HTTP requests that drive the pipeline.
type Server struct {
	config *config.Config
	logger *log.Logger
	runner *runner.Runner
	mux    *http.ServeMux

	// One stage at a time; a second trigger while a run is active is
	// acknowledged but dropped.
	running sync.Mutex
}

// New creates a new HTTP server.
func New(cfg *config.Config, logger *log.Logger, r *runner.Runner) *Server {
	return &Server{
		config: cfg,
		logger: logger.With("component", "server"),
		runner: r,
		mux:    http.NewServeMux(),
	}
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.setupRoutes()
	s.logger.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/healthz", s.withLogging(s.handleHealth))
	s.mux.HandleFunc("/webhook", s.withLogging(s.handleWebhook))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	if s.config.Server.WebhookToken != "" && r.Header.Get("X-Webhook-Token") != s.config.Server.WebhookToken {
		s.respondError(w, r, http.StatusUnauthorized, "invalid webhook token", nil)
		return
	}

	var body struct {
		Trigger string `json:"trigger"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var stage func(context.Context) error
	switch body.Trigger {
	case TriggerIngestion:
		stage = s.runner.RunIngestion
	case TriggerSync:
		stage = s.runner.RunSync
	case TriggerReconcile:
		stage = s.runner.RunReconcile
	default:
		s.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown trigger %q", body.Trigger), nil)
		return
	}

	if !s.running.TryLock() {
		s.logger.Warn("trigger dropped, a stage is already running", "trigger", body.Trigger)
		if err := s.writeJSON(w, http.StatusConflict, map[string]string{
			"status": "busy",
		}); err != nil {
			s.logger.Warn("failed to write json response", "err", err)
		}
		return
	}

	go func() {
		defer s.running.Unlock()
		if err := stage(context.Background()); err != nil {
			s.logger.Error("stage failed", "trigger", body.Trigger, "err", err)
		}
	}()

	s.logger.Info("trigger accepted", "trigger", body.Trigger)
	if err := s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"trigger": body.Trigger,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
