// Package api accepts dossier requests over HTTP and hands them to the queue
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/netutil"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/queue"
)

// maxBodyBytes bounds a request body; a request is two short strings
const maxBodyBytes = 64 << 10

// GenerateRequest is the body of POST /generate_politician/
type GenerateRequest struct {
	Name       string `json:"name"`
	WikidataID string `json:"wikidataid"`
}

// GenerateResponse acknowledges an accepted request
type GenerateResponse struct {
	Message string `json:"Message"`
	TaskID  string `json:"task_id"`
}

// Server is the acceptance endpoint
type Server struct {
	queue queue.Queue
	cfg   model.ServerConfig
	srv   *http.Server
}

// NewServer creates a server that enqueues into q
func NewServer(q queue.Queue, cfg model.ServerConfig) *Server {
	s := &Server{queue: q, cfg: cfg}
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate_politician/", s.handleGenerate)
	mux.HandleFunc("GET /health/", s.handleHealth)
	return LoggingMiddleware(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("api listening")
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx := context.Background()
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	log.Info().Msg("api shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.WikidataID = strings.TrimSpace(req.WikidataID)

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.WikidataID == "" {
		missing = append(missing, "wikidataid")
	}
	if len(missing) > 0 {
		respondWithError(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	task, err := s.queue.Enqueue(r.Context(), model.Task{Name: req.Name, WikidataID: req.WikidataID})
	if err != nil {
		log.Error().Err(err).Str("wikidataid", req.WikidataID).Msg("enqueue failed")
		if errors.Is(err, queue.ErrFull) {
			respondWithError(w, http.StatusServiceUnavailable, "queue is full")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to enqueue task")
		return
	}

	log.Info().Str("task_id", task.ID).Str("wikidataid", task.WikidataID).Msg("task enqueued")
	respondWithJSON(w, http.StatusOK, GenerateResponse{Message: "OK", TaskID: task.ID})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}
