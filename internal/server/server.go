// Package server exposes the translation pipeline over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/MeKo-Tech/retype/internal/translator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultOutputFilename names the translated PDF download.
const DefaultOutputFilename = "Manga_Translated.pdf"

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	ShutdownTimeout int // seconds
	OutputFilename  string
	RateLimit       RateLimitConfig
	// Models lists the translation models. Nil uses the pipeline's
	// translator when it can list models.
	Models translator.ModelLister
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    *pipeline.Pipeline
	models      translator.ModelLister
	rateLimiter *RateLimiter

	corsOrigin     string
	maxUploadMB    int64
	timeout        time.Duration
	outputFilename string
	addr           string
	shutdown       time.Duration
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the JSON envelope of every error.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewServer wires a server around pl.
func NewServer(cfg Config, pl *pipeline.Pipeline) (*Server, error) {
	if pl == nil {
		return nil, errors.New("server requires a pipeline")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", cfg.Port)
	}

	s := &Server{
		pipeline:       pl,
		models:         cfg.Models,
		corsOrigin:     cfg.CORSOrigin,
		maxUploadMB:    cfg.MaxUploadMB,
		timeout:        time.Duration(cfg.TimeoutSec) * time.Second,
		outputFilename: cfg.OutputFilename,
		addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		shutdown:       time.Duration(cfg.ShutdownTimeout) * time.Second,
	}
	if s.models == nil {
		if lister, ok := pl.Translator().(translator.ModelLister); ok {
			s.models = lister
		}
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Minute
	}
	if s.outputFilename == "" {
		s.outputFilename = DefaultOutputFilename
	}
	if s.shutdown <= 0 {
		s.shutdown = 10 * time.Second
	}
	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return s.pipeline.Close()
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/api/translate", s.corsMiddleware(s.rateLimitMiddleware(s.translateHandler)))
	mux.HandleFunc("/api/layout", s.corsMiddleware(s.rateLimitMiddleware(s.layoutHandler)))
	mux.HandleFunc("/api/models", s.corsMiddleware(s.modelsHandler))
	mux.HandleFunc("/ws/translate", s.translateWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.timeout,
		WriteTimeout:      s.timeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting retype server", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.rateLimiter != nil {
		go s.pruneLoop(ctx)
	}

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Starting graceful shutdown", "timeout", s.shutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	slog.Info("Graceful shutdown completed")
	return nil
}

func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.rateLimiter.Prune(); n > 0 {
				slog.Debug("Pruned idle rate limit entries", "count", n)
			}
		}
	}
}
