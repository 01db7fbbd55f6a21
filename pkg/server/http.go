package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// HTTPServer exposes Prometheus metrics and a readiness endpoint next to the
// stdio bridge.
type HTTPServer struct {
	addr   string
	ready  <-chan struct{}
	logger *logrus.Logger
	srv    *http.Server
}

// NewHTTPServer creates a new HTTP server. /health answers 503 until ready is closed.
func NewHTTPServer(addr string, ready <-chan struct{}, logger *logrus.Logger) *HTTPServer {
	if logger == nil {
		logger = logrus.New()
	}
	s := &HTTPServer{
		addr:   addr,
		ready:  ready,
		logger: logger,
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routes served by the HTTP server.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Start listens on the configured address and serves until Shutdown.
func (s *HTTPServer) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"addr": lis.Addr().String(),
	}).Info("Starting HTTP server for metrics and health")

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleHealth reports whether the language catalog has been loaded.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, code := "initializing", http.StatusServiceUnavailable
	select {
	case <-s.ready:
		status, code = "healthy", http.StatusOK
	default:
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": status}); err != nil {
		s.logger.WithError(err).Debug("Failed to write health response")
	}
}
