package metric

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/flowmesh/ferrors"
)

// Server exposes a Registry's metrics over HTTP in Prometheus text
// format, plus a plain /health endpoint.
type Server struct {
	port     int
	path     string
	registry *Registry

	mu     sync.Mutex
	server *http.Server
}

// NewServer builds a Server for registry. path defaults to "/metrics"
// and port to 9090 when zero/empty.
func NewServer(port int, path string, registry *Registry) *Server {
	if path == "" {
		path = "/metrics"
	}
	if port == 0 {
		port = 9090
	}
	return &Server{port: port, path: path, registry: registry}
}

// Start launches the HTTP server. It blocks until Stop is called or
// the server fails; callers typically run it in its own goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return ferrors.WrapInvalid(fmt.Errorf("server already running"), "metric", "Server.Start", "already running")
	}
	if s.registry == nil {
		s.mu.Unlock()
		return ferrors.WrapFatal(fmt.Errorf("nil registry"), "metric", "Server.Start", "no registry provided")
	}

	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.registry.PrometheusRegistry(), promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.server = &http.Server{Addr: fmt.Sprintf(":%d", s.port), Handler: mux}
	server := s.server
	s.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return ferrors.WrapFatal(err, "metric", "Server.Start", fmt.Sprintf("listen on port %d", s.port))
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server = nil
	if err != nil {
		return ferrors.WrapTransient(err, "metric", "Server.Stop", "graceful shutdown failed")
	}
	return nil
}

// Address returns the address clients should scrape.
func (s *Server) Address() string {
	return fmt.Sprintf("http://localhost:%d%s", s.port, s.path)
}
