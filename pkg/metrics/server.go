package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Endpoint is the HTTP path metrics are served on.
const Endpoint = "/metrics"

// Server serves prometheus metrics over HTTP.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a metrics server for addr. A nil gatherer means
// prometheus.DefaultGatherer.
func NewServer(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle(Endpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Start listens on the configured address and serves in the background. It
// returns the bound address.
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, err
	}
	s.logger.Info("metrics server started", "address", ln.Addr().String(), "endpoint", Endpoint)
	go func() {
		if err := s.server.Serve(ln); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				s.logger.Debug("metrics server shutdown")
			} else {
				s.logger.Error("metrics server failed", "error", err)
			}
		}
	}()
	return ln.Addr(), nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
