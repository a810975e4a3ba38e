package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the default Prometheus registry on /metrics.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
	logger   log.Logger
}

// StartMetricsServer binds addr and serves metrics in the background.
func StartMetricsServer(addr string, logger log.Logger) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	m := &MetricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		logger:   logger.With("module", "metrics"),
	}

	go func() {
		m.logger.Info("serving prometheus metrics", "addr", listener.Addr().String())
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("prometheus server error", "error", err)
		}
	}()
	return m, nil
}

// Addr returns the bound address.
func (m *MetricsServer) Addr() string {
	return m.listener.Addr().String()
}

// Shutdown stops the server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
