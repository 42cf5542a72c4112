// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package observability serves the host's Prometheus metrics and its
// liveness and readiness probes.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/quayside/quayside/internal/bus"
)

// ShutdownTimeout bounds the graceful shutdown performed by Run.
const ShutdownTimeout = 5 * time.Second

// ReadinessChecker returns whether the host has finished loading extensions.
type ReadinessChecker func() bool

// Metrics contains host-level Prometheus metrics.
type Metrics struct {
	BuildInfo       *prometheus.GaugeVec
	LifecycleEvents *prometheus.CounterVec
}

// NewMetrics creates and registers the host metrics.
func NewMetrics(reg prometheus.Registerer, version string) *Metrics {
	m := &Metrics{
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quayside_build_info",
				Help: "Host build information",
			},
			[]string{"version"},
		),
		LifecycleEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quayside_extension_lifecycle_events_total",
				Help: "Total number of extension lifecycle events by event",
			},
			[]string{"event"},
		),
	}

	reg.MustRegister(m.BuildInfo)
	reg.MustRegister(m.LifecycleEvents)
	m.BuildInfo.WithLabelValues(version).Set(1)

	return m
}

// Observe counts the runtime's lifecycle events published on b.
func (m *Metrics) Observe(b *bus.Bus) bus.Unsubscribe {
	return b.OnPrefix("plugin", func(topic string, _ any) {
		_, event, ok := bus.ParsePluginTopic(topic)
		if !ok {
			return
		}
		switch event {
		case bus.EventLoaded, bus.EventActivated, bus.EventFailed, bus.EventUnloaded:
			m.LifecycleEvents.WithLabelValues(event).Inc()
		}
	})
}

// Server exposes /metrics and the /healthz probes on one listener.
type Server struct {
	addr     string
	registry *prometheus.Registry
	metrics  *Metrics
	ready    ReadinessChecker
	srv      *http.Server

	mu      sync.Mutex
	ln      net.Listener
	stopped bool
}

// NewServer prepares a server for addr ("host:port"; port 0 picks one). A
// nil ready reports ready.
func NewServer(addr, version string, ready ReadinessChecker) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s := &Server{
		addr:     addr,
		registry: reg,
		metrics:  NewMetrics(reg, version),
		ready:    ready,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("GET /healthz/liveness", func(w http.ResponseWriter, _ *http.Request) {
		writeProbe(w, true)
	})
	mux.HandleFunc("GET /healthz/readiness", func(w http.ResponseWriter, _ *http.Request) {
		writeProbe(w, s.ready == nil || s.ready())
	})
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// Registry is where subsystems register their collectors.
func (s *Server) Registry() prometheus.Registerer {
	return s.registry
}

// Metrics returns the host metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens and serves in the background. The returned channel carries
// a serve failure, if any, and is closed once serving ends. A server starts
// at most once.
func (s *Server) Start() (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil || s.stopped {
		return nil, oops.In("observability").Errorf("observability server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.In("observability").With("addr", s.addr).Wrapf(err, "listen")
	}
	s.ln = ln

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		err := s.srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observability server failed", "addr", ln.Addr().String(), "error", err)
			errCh <- err
		}
	}()

	slog.Info("observability server listening", "addr", ln.Addr().String())
	return errCh, nil
}

// Stop shuts the server down gracefully. Stopping a server that is not
// running does nothing.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := s.ln != nil && !s.stopped
	s.stopped = true
	s.mu.Unlock()
	if !running {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return oops.In("observability").Wrapf(err, "shutdown")
	}
	slog.Info("observability server stopped")
	return nil
}

// Run serves until ctx is done or serving fails, then shuts down. It is
// meant to run inside an errgroup next to the host.
func (s *Server) Run(ctx context.Context) error {
	errCh, err := s.Start()
	if err != nil {
		return err
	}
	select {
	case err, failed := <-errCh:
		if failed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func writeProbe(w http.ResponseWriter, ok bool) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	status, body := http.StatusOK, "ok\n"
	if !ok {
		status, body = http.StatusServiceUnavailable, "not ready\n"
	}
	w.WriteHeader(status)
	//nolint:errcheck // the client may already be gone
	w.Write([]byte(body))
}
