// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/quayside/internal/bus"
)

func startServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", "1.2.3", ready)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, nil)

	status, body := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `quayside_build_info{version="1.2.3"} 1`)
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, func() bool { return false })

	status, body := get(t, server, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)
}

func TestServer_Readiness(t *testing.T) {
	var ready atomic.Bool
	server := startServer(t, ready.Load)

	status, body := get(t, server, "/healthz/readiness")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not ready\n", body)

	ready.Store(true)
	status, _ = get(t, server, "/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_ReadinessWithNilChecker(t *testing.T) {
	server := startServer(t, nil)
	status, _ := get(t, server, "/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)
	_, err := server.Start()
	assert.Error(t, err)
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", "dev", nil)
	assert.NoError(t, server.Stop(context.Background()))
	assert.Empty(t, server.Addr())
}

func TestServer_ErrorChannelClosesOnShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", "dev", nil)
	errCh, err := server.Start()
	require.NoError(t, err)
	require.NoError(t, server.Stop(context.Background()))

	select {
	case err, ok := <-errCh:
		assert.False(t, ok, "expected closed channel, got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after Stop")
	}
}

func TestMetrics_ObserveLifecycle(t *testing.T) {
	server := NewServer("127.0.0.1:0", "dev", nil)
	b := bus.New()
	unsubscribe := server.Metrics().Observe(b)

	b.Emit(bus.PluginTopic("acme.tools", bus.EventLoaded), bus.LifecycleEvent{ExtensionID: "acme.tools"})
	b.Emit(bus.PluginTopic("acme.tools", bus.EventActivated), nil)
	b.Emit(bus.PluginTopic("acme.tools", bus.EventLoaded), nil)
	b.Emit(bus.PluginTopic("acme.tools", "custom"), nil)
	b.Emit("configuration.editor", nil)

	events := server.Metrics().LifecycleEvents
	assert.InDelta(t, 2, testutil.ToFloat64(events.WithLabelValues(bus.EventLoaded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(events.WithLabelValues(bus.EventActivated)), 0)

	unsubscribe()
	b.Emit(bus.PluginTopic("acme.tools", bus.EventLoaded), nil)
	assert.InDelta(t, 2, testutil.ToFloat64(events.WithLabelValues(bus.EventLoaded)), 0)
}

func TestServer_RunStopsWithContext(t *testing.T) {
	server := NewServer("127.0.0.1:0", "dev", nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	require.Eventually(t, func() bool { return server.Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	status, _ := get(t, server, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServer_RunListenFailure(t *testing.T) {
	server := NewServer("256.0.0.1:bad", "dev", nil)
	assert.Error(t, server.Run(context.Background()))
}
