package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crosslake-dev/strait/pkg/config"
	"crosslake-dev/strait/pkg/gateway/handlers"
	"crosslake-dev/strait/pkg/session"
	"crosslake-dev/strait/pkg/upstream"
	"crosslake-dev/strait/pkg/usage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	}))
	t.Cleanup(backend.Close)

	upstreamCfg := upstream.DefaultConfig()
	upstreamCfg.BaseURL = backend.URL

	metrics := usage.NewMetrics(usage.MetricsConfig{}, nil)
	handler := handlers.New(handlers.Config{
		Sessions: session.NewMemoryStore(),
		Backend:  upstream.NewClient(upstreamCfg),
		Metrics:  metrics,
	})

	cfg := config.NewDefault()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second

	return New(&cfg.Server, &cfg.Telemetry.Metrics, handler, metrics)
}

func TestHandler_RoutesAndMiddleware(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("health status = %d", recorder.Code)
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Error("request id middleware not applied")
	}
}

func TestHandler_MetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("metrics status = %d", recorder.Code)
	}
}

func TestHandler_MetricsDisabled(t *testing.T) {
	srv := newTestServer(t)
	srv.metricsCfg.Enabled = false
	handler := srv.Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if recorder.Code != http.StatusNotFound {
		t.Errorf("metrics status = %d, want 404 when disabled", recorder.Code)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	// Wait for the server to come up, then cancel the context.
	deadline := time.After(2 * time.Second)
	for !srv.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("server never started")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}

	if srv.IsRunning() {
		t.Error("IsRunning true after shutdown")
	}
}
