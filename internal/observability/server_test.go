// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/memstore"
)

// startServer starts a server on a free port and stops it when the test ends.
func startServer(t *testing.T, ready ReadinessChecker) (*Server, <-chan error) {
	t.Helper()
	server := NewServer("127.0.0.1:0", ready, nil)

	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	if server.Addr() == "" {
		t.Fatal("server address is empty")
	}
	return server, errCh
}

// get fetches path from server and returns the status and trimmed body.
func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	if err != nil {
		t.Fatalf("failed to GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read %s body: %v", path, err)
	}
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func TestServer_Metrics(t *testing.T) {
	server, _ := startServer(t, func() bool { return true })

	status, body := get(t, server, "/metrics")
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
	for _, want := range []string{"# HELP", "# TYPE", "go_", "process_"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}

	// Vectors only appear once a label set has been observed.
	metrics := server.Metrics()
	metrics.RecordAuthOperation("valid_login", "success")
	metrics.RecordHTTPRequest("GET", "/profile", http.StatusOK, 5*time.Millisecond)

	_, body = get(t, server, "/metrics")
	for _, name := range []string{
		"authd_auth_operations_total",
		"authd_http_requests_total",
		"authd_http_request_duration_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s metric", name)
		}
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		ready      ReadinessChecker
		path       string
		wantStatus int
		wantBody   string
	}{
		{"liveness ignores readiness", func() bool { return false }, "/healthz/liveness", http.StatusOK, "ok"},
		{"ready", func() bool { return true }, "/healthz/readiness", http.StatusOK, "ok"},
		{"not ready", func() bool { return false }, "/healthz/readiness", http.StatusServiceUnavailable, "not ready"},
		{"nil checker counts as ready", nil, "/healthz/readiness", http.StatusOK, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := startServer(t, tt.ready)
			status, body := get(t, server, tt.path)
			if status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
			if body != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, body)
			}
		})
	}
}

// authd serve flips one atomic.Bool: false while stores open, true once the
// web server listens, false again when shutdown begins. The endpoint must track
// every transition without restarting the server.
func TestServer_ReadinessFollowsServeLifecycle(t *testing.T) {
	var ready atomic.Bool
	server, _ := startServer(t, ready.Load)

	steps := []struct {
		phase      string
		ready      bool
		wantStatus int
	}{
		{"starting", false, http.StatusServiceUnavailable},
		{"listening", true, http.StatusOK},
		{"shutting down", false, http.StatusServiceUnavailable},
	}
	for _, step := range steps {
		ready.Store(step.ready)
		if status, _ := get(t, server, "/healthz/readiness"); status != step.wantStatus {
			t.Errorf("%s: expected status %d, got %d", step.phase, step.wantStatus, status)
		}
	}

	// Liveness stays up while draining.
	if status, _ := get(t, server, "/healthz/liveness"); status != http.StatusOK {
		t.Errorf("expected liveness 200 during shutdown, got %d", status)
	}
}

func TestServer_ExposesAuthServiceOperations(t *testing.T) {
	server, _ := startServer(t, nil)

	hasher, err := auth.NewBcryptHasher(4)
	if err != nil {
		t.Fatalf("failed to create hasher: %v", err)
	}
	svc, err := auth.NewService(memstore.New(), hasher, auth.WithMetrics(server.Metrics()))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx := context.Background()
	if _, err := svc.RegisterUser(ctx, "alice@example.com", "hunter2"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.RegisterUser(ctx, "alice@example.com", "again"); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	svc.ValidLogin(ctx, "alice@example.com", "wrong")
	svc.ValidLogin(ctx, "nobody@example.com", "hunter2")

	_, body := get(t, server, "/metrics")
	for _, want := range []string{
		`authd_auth_operations_total{operation="register_user",outcome="success"} 1`,
		`authd_auth_operations_total{operation="register_user",outcome="conflict"} 1`,
		`authd_auth_operations_total{operation="valid_login",outcome="rejected"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestServer_MetricsIncrement(t *testing.T) {
	server, _ := startServer(t, nil)

	metrics := server.Metrics()
	metrics.RecordAuthOperation("create_session", "success")
	metrics.RecordAuthOperation("create_session", "success")
	metrics.RecordHTTPRequest("POST", "/sessions", http.StatusUnauthorized, time.Millisecond)

	_, body := get(t, server, "/metrics")
	if !strings.Contains(body, `authd_auth_operations_total{operation="create_session",outcome="success"} 2`) {
		t.Error("expected create_session success counter to be 2")
	}
	if !strings.Contains(body, `authd_http_requests_total{method="POST",route="/sessions",status="401"} 1`) {
		t.Error("expected POST /sessions 401 counter to be 1")
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server, _ := startServer(t, nil)

	if _, err := server.Start(); err == nil {
		t.Error("expected error on double start, got nil")
	}
}

func TestServer_StopWithoutStart(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Errorf("stop without start should not error: %v", err)
	}
}

func TestServer_ErrorChannel(t *testing.T) {
	t.Run("reports serve errors", func(t *testing.T) {
		server, errCh := startServer(t, nil)

		// Closing the listener underneath Serve is what serve's
		// monitorServerErrors reacts to.
		_ = server.listener.Close()

		select {
		case err := <-errCh:
			if err == nil {
				t.Error("expected an error after closing the listener")
			}
		case <-time.After(2 * time.Second):
			t.Error("timeout waiting for error on error channel")
		}
	})

	t.Run("closes on normal shutdown", func(t *testing.T) {
		server := NewServer("127.0.0.1:0", nil, nil)
		errCh, err := server.Start()
		if err != nil {
			t.Fatalf("failed to start server: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			t.Fatalf("failed to stop server: %v", err)
		}

		select {
		case err, ok := <-errCh:
			if ok && err != nil {
				t.Errorf("unexpected error on normal shutdown: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("timeout waiting for error channel to close")
		}
	})
}
