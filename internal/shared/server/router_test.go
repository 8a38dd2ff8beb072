package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cv-analyzer/internal/services/health"
	"cv-analyzer/internal/shared/auth"
	"cv-analyzer/internal/shared/config"
)

func newSigner(t *testing.T) *auth.Signer {
	t.Helper()
	s, err := auth.NewSigner("router-secret", time.Minute, time.Hour, true)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return s
}

func TestHealthReportsDegradedDatabase(t *testing.T) {
	down := health.PingFunc(func(context.Context) error { return errors.New("refused") })
	r := NewRouter(RouterDeps{
		Config:   config.Config{Env: "dev"},
		Verifier: newSigner(t),
		Health:   health.NewService(down, nil),
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"degraded"`) {
		t.Fatalf("expected degraded status, got %s", resp.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewRouter(RouterDeps{Config: config.Config{Env: "dev"}, Verifier: newSigner(t)})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "analysis_jobs_received_total") {
		t.Fatalf("expected job counters in output")
	}
}

func TestRejectsRefreshTokenAsBearer(t *testing.T) {
	signer := newSigner(t)
	pair, err := signer.IssuePair(auth.Claims{Sub: "user-1", Username: "ada"})
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	r := NewRouter(RouterDeps{Config: config.Config{Env: "dev"}, Verifier: signer})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Refresh)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	for in, want := range map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"} {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q)=%q want %q", in, got, want)
		}
	}
}
