package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"card-parlor/internal/config"
)

func TestNewAppInMemory(t *testing.T) {
	t.Setenv("ADMIN_API_KEY", "secret")
	t.Setenv("BIG_BLIND", "50")
	t.Setenv("SMALL_BLIND", "25")
	cfg, err := config.LoadApp()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Server.PostgresDSN = ""
	cfg.Server.RedisAddr = ""

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /healthz 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/games", strings.NewReader(`{"host_id":"h1"}`))
	a.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"big_blind":50`) {
		t.Fatalf("table defaults not applied: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected admin routes to need the key, got %d", rec.Code)
	}
}
