package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/docextract/internal/analyzer/mock"
	"github.com/kiranshivaraju/docextract/internal/cache"
	"github.com/kiranshivaraju/docextract/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── mock cache ──────────────────────────────────────────────────────────────

type testCache struct {
	pingErr error
}

func (c *testCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *testCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *testCache) Delete(_ context.Context, _ string) error                          { return nil }
func (c *testCache) Ping(_ context.Context) error                                      { return c.pingErr }

var _ cache.Cache = (*testCache)(nil)

func getHealth(t *testing.T, h http.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

// ─── healthHandler ───────────────────────────────────────────────────────────

func TestHealthHandler_CacheDisabled(t *testing.T) {
	store := jobs.NewMemoryStore()
	require.NoError(t, store.Create("j1", "a.pdf"))

	w, body := getHealth(t, healthHandler(store, mock.NewMockAnalyzer(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "mock", body["analyzer"])
	assert.Equal(t, float64(1), body["jobs"])
	assert.Equal(t, "disabled", body["cache"])
}

func TestHealthHandler_CacheHealthy(t *testing.T) {
	w, body := getHealth(t, healthHandler(jobs.NewMemoryStore(), mock.NewMockAnalyzer(), &testCache{}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["cache"])
}

func TestHealthHandler_CacheDown(t *testing.T) {
	c := &testCache{pingErr: errors.New("connection refused")}
	w, body := getHealth(t, healthHandler(jobs.NewMemoryStore(), mock.NewMockAnalyzer(), c))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "degraded", body["cache"])
}

// ─── parseLevel ──────────────────────────────────────────────────────────────

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

// ─── run ─────────────────────────────────────────────────────────────────────

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("DOCEXTRACT_ANALYZER", "textract")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
