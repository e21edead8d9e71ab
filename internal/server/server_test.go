package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvrp-router/internal/config"
	"cvrp-router/internal/handlers"
	"cvrp-router/internal/models"
	"cvrp-router/internal/routing"
	"cvrp-router/internal/sqlite"
	"cvrp-router/internal/testutil"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &handlers.Handler{DB: store, Solver: routing.NewSolver()}
	s := newServer(cfg, h, store, nil)

	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestRoutes(t *testing.T) {
	ts := newTestServer(t, &config.Config{})

	body, err := json.Marshal(handlers.SolveRequest{Instance: *testutil.FivePointInstance(), Persist: true})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/v1/solve", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep models.SolutionReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	require.NotEmpty(t, rep.RunID)

	resp2, err := http.Get(ts.URL + "/api/v1/runs/" + rep.RunID + "/report")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	text, _ := io.ReadAll(resp2.Body)
	assert.Contains(t, string(text), "Objective: 18\n")

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/runs/"+rep.RunID, nil)
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp3.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &config.Config{})

	resp, err := http.Get(ts.URL + "/api/v1/solve")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &config.Config{})

	resp, err := http.Get(ts.URL + "/api/v1/sample")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), `http_requests_total{method="GET",path="/api/v1/sample",status="200"}`)
	assert.Contains(t, string(data), `cvrp_solves_total{outcome="ok",strategy="path_cheapest_arc"}`)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, &config.Config{RateRPS: 0.001, RateBurst: 1})

	resp, err := http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var body handlers.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
}

func TestNewStartShutdown(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{
		Addr:             "127.0.0.1:0",
		DBPath:           filepath.Join(t.TempDir(), "runs.db"),
		RedisURL:         "redis://" + mr.Addr(),
		SolutionCacheTTL: time.Minute,
		DefaultStrategy:  "path_cheapest_arc",
	}

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)

	addr, err := s.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	_, err := New(context.Background(), &config.Config{DefaultStrategy: "savings"})
	assert.Error(t, err)
}
