package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvrp-router/internal/cache"
	"cvrp-router/internal/models"
	"cvrp-router/internal/routing"
	"cvrp-router/internal/sqlite"
	"cvrp-router/internal/testutil"
)

func setupTestHandler(t *testing.T) *Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &Handler{
		DB:     store,
		Solver: routing.NewSolver(),
	}
}

func solveBody(t *testing.T, req SolveRequest) *bytes.Reader {
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Error
}

func routeNodes(rep *models.SolutionReport) [][]int {
	out := make([][]int, len(rep.Routes))
	for i, rr := range rep.Routes {
		for _, s := range rr.Stops {
			out[i] = append(out[i], s.Node)
		}
	}
	return out
}

func TestHandleHealthCheck(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleHealthCheck(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["database"])
}

func TestHandleHealthCheckWithoutStore(t *testing.T) {
	h := &Handler{Solver: routing.NewSolver()}

	w := httptest.NewRecorder()
	h.HandleHealthCheck(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "disabled", body["database"])
}

func TestHandleSolve(t *testing.T) {
	h := setupTestHandler(t)

	req := httptest.NewRequest("POST", "/api/v1/solve", solveBody(t, SolveRequest{Instance: *testutil.FivePointInstance()}))
	w := httptest.NewRecorder()
	h.HandleSolve(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rep models.SolutionReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rep))
	assert.Equal(t, "cheapest_insertion", rep.Strategy)
	assert.Equal(t, [][]int{{0, 2, 1, 0}, {0, 4, 3, 0}}, routeNodes(&rep))
	assert.Equal(t, 18.0, rep.Objective)
	assert.Equal(t, 4, rep.TotalLoad)
	assert.Empty(t, rep.RunID)
}

func TestHandleSolveDefaultStrategy(t *testing.T) {
	h := setupTestHandler(t)
	h.DefaultStrategy = routing.StrategyPathCheapestArc

	req := httptest.NewRequest("POST", "/api/v1/solve", solveBody(t, SolveRequest{Instance: *testutil.FivePointInstance()}))
	w := httptest.NewRecorder()
	h.HandleSolve(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var rep models.SolutionReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rep))
	assert.Equal(t, "path_cheapest_arc", rep.Strategy)
	assert.Equal(t, [][]int{{0, 1, 2, 0}, {0, 3, 4, 0}}, routeNodes(&rep))
}

func TestHandleSolveText(t *testing.T) {
	h := setupTestHandler(t)

	req := httptest.NewRequest("POST", "/api/v1/solve", solveBody(t, SolveRequest{Instance: *testutil.FivePointInstance()}))
	req.Header.Set("Accept", "text/plain")
	w := httptest.NewRecorder()
	h.HandleSolve(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Objective: 18\nRoute for vehicle 0:\n"))
	assert.Contains(t, w.Body.String(), "Total Load of all routes: 4\n")
}

func TestHandleSolveInvalidBody(t *testing.T) {
	h := setupTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"points": [`},
		{"unknown field", `{"points": [{"x": 0, "y": 0}], "vehicles": 1, "capacity": 1, "fleet": 3}`},
		{"unknown strategy", `{"points": [{"x": 0, "y": 0}], "vehicles": 1, "capacity": 1, "strategy": "savings"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandleSolve(w, httptest.NewRequest("POST", "/api/v1/solve", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
		})
	}
}

func TestHandleSolveInvalidInstance(t *testing.T) {
	h := setupTestHandler(t)

	inst := testutil.FivePointInstance()
	inst.Points[3].Demand = 5

	w := httptest.NewRecorder()
	h.HandleSolve(w, httptest.NewRequest("POST", "/api/v1/solve", solveBody(t, SolveRequest{Instance: *inst})))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, "INVALID_INSTANCE", detail.Code)
	assert.Equal(t, map[string]interface{}{"point": 3.0}, detail.Details)
}

func TestHandleSolveInfeasible(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSolve(w, httptest.NewRequest("POST", "/api/v1/solve", solveBody(t, SolveRequest{Instance: *testutil.LineInstance(4, 2, 2, 3)})))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, "CONSTRUCTION_INFEASIBLE", detail.Code)

	details, ok := detail.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{3.0}, details["unrouted"])
	assert.Equal(t, 2.0, details["vehicles"])
}

func TestHandleSample(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSample(w, httptest.NewRequest("GET", "/api/v1/sample", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var rep models.SolutionReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rep))
	assert.Equal(t, "path_cheapest_arc", rep.Strategy)
	assert.Equal(t, 8080.0, rep.Objective)
	assert.Equal(t, 60, rep.TotalLoad)
	assert.Equal(t, [][]int{
		{0, 7, 5, 6, 2, 0},
		{0, 9, 8, 14, 10, 0},
		{0, 13, 12, 11, 15, 0},
		{0, 1, 4, 3, 16, 0},
	}, routeNodes(&rep))
}

func TestHandleSampleImproved(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSample(w, httptest.NewRequest("GET", "/api/v1/sample?improve=true", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var rep models.SolutionReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rep))
	assert.Equal(t, 7760.0, rep.Objective)
}

func TestHandleSampleCheapestInsertionIsInfeasible(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSample(w, httptest.NewRequest("GET", "/api/v1/sample?strategy=cheapest_insertion", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "CONSTRUCTION_INFEASIBLE", decodeError(t, w).Code)
}

func TestHandleSampleBadQuery(t *testing.T) {
	h := setupTestHandler(t)

	for _, target := range []string{"/api/v1/sample?strategy=nope", "/api/v1/sample?improve=maybe"} {
		w := httptest.NewRecorder()
		h.HandleSample(w, httptest.NewRequest("GET", target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestPersistedRunLifecycle(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSolve(w, httptest.NewRequest("POST", "/api/v1/solve",
		solveBody(t, SolveRequest{Instance: *testutil.FivePointInstance(), Persist: true})))
	require.Equal(t, http.StatusOK, w.Code)

	var solved models.SolutionReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&solved))
	require.NotEmpty(t, solved.RunID)

	// list
	w = httptest.NewRecorder()
	h.HandleListRuns(w, httptest.NewRequest("GET", "/api/v1/runs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list RunListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "five-point", list.Runs[0].InstanceName)
	assert.Equal(t, 18.0, list.Runs[0].Objective)

	// detail
	req := httptest.NewRequest("GET", "/api/v1/runs/"+solved.RunID, nil)
	req.SetPathValue("id", solved.RunID)
	w = httptest.NewRecorder()
	h.HandleGetRun(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var detail RunDetailResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&detail))
	assert.Equal(t, solved.Routes, detail.Report.Routes)
	assert.Equal(t, solved.TotalDistance, detail.Report.TotalDistance)

	// text report
	req = httptest.NewRequest("GET", "/api/v1/runs/"+solved.RunID+"/report", nil)
	req.SetPathValue("id", solved.RunID)
	w = httptest.NewRecorder()
	h.HandleGetRunReport(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), " 0 Load(0) ->  2 Load(1) ->  1 Load(2) ->  0 Load(2)\n")

	// delete, then gone
	req = httptest.NewRequest("DELETE", "/api/v1/runs/"+solved.RunID, nil)
	req.SetPathValue("id", solved.RunID)
	w = httptest.NewRecorder()
	h.HandleDeleteRun(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/runs/"+solved.RunID, nil)
	req.SetPathValue("id", solved.RunID)
	w = httptest.NewRecorder()
	h.HandleGetRun(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunHandlersNotFound(t *testing.T) {
	h := setupTestHandler(t)

	req := httptest.NewRequest("DELETE", "/api/v1/runs/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	h.HandleDeleteRun(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)

	req = httptest.NewRequest("GET", "/api/v1/runs/missing/report", nil)
	req.SetPathValue("id", "missing")
	w = httptest.NewRecorder()
	h.HandleGetRunReport(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunHandlersWithoutStore(t *testing.T) {
	h := &Handler{Solver: routing.NewSolver()}

	w := httptest.NewRecorder()
	h.HandleListRuns(w, httptest.NewRequest("GET", "/api/v1/runs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// persisting without a store still solves
	w = httptest.NewRecorder()
	h.HandleSolve(w, httptest.NewRequest("POST", "/api/v1/solve",
		solveBody(t, SolveRequest{Instance: *testutil.FivePointInstance(), Persist: true})))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleListRunsBadLimit(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleListRuns(w, httptest.NewRequest("GET", "/api/v1/runs?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSolveUsesSolutionCache(t *testing.T) {
	mr := miniredis.RunT(t)
	sc, err := cache.NewRedisSolutionCache(context.Background(), "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { sc.Close() })

	h := setupTestHandler(t)
	h.Cache = sc

	solve := func() models.SolutionReport {
		w := httptest.NewRecorder()
		h.HandleSolve(w, httptest.NewRequest("POST", "/api/v1/solve", solveBody(t, SolveRequest{Instance: *testutil.FivePointInstance()})))
		require.Equal(t, http.StatusOK, w.Code)
		var rep models.SolutionReport
		require.NoError(t, json.NewDecoder(w.Body).Decode(&rep))
		return rep
	}

	first := solve()
	key := cache.Key(testutil.FivePointInstance(), "cheapest_insertion", false)
	assert.True(t, mr.Exists(key))

	second := solve()
	assert.Equal(t, first, second)
	assert.Len(t, mr.Keys(), 1)
}
