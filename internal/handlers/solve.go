package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"cvrp-router/internal/cache"
	"cvrp-router/internal/distance"
	"cvrp-router/internal/models"
	"cvrp-router/internal/report"
	"cvrp-router/internal/routing"
)

// SolveRequest is the body of POST /api/v1/solve: an instance plus solve options
type SolveRequest struct {
	models.Instance
	Strategy string `json:"strategy,omitempty"`
	Improve  bool   `json:"improve,omitempty"`
	Persist  bool   `json:"persist,omitempty"`
}

type solveOptions struct {
	strategy routing.Strategy
	improve  bool
	persist  bool
}

// HandleSolve handles POST /api/v1/solve
func (h *Handler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		log.Printf("[HTTP] POST /api/v1/solve: invalid_json err=%v", err)
		h.handleValidationError(w, "Invalid request body")
		return
	}

	strategy, err := h.strategy(req.Strategy)
	if err != nil {
		h.handleValidationError(w, err.Error())
		return
	}

	inst := req.Instance
	log.Printf("[HTTP] POST /api/v1/solve: name=%q points=%d vehicles=%d capacity=%d strategy=%s improve=%v",
		inst.Name, len(inst.Points), inst.Vehicles, inst.Capacity, strategy, req.Improve)

	rep, err := h.solve(r.Context(), &inst, solveOptions{strategy: strategy, improve: req.Improve, persist: req.Persist})
	if err != nil {
		h.handleSolveError(w, err)
		return
	}

	h.respond(w, r, rep)
}

// HandleSample handles GET /api/v1/sample. Path cheapest arc is the default
// here because cheapest insertion strands one point of the sample.
func (h *Handler) HandleSample(w http.ResponseWriter, r *http.Request) {
	strategy := routing.StrategyPathCheapestArc
	if name := r.URL.Query().Get("strategy"); name != "" {
		parsed, err := routing.ParseStrategy(name)
		if err != nil {
			h.handleValidationError(w, err.Error())
			return
		}
		strategy = parsed
	}

	improve := false
	if v := r.URL.Query().Get("improve"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.handleValidationError(w, "improve must be a boolean")
			return
		}
		improve = b
	}

	rep, err := h.solve(r.Context(), models.SampleInstance(), solveOptions{strategy: strategy, improve: improve})
	if err != nil {
		h.handleSolveError(w, err)
		return
	}

	h.respond(w, r, rep)
}

func (h *Handler) strategy(name string) (routing.Strategy, error) {
	if name == "" && h.DefaultStrategy != "" {
		return h.DefaultStrategy, nil
	}
	return routing.ParseStrategy(name)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, rep *models.SolutionReport) {
	if wantsText(r) {
		h.writeText(w, rep)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

// solve runs one instance end to end: cache lookup, construction, report,
// optional persistence and cache fill.
func (h *Handler) solve(ctx context.Context, inst *models.Instance, opts solveOptions) (*models.SolutionReport, error) {
	start := time.Now()

	key := ""
	if h.Cache != nil && !opts.persist {
		key = cache.Key(inst, string(opts.strategy), opts.improve)
		cached, err := h.Cache.Get(ctx, key)
		if err != nil {
			log.Printf("[CACHE] Lookup failed, solving: %v", err)
		} else if cached != nil {
			log.Printf("[CACHE] Hit: name=%q strategy=%s", inst.Name, opts.strategy)
			return cached, nil
		}
	}

	req, err := routing.NewRequest(ctx, inst, h.OSRM, opts.strategy, opts.improve)
	if err != nil {
		return nil, err
	}

	sol, err := h.Solver.Solve(ctx, req)
	if err != nil {
		return nil, err
	}

	rep, err := report.Build(sol, req.Oracle, req.Dimensions[0])
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	if opts.persist && h.DB != nil {
		run := newRun(inst, rep, time.Since(start))
		created, err := h.DB.Runs().Create(ctx, run, runStops(rep, req.Oracle))
		if err != nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
		rep.RunID = created.ID
		log.Printf("[STORE] Saved run: id=%s routes=%d", created.ID, len(rep.Routes))
	}

	if key != "" {
		if err := h.Cache.Set(ctx, key, rep); err != nil {
			log.Printf("[CACHE] Store failed: %v", err)
		}
	}

	return rep, nil
}

func newRun(inst *models.Instance, rep *models.SolutionReport, elapsed time.Duration) *models.Run {
	return &models.Run{
		InstanceName:  inst.Name,
		Strategy:      rep.Strategy,
		Vehicles:      inst.Vehicles,
		Capacity:      inst.Capacity,
		Points:        len(inst.Points),
		Objective:     rep.Objective,
		TotalDistance: rep.TotalDistance,
		TotalLoad:     rep.TotalLoad,
		DurationMs:    elapsed.Milliseconds(),
	}
}

func runStops(rep *models.SolutionReport, oracle distance.Oracle) []models.RunStop {
	var stops []models.RunStop
	for _, rr := range rep.Routes {
		for i, s := range rr.Stops {
			stop := models.RunStop{
				Vehicle:    rr.Vehicle,
				RouteOrder: i,
				Node:       s.Node,
				Load:       s.Load,
			}
			if i > 0 {
				stop.DistanceFromPrev = oracle.Distance(rr.Stops[i-1].Node, s.Node)
			}
			stops = append(stops, stop)
		}
	}
	return stops
}
