package routing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"cvrp-router/internal/capacity"
	"cvrp-router/internal/distance"
	"cvrp-router/internal/metrics"
	"cvrp-router/internal/models"
)

// plan is the mutable route set of a single solve
type plan struct {
	routes   [][]int
	trackers []*capacity.Tracker
}

func newPlan(vehicles int, dims []*capacity.Dimension) *plan {
	pl := &plan{routes: make([][]int, vehicles)}
	for v := range pl.routes {
		pl.routes[v] = []int{models.DepotIndex, models.DepotIndex}
	}
	for _, d := range dims {
		pl.trackers = append(pl.trackers, d.NewTracker(vehicles))
	}
	return pl
}

// fits reports whether point can join route v under every dimension
func (pl *plan) fits(v, point int) bool {
	for _, t := range pl.trackers {
		if !t.Fits(v, point) {
			return false
		}
	}
	return true
}

// insert places point between routes[v][position] and routes[v][position+1]
func (pl *plan) insert(v, position, point int) {
	r := append(pl.routes[v], 0)
	copy(r[position+2:], r[position+1:])
	r[position+1] = point
	pl.routes[v] = r
	for _, t := range pl.trackers {
		t.Add(v, point)
	}
}

type constructor func(ctx context.Context, oracle distance.Oracle, pl *plan, pending []int) ([]int, error)

type engine struct {
	constructors map[Strategy]constructor
}

// NewSolver creates a solver supporting every first-solution strategy
func NewSolver() Solver {
	return &engine{
		constructors: map[Strategy]constructor{
			StrategyCheapestInsertion: cheapestInsertion,
			StrategyPathCheapestArc:   pathCheapestArc,
		},
	}
}

// NewRequest validates an instance and derives its cost oracle and load
// dimension. osrm may be nil when no road router is configured.
func NewRequest(ctx context.Context, inst *models.Instance, osrm *distance.OSRMSource, strategy Strategy, improve bool) (*SolveRequest, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	oracle, err := distance.ForInstance(ctx, inst, osrm)
	if err != nil {
		return nil, err
	}
	dim, err := capacity.ForInstance(inst)
	if err != nil {
		return nil, err
	}
	return &SolveRequest{
		Instance:   inst,
		Oracle:     oracle,
		Dimensions: []*capacity.Dimension{dim},
		Strategy:   strategy,
		Improve:    improve,
	}, nil
}

func (e *engine) Solve(ctx context.Context, req *SolveRequest) (*models.Solution, error) {
	start := time.Now()

	strategy := StrategyCheapestInsertion
	if req != nil && req.Strategy != "" {
		strategy = req.Strategy
	}

	sol, err := e.solve(ctx, req, strategy)

	points := 0
	if req != nil && req.Instance != nil {
		points = len(req.Instance.Points) - 1
	}
	metrics.ObserveSolve(string(strategy), outcomeOf(err), time.Since(start), points)

	if err != nil {
		return nil, err
	}
	log.Printf("[ROUTING] Solve complete: strategy=%s vehicles_used=%d/%d objective=%.2f duration=%s",
		strategy, sol.UsedVehicles(), sol.Vehicles(), sol.Objective, time.Since(start))
	return sol, nil
}

func outcomeOf(err error) string {
	var invalid *models.ErrInvalidInstance
	var infeasible *ErrConstructionInfeasible
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &invalid):
		return "invalid"
	case errors.As(err, &infeasible):
		return "infeasible"
	}
	return "error"
}

func (e *engine) solve(ctx context.Context, req *SolveRequest, strategy Strategy) (*models.Solution, error) {
	dims, err := validateRequest(req)
	if err != nil {
		log.Printf("[ERROR] Invalid solve request: err=%v", err)
		return nil, err
	}

	build, ok := e.constructors[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	inst := req.Instance
	log.Printf("[ROUTING] Starting solve: points=%d demand=%d vehicles=%d capacity=%d strategy=%s improve=%v",
		inst.NumPoints(), inst.TotalDemand(), inst.Vehicles, inst.Capacity, strategy, req.Improve)

	pending := make([]int, 0, inst.NumPoints()-1)
	for p := 1; p < inst.NumPoints(); p++ {
		pending = append(pending, p)
	}

	pl := newPlan(inst.Vehicles, dims)
	unrouted, err := build(ctx, req.Oracle, pl, pending)
	if err != nil {
		return nil, err
	}
	if len(unrouted) > 0 {
		log.Printf("[ERROR] Construction infeasible: strategy=%s unrouted=%v vehicles=%d capacity=%d",
			strategy, unrouted, inst.Vehicles, inst.Capacity)
		return nil, &ErrConstructionInfeasible{
			Strategy: strategy,
			Unrouted: unrouted,
			Vehicles: inst.Vehicles,
			Capacity: inst.Capacity,
		}
	}

	if req.Improve {
		for _, route := range pl.routes {
			if err := twoOpt(ctx, req.Oracle, route); err != nil {
				return nil, err
			}
		}
	}

	return assemble(strategy, req.Oracle, dims, pl.routes), nil
}

// validateRequest checks the instance and that oracle and dimensions agree
// with it. It returns the dimensions to enforce.
func validateRequest(req *SolveRequest) ([]*capacity.Dimension, error) {
	if req == nil || req.Instance == nil {
		return nil, &models.ErrInvalidInstance{Reason: "no instance given", Point: -1}
	}
	inst := req.Instance
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if req.Oracle == nil {
		return nil, &models.ErrInvalidInstance{Reason: "no cost oracle given", Point: -1}
	}
	if req.Oracle.Size() != inst.NumPoints() {
		return nil, &models.ErrInvalidInstance{
			Reason: fmt.Sprintf("cost oracle covers %d points, instance has %d", req.Oracle.Size(), inst.NumPoints()),
			Point:  -1,
		}
	}

	dims := req.Dimensions
	if len(dims) == 0 {
		dim, err := capacity.ForInstance(inst)
		if err != nil {
			return nil, err
		}
		dims = []*capacity.Dimension{dim}
	}
	for _, d := range dims {
		if d.Size() != inst.NumPoints() {
			return nil, &models.ErrInvalidInstance{
				Reason: fmt.Sprintf("dimension %s covers %d points, instance has %d", d.Name(), d.Size(), inst.NumPoints()),
				Point:  -1,
			}
		}
	}
	return dims, nil
}

func assemble(strategy Strategy, oracle distance.Oracle, dims []*capacity.Dimension, routes [][]int) *models.Solution {
	sol := &models.Solution{
		Strategy: string(strategy),
		Routes:   make([]models.Route, len(routes)),
		Cumuls:   make(map[string][][]int, len(dims)),
	}
	for v, nodes := range routes {
		sol.Routes[v] = models.Route{Vehicle: v, Nodes: nodes}
		for i := 0; i+1 < len(nodes); i++ {
			sol.Objective += oracle.Distance(nodes[i], nodes[i+1])
		}
	}
	for _, d := range dims {
		perVehicle := make([][]int, len(routes))
		for v, nodes := range routes {
			perVehicle[v] = d.Loads(nodes)
		}
		sol.Cumuls[d.Name()] = perVehicle
	}
	return sol
}

// SolveBatch solves independent requests concurrently, at most limit at a
// time. The first failure cancels the remaining solves.
func SolveBatch(ctx context.Context, solver Solver, reqs []*SolveRequest, limit int) ([]*models.Solution, error) {
	solutions := make([]*models.Solution, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, req := range reqs {
		g.Go(func() error {
			sol, err := solver.Solve(ctx, req)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			solutions[i] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return solutions, nil
}
