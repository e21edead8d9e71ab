// Package report turns solver output into per-route and fleet-wide figures
// and renders them as text.
package report

import (
	"fmt"
	"log"
	"math"

	"cvrp-router/internal/capacity"
	"cvrp-router/internal/distance"
	"cvrp-router/internal/models"
)

const distanceTolerance = 1e-6

// ErrPresentation is returned when asked to report on a solution that is
// incomplete or inconsistent with its oracle and dimension. Vehicle is -1
// when the problem is not tied to one route.
type ErrPresentation struct {
	Reason  string
	Vehicle int
}

func (e *ErrPresentation) Error() string {
	if e.Vehicle >= 0 {
		return fmt.Sprintf("cannot report solution: vehicle %d: %s", e.Vehicle, e.Reason)
	}
	return fmt.Sprintf("cannot report solution: %s", e.Reason)
}

func fail(vehicle int, format string, args ...any) error {
	err := &ErrPresentation{Reason: fmt.Sprintf(format, args...), Vehicle: vehicle}
	log.Printf("[REPORT] %v", err)
	return err
}

// Build computes the report of a complete solution. It never modifies sol.
func Build(sol *models.Solution, oracle distance.Oracle, dim *capacity.Dimension) (*models.SolutionReport, error) {
	if sol == nil {
		return nil, fail(-1, "no solution")
	}
	if len(sol.Routes) == 0 {
		return nil, fail(-1, "solution has no routes")
	}
	if dim.Size() != oracle.Size() {
		return nil, fail(-1, "dimension covers %d points, oracle %d", dim.Size(), oracle.Size())
	}

	n := oracle.Size()
	visited := make([]bool, n)
	rep := &models.SolutionReport{
		Strategy: sol.Strategy,
		Routes:   make([]models.RouteReport, 0, len(sol.Routes)),
	}

	for v, route := range sol.Routes {
		nodes := route.Nodes
		if err := checkShape(v, nodes, n); err != nil {
			return nil, err
		}
		for _, p := range nodes[1 : len(nodes)-1] {
			if visited[p] {
				return nil, fail(v, "point %d is visited more than once", p)
			}
			visited[p] = true
		}

		rr := models.RouteReport{
			Vehicle: v,
			Stops:   make([]models.StopLoad, len(nodes)),
			Load:    dim.Load(nodes),
		}
		for i, p := range nodes {
			load := dim.CumulativeLoadAt(nodes, i)
			if load > dim.Capacity() {
				return nil, fail(v, "load %d at position %d exceeds capacity %d", load, i, dim.Capacity())
			}
			rr.Stops[i] = models.StopLoad{Node: p, Load: load}
			if i > 0 {
				rr.Distance += oracle.Distance(nodes[i-1], p)
			}
		}

		rep.Routes = append(rep.Routes, rr)
		rep.TotalDistance += rr.Distance
		rep.TotalLoad += rr.Load
	}

	for p := 1; p < n; p++ {
		if !visited[p] {
			return nil, fail(-1, "point %d is not routed", p)
		}
	}

	rep.Objective = rep.TotalDistance
	return rep, nil
}

func checkShape(v int, nodes []int, n int) error {
	if len(nodes) < 2 {
		return fail(v, "route has %d nodes, needs both depot markers", len(nodes))
	}
	if nodes[0] != models.DepotIndex || nodes[len(nodes)-1] != models.DepotIndex {
		return fail(v, "route must start and end at the depot")
	}
	for i, p := range nodes {
		if p < 0 || p >= n {
			return fail(v, "node %d at position %d is out of range", p, i)
		}
		if p == models.DepotIndex && i != 0 && i != len(nodes)-1 {
			return fail(v, "depot appears inside the route at position %d", i)
		}
	}
	return nil
}

// Verify recomputes every figure of a report from its visit sequences, the
// demands and the oracle, and reports the first disagreement.
func Verify(rep *models.SolutionReport, oracle distance.Oracle, dim *capacity.Dimension) error {
	if rep == nil {
		return fail(-1, "no report")
	}

	sol := &models.Solution{Strategy: rep.Strategy, Routes: make([]models.Route, len(rep.Routes))}
	for i, rr := range rep.Routes {
		nodes := make([]int, len(rr.Stops))
		for k, s := range rr.Stops {
			nodes[k] = s.Node
		}
		sol.Routes[i] = models.Route{Vehicle: rr.Vehicle, Nodes: nodes}
	}

	want, err := Build(sol, oracle, dim)
	if err != nil {
		return err
	}

	for i, rr := range rep.Routes {
		expected := want.Routes[i]
		for k, s := range rr.Stops {
			if s.Load != expected.Stops[k].Load {
				return fail(rr.Vehicle, "load at position %d is %d, recomputed %d", k, s.Load, expected.Stops[k].Load)
			}
		}
		if rr.Load != expected.Load {
			return fail(rr.Vehicle, "route load is %d, recomputed %d", rr.Load, expected.Load)
		}
		if !closeEnough(rr.Distance, expected.Distance) {
			return fail(rr.Vehicle, "route distance is %v, recomputed %v", rr.Distance, expected.Distance)
		}
	}
	if rep.TotalLoad != want.TotalLoad {
		return fail(-1, "total load is %d, recomputed %d", rep.TotalLoad, want.TotalLoad)
	}
	if !closeEnough(rep.TotalDistance, want.TotalDistance) {
		return fail(-1, "total distance is %v, recomputed %v", rep.TotalDistance, want.TotalDistance)
	}
	if !closeEnough(rep.Objective, want.Objective) {
		return fail(-1, "objective is %v, recomputed %v", rep.Objective, want.Objective)
	}
	return nil
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= distanceTolerance*math.Max(1, math.Abs(b))
}
