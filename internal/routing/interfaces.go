package routing

import (
	"context"
	"fmt"
	"strings"

	"cvrp-router/internal/capacity"
	"cvrp-router/internal/distance"
	"cvrp-router/internal/models"
)

// Strategy selects the first-solution heuristic
type Strategy string

const (
	// StrategyCheapestInsertion repeatedly inserts the globally cheapest
	// (point, route, position) triple
	StrategyCheapestInsertion Strategy = "cheapest_insertion"
	// StrategyPathCheapestArc extends each vehicle path from its last node
	// by the cheapest feasible arc, one vehicle after another
	StrategyPathCheapestArc Strategy = "path_cheapest_arc"
)

// ParseStrategy maps a strategy name to a Strategy. The empty string selects
// cheapest insertion.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyCheapestInsertion:
		return StrategyCheapestInsertion, nil
	case StrategyPathCheapestArc:
		return StrategyPathCheapestArc, nil
	}
	return "", fmt.Errorf("unknown strategy %q", name)
}

// SolveRequest contains the input for one solve
type SolveRequest struct {
	Instance   *models.Instance
	Oracle     distance.Oracle
	Dimensions []*capacity.Dimension
	Strategy   Strategy
	// Improve runs intra-route 2-opt after construction
	Improve bool
}

// Solver produces a feasible solution for a request
type Solver interface {
	Solve(ctx context.Context, req *SolveRequest) (*models.Solution, error)
}

// ErrConstructionInfeasible is returned when the heuristic runs out of
// capacity-feasible insertions before every point is routed
type ErrConstructionInfeasible struct {
	Strategy Strategy
	Unrouted []int
	Vehicles int
	Capacity int
}

func (e *ErrConstructionInfeasible) Error() string {
	return fmt.Sprintf("construction infeasible: %s left %d point(s) unrouted %v with %d vehicle(s) of capacity %d",
		e.Strategy, len(e.Unrouted), e.Unrouted, e.Vehicles, e.Capacity)
}
