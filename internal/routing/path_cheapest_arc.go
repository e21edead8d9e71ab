package routing

import (
	"context"

	"cvrp-router/internal/distance"
)

// pathCheapestArc fills vehicles one after another. Each path grows from its
// last node along the cheapest arc to a point that still fits; the lowest
// point index wins ties. It returns the points left once every vehicle is full.
func pathCheapestArc(ctx context.Context, oracle distance.Oracle, pl *plan, pending []int) ([]int, error) {
	unrouted := append([]int(nil), pending...)

	for v := range pl.routes {
		for len(unrouted) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			route := pl.routes[v]
			last := route[len(route)-2]

			next := -1
			var nextCost float64
			for _, p := range unrouted {
				if !pl.fits(v, p) {
					continue
				}
				cost := oracle.Distance(last, p)
				if next < 0 || cost < nextCost {
					next, nextCost = p, cost
				}
			}
			if next < 0 {
				break
			}

			pl.insert(v, len(route)-2, next)
			unrouted = removePoint(unrouted, next)
		}
	}

	return unrouted, nil
}
