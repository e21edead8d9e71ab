package routing

import (
	"context"

	"cvrp-router/internal/distance"
)

type insertion struct {
	point    int
	route    int
	position int
	cost     float64
}

// cheapestInsertion routes every point of pending by repeatedly applying the
// globally cheapest feasible insertion. Points are scanned in ascending
// order, then routes, then positions, and only a strictly cheaper candidate
// replaces the incumbent, so ties resolve to the lowest triple. It returns
// the points it could not place.
func cheapestInsertion(ctx context.Context, oracle distance.Oracle, pl *plan, pending []int) ([]int, error) {
	unrouted := append([]int(nil), pending...)

	for len(unrouted) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best, ok := bestInsertion(oracle, pl, unrouted)
		if !ok {
			return unrouted, nil
		}

		pl.insert(best.route, best.position, best.point)
		unrouted = removePoint(unrouted, best.point)
	}

	return nil, nil
}

func bestInsertion(oracle distance.Oracle, pl *plan, unrouted []int) (insertion, bool) {
	best := insertion{point: -1}
	for _, p := range unrouted {
		for v, route := range pl.routes {
			if !pl.fits(v, p) {
				continue
			}
			for i := 0; i+1 < len(route); i++ {
				a, b := route[i], route[i+1]
				cost := oracle.Distance(a, p) + oracle.Distance(p, b) - oracle.Distance(a, b)
				if best.point < 0 || cost < best.cost {
					best = insertion{point: p, route: v, position: i, cost: cost}
				}
			}
		}
	}
	return best, best.point >= 0
}

func removePoint(points []int, p int) []int {
	for i, q := range points {
		if q == p {
			return append(points[:i], points[i+1:]...)
		}
	}
	return points
}
