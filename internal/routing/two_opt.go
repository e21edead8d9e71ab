package routing

import (
	"context"

	"cvrp-router/internal/distance"
)

const improvementEpsilon = 1e-9

// twoOpt reverses route segments while doing so strictly shortens the route.
// The set of visited points never changes, so route loads stay feasible.
func twoOpt(ctx context.Context, oracle distance.Oracle, route []int) error {
	improved := true
	for improved {
		if err := ctx.Err(); err != nil {
			return err
		}
		improved = false
		for i := 1; i < len(route)-2; i++ {
			for j := i + 1; j < len(route)-1; j++ {
				a, b := route[i-1], route[i]
				c, d := route[j], route[j+1]
				delta := oracle.Distance(a, c) + oracle.Distance(b, d) -
					oracle.Distance(a, b) - oracle.Distance(c, d) +
					pathCost(oracle, route[i:j+1], true) - pathCost(oracle, route[i:j+1], false)
				if delta < -improvementEpsilon {
					reverse(route[i : j+1])
					improved = true
				}
			}
		}
	}
	return nil
}

// pathCost sums the arcs along s, walking it backwards when reversed.
// Asymmetric oracles make the two directions differ.
func pathCost(oracle distance.Oracle, s []int, reversed bool) float64 {
	cost := 0.0
	for k := 0; k+1 < len(s); k++ {
		if reversed {
			cost += oracle.Distance(s[k+1], s[k])
		} else {
			cost += oracle.Distance(s[k], s[k+1])
		}
	}
	return cost
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
