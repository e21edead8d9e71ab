package testutil

import "cvrp-router/internal/models"

// FivePointInstance is a depot plus four unit-demand points on two axes,
// routed by two vehicles of capacity 2.
func FivePointInstance() *models.Instance {
	return &models.Instance{
		Name: "five-point",
		Points: []models.Point{
			{X: 0, Y: 0},
			{X: 2, Y: 0, Demand: 1},
			{X: 4, Y: 0, Demand: 1},
			{X: 0, Y: 3, Demand: 1},
			{X: 0, Y: 5, Demand: 1},
		},
		Vehicles: 2,
		Capacity: 2,
	}
}

// LineInstance places n-1 points on the x axis at 1, 2, ... with the given
// demand each.
func LineInstance(n, demand, vehicles, capacity int) *models.Instance {
	points := make([]models.Point, n)
	for i := 1; i < n; i++ {
		points[i] = models.Point{X: float64(i), Demand: demand}
	}
	return &models.Instance{
		Name:     "line",
		Points:   points,
		Vehicles: vehicles,
		Capacity: capacity,
	}
}
