package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInstance() *Instance {
	return &Instance{
		Points: []Point{
			{X: 0, Y: 0},
			{X: 1, Y: 0, Demand: 2},
			{X: 0, Y: 1, Demand: 3},
		},
		Vehicles: 2,
		Capacity: 5,
	}
}

func TestPointCoords(t *testing.T) {
	p := Point{X: -74.0060, Y: 40.7128}

	coords := p.Coords()

	assert.Equal(t, 40.7128, coords.Lat)
	assert.Equal(t, -74.0060, coords.Lng)
}

func TestRoundCoordinate(t *testing.T) {
	assert.Equal(t, 40.71280, RoundCoordinate(40.712801))
	assert.Equal(t, RoundCoordinate(40.7128000001), RoundCoordinate(40.7127999999))
}

func TestInstanceValidate(t *testing.T) {
	require.NoError(t, validInstance().Validate())

	tests := []struct {
		name   string
		mutate func(in *Instance)
		point  int
	}{
		{"no points", func(in *Instance) { in.Points = nil }, -1},
		{"no vehicles", func(in *Instance) { in.Vehicles = 0 }, -1},
		{"zero capacity", func(in *Instance) { in.Capacity = 0 }, -1},
		{"depot demand", func(in *Instance) { in.Points[0].Demand = 1 }, 0},
		{"negative demand", func(in *Instance) { in.Points[2].Demand = -1 }, 2},
		{"demand over capacity", func(in *Instance) { in.Points[1].Demand = 6 }, 1},
		{"nan coordinate", func(in *Instance) { in.Points[2].X = math.NaN() }, 2},
		{"infinite coordinate", func(in *Instance) { in.Points[1].Y = math.Inf(1) }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInstance()
			tt.mutate(in)

			var ierr *ErrInvalidInstance
			require.True(t, errors.As(in.Validate(), &ierr))
			assert.Equal(t, tt.point, ierr.Point)
		})
	}
}

func TestInstanceValidateDepotOnly(t *testing.T) {
	in := &Instance{Points: []Point{{}}, Vehicles: 1, Capacity: 1}
	assert.NoError(t, in.Validate())
	assert.Equal(t, 1, in.NumPoints())
}

func TestInstanceDemands(t *testing.T) {
	in := validInstance()
	assert.Equal(t, []int{0, 2, 3}, in.Demands())
	assert.Equal(t, 5, in.TotalDemand())
}

func TestFingerprint(t *testing.T) {
	a, b := validInstance(), validInstance()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Points[1].Demand = 1
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintIgnoresName(t *testing.T) {
	a, b := validInstance(), validInstance()
	a.Name = "monday"
	b.Name = "tuesday"
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Metric = "euclidean"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	b = validInstance()
	b.Vehicles++
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestSampleInstance(t *testing.T) {
	in := SampleInstance()

	require.NoError(t, in.Validate())
	assert.Equal(t, 17, in.NumPoints())
	assert.Equal(t, 4, in.Vehicles)
	assert.Equal(t, 15, in.Capacity)
	assert.Equal(t, 60, in.TotalDemand())
	assert.Equal(t, Point{X: 456, Y: 320}, in.Points[DepotIndex])
	assert.Equal(t, Point{X: 228, Y: 0, Demand: 1}, in.Points[1])
}

func TestSolutionQueries(t *testing.T) {
	sol := &Solution{
		Routes: []Route{
			{Vehicle: 0, Nodes: []int{0, 2, 1, 0}},
			{Vehicle: 1, Nodes: []int{0, 0}},
		},
		Cumuls: map[string][][]int{
			"Capacity": {{0, 3, 5, 5}, {0, 0}},
		},
	}

	assert.Equal(t, 2, sol.Vehicles())
	assert.Equal(t, 1, sol.UsedVehicles())
	assert.Equal(t, 0, sol.Start(0))
	assert.Equal(t, 0, sol.End(1))
	assert.True(t, sol.IsEnd(0, 3))
	assert.False(t, sol.IsEnd(0, 2))

	next, ok := sol.Next(0, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, next)
	_, ok = sol.Next(0, 3)
	assert.False(t, ok)

	load, ok := sol.Cumul("Capacity", 0, 2)
	assert.True(t, ok)
	assert.Equal(t, 5, load)
	_, ok = sol.Cumul("Time", 0, 2)
	assert.False(t, ok)
	_, ok = sol.Cumul("Capacity", 1, 5)
	assert.False(t, ok)
}

func TestRouteVisits(t *testing.T) {
	assert.Equal(t, []int{2, 1}, Route{Nodes: []int{0, 2, 1, 0}}.Visits())
	assert.Nil(t, Route{Nodes: []int{0, 0}}.Visits())
	assert.True(t, Route{Nodes: []int{0, 0}}.IsEmpty())
}
