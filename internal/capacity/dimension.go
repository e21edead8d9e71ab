// Package capacity models the cumulative load carried along a route.
//
// A Dimension is immutable and may be shared by concurrent solves. The
// running totals of a single solve live in a Tracker.
package capacity

import (
	"fmt"

	"cvrp-router/internal/models"
)

// DefaultName is the name under which the load dimension is reported
const DefaultName = "Capacity"

// Dimension accumulates per-point demand along a route. Slack is always zero
// and the cumulative value starts at zero at the depot.
type Dimension struct {
	name     string
	demands  []int
	capacity int
}

// NewDimension declares a load dimension over the given demands
func NewDimension(name string, demands []int, capacity int) (*Dimension, error) {
	if capacity < 1 {
		return nil, &models.ErrInvalidInstance{Reason: "vehicle capacity must be positive", Point: -1}
	}
	for i, d := range demands {
		if d < 0 {
			return nil, &models.ErrInvalidInstance{Reason: "demand is negative", Point: i}
		}
		if d > capacity {
			return nil, &models.ErrInvalidInstance{
				Reason: fmt.Sprintf("demand %d exceeds capacity %d of dimension %s", d, capacity, name),
				Point:  i,
			}
		}
	}
	owned := make([]int, len(demands))
	copy(owned, demands)
	return &Dimension{name: name, demands: owned, capacity: capacity}, nil
}

// ForInstance declares the standard load dimension of an instance
func ForInstance(inst *models.Instance) (*Dimension, error) {
	return NewDimension(DefaultName, inst.Demands(), inst.Capacity)
}

func (d *Dimension) Name() string  { return d.name }
func (d *Dimension) Capacity() int { return d.capacity }
func (d *Dimension) Size() int     { return len(d.demands) }

// Slack is the allowed idle accumulation between two points
func (d *Dimension) Slack() int { return 0 }

// Demand returns the demand of a point. Out-of-range indices panic.
func (d *Dimension) Demand(point int) int {
	return d.demands[point]
}

// Load returns the total demand of a route
func (d *Dimension) Load(route []int) int {
	load := 0
	for _, p := range route {
		load += d.demands[p]
	}
	return load
}

// admits is the single feasibility rule: a route already carrying load can
// take point when the sum stays within capacity
func (d *Dimension) admits(load, point int) bool {
	return load+d.demands[point] <= d.capacity
}

// CanAppend reports whether point fits at the end of route
func (d *Dimension) CanAppend(route []int, point int) bool {
	return d.admits(d.Load(route), point)
}

// CanInsert reports whether point can go between route[position] and
// route[position+1]. The load at the insertion point must fit, and so must
// every cumulative load after it, the largest of which is the route total.
// Since demands are non-negative the answer does not depend on position.
func (d *Dimension) CanInsert(route []int, position int, point int) bool {
	if position < 0 || position+1 >= len(route) {
		return false
	}
	if !d.admits(d.CumulativeLoadAt(route, position), point) {
		return false
	}
	return d.CanAppend(route, point)
}

// CumulativeLoadAt is the load carried after visiting route[position]
func (d *Dimension) CumulativeLoadAt(route []int, position int) int {
	return d.Load(route[:position+1])
}

// Loads returns the cumulative load at every position of the route
func (d *Dimension) Loads(route []int) []int {
	loads := make([]int, len(route))
	total := 0
	for i, p := range route {
		total += d.demands[p]
		loads[i] = total
	}
	return loads
}

// Tracker holds the running load of every route of one solve
type Tracker struct {
	dim   *Dimension
	loads []int
}

// NewTracker starts a tracker with every route empty
func (d *Dimension) NewTracker(routes int) *Tracker {
	return &Tracker{dim: d, loads: make([]int, routes)}
}

// Fits reports whether point can join the route without exceeding capacity.
// It answers CanAppend, and CanInsert at any position, for the tracked route
// using the cached route load.
func (t *Tracker) Fits(route, point int) bool {
	return t.dim.admits(t.loads[route], point)
}

// Add records point as visited by route
func (t *Tracker) Add(route, point int) {
	t.loads[route] += t.dim.demands[point]
}

// Load returns the current load of a route
func (t *Tracker) Load(route int) int {
	return t.loads[route]
}

// Dimension returns the dimension being tracked
func (t *Tracker) Dimension() *Dimension {
	return t.dim
}
