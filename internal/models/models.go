package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"
)

// DepotIndex is the point every route starts and ends at
const DepotIndex = 0

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RoundCoordinate rounds a coordinate to 5 decimal places (~1m) so cache keys
// stay stable across float noise.
func RoundCoordinate(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// Point is a location with a demand. X is the longitude and Y the latitude
// when the instance is routed over a road network.
type Point struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Demand int     `json:"demand" yaml:"demand"`
}

// Coords returns the point as geographic coordinates
func (p Point) Coords() Coordinates {
	return Coordinates{Lat: p.Y, Lng: p.X}
}

// Instance is a CVRP problem: points (index 0 is the depot), a fleet size and
// the capacity shared by every vehicle.
type Instance struct {
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Points   []Point `json:"points" yaml:"points"`
	Vehicles int     `json:"vehicles" yaml:"vehicles"`
	Capacity int     `json:"capacity" yaml:"capacity"`
	Metric   string  `json:"metric,omitempty" yaml:"metric,omitempty"`
}

// NumPoints returns N, the depot included
func (in *Instance) NumPoints() int {
	return len(in.Points)
}

// Demands returns the demand of every point in index order
func (in *Instance) Demands() []int {
	demands := make([]int, len(in.Points))
	for i, p := range in.Points {
		demands[i] = p.Demand
	}
	return demands
}

// TotalDemand sums the demand of every point
func (in *Instance) TotalDemand() int {
	total := 0
	for _, p := range in.Points {
		total += p.Demand
	}
	return total
}

// Validate checks the structural invariants of an instance. It reports the
// first violation found.
func (in *Instance) Validate() error {
	if in == nil || len(in.Points) < 1 {
		return &ErrInvalidInstance{Reason: "instance needs at least the depot", Point: -1}
	}
	if in.Vehicles < 1 {
		return &ErrInvalidInstance{Reason: "fleet size must be at least 1", Point: -1}
	}
	if in.Capacity < 1 {
		return &ErrInvalidInstance{Reason: "vehicle capacity must be positive", Point: -1}
	}
	if in.Points[DepotIndex].Demand != 0 {
		return &ErrInvalidInstance{Reason: "depot demand must be zero", Point: DepotIndex}
	}
	for i, p := range in.Points {
		if p.Demand < 0 {
			return &ErrInvalidInstance{Reason: "demand is negative", Point: i}
		}
		if p.Demand > in.Capacity {
			return &ErrInvalidInstance{Reason: "demand exceeds vehicle capacity", Point: i}
		}
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return &ErrInvalidInstance{Reason: "coordinate is not a finite number", Point: i}
		}
	}
	return nil
}

// Fingerprint returns a stable hash of what determines a solve: points,
// fleet, capacity and metric. The name does not take part.
func (in *Instance) Fingerprint() string {
	data, _ := json.Marshal(struct {
		Points   []Point `json:"points"`
		Vehicles int     `json:"vehicles"`
		Capacity int     `json:"capacity"`
		Metric   string  `json:"metric"`
	}{in.Points, in.Vehicles, in.Capacity, in.Metric})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Run is a persisted solve
type Run struct {
	ID            string    `json:"id"`
	InstanceName  string    `json:"instance_name"`
	Strategy      string    `json:"strategy"`
	Vehicles      int       `json:"vehicles"`
	Capacity      int       `json:"capacity"`
	Points        int       `json:"points"`
	Objective     float64   `json:"objective"`
	TotalDistance float64   `json:"total_distance"`
	TotalLoad     int       `json:"total_load"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunStop is one visited node of a persisted route, depot legs included
type RunStop struct {
	RunID            string  `json:"run_id"`
	Vehicle          int     `json:"vehicle"`
	RouteOrder       int     `json:"route_order"`
	Node             int     `json:"node"`
	Load             int     `json:"load"`
	DistanceFromPrev float64 `json:"distance_from_prev"`
}

// DistanceCacheEntry represents a cached distance lookup
type DistanceCacheEntry struct {
	Origin         Coordinates `json:"origin"`
	Destination    Coordinates `json:"destination"`
	DistanceMeters float64     `json:"distance_meters"`
	DurationSecs   float64     `json:"duration_secs"`
}
