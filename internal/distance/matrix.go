package distance

import (
	"context"
	"fmt"
	"math"
	"strings"

	"cvrp-router/internal/models"
)

// Metric selects how point coordinates are turned into travel costs
type Metric string

const (
	MetricManhattan Metric = "manhattan"
	MetricEuclidean Metric = "euclidean"
	// MetricOSRM asks a road router for the matrix; points are lng/lat pairs
	MetricOSRM Metric = "osrm"
)

// ParseMetric maps a metric name to a Metric. The empty string selects Manhattan.
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case "", MetricManhattan:
		return MetricManhattan, nil
	case MetricEuclidean:
		return MetricEuclidean, nil
	case MetricOSRM:
		return MetricOSRM, nil
	}
	return "", &models.ErrInvalidInstance{Reason: fmt.Sprintf("unknown metric %q", name), Point: -1}
}

// Between returns the cost between two points under a geometric metric
func (m Metric) Between(a, b models.Point) float64 {
	dx := math.Abs(a.X - b.X)
	dy := math.Abs(a.Y - b.Y)
	if m == MetricEuclidean {
		return math.Hypot(dx, dy)
	}
	return dx + dy
}

// Oracle answers travel cost queries between point indices
type Oracle interface {
	Distance(from, to int) float64
	Size() int
}

// Matrix is an immutable N×N cost table. It is safe for concurrent reads.
type Matrix struct {
	n     int
	cells []float64
}

// NewMatrix precomputes all pairwise costs of the given points
func NewMatrix(points []models.Point, metric Metric) (*Matrix, error) {
	if metric == MetricOSRM {
		return nil, fmt.Errorf("metric %s needs an OSRM source", metric)
	}
	n := len(points)
	m := &Matrix{n: n, cells: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			m.cells[i*n+j] = metric.Between(points[i], points[j])
		}
	}
	return m, nil
}

// NewMatrixFromTable wraps an externally computed table. The table must be
// square with non-negative finite entries; the diagonal is forced to zero.
func NewMatrixFromTable(table [][]float64) (*Matrix, error) {
	n := len(table)
	m := &Matrix{n: n, cells: make([]float64, n*n)}
	for i, row := range table {
		if len(row) != n {
			return nil, fmt.Errorf("distance table row %d has %d columns, want %d", i, len(row), n)
		}
		for j, v := range row {
			if i == j {
				continue
			}
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("distance table entry (%d,%d) is invalid: %v", i, j, v)
			}
			m.cells[i*n+j] = v
		}
	}
	return m, nil
}

// Size returns N
func (m *Matrix) Size() int {
	return m.n
}

// Distance returns the cost of travelling from one point to another.
// Out-of-range indices are a programming error and panic.
func (m *Matrix) Distance(from, to int) float64 {
	if from < 0 || from >= m.n || to < 0 || to >= m.n {
		panic(fmt.Sprintf("distance: index out of range: (%d,%d) with %d points", from, to, m.n))
	}
	return m.cells[from*m.n+to]
}

// Check reports whether i is a valid point index
func (m *Matrix) Check(i int) error {
	if i < 0 || i >= m.n {
		return &models.ErrInvalidInstance{Reason: fmt.Sprintf("index out of range [0,%d)", m.n), Point: i}
	}
	return nil
}

// ForInstance builds the cost oracle of an instance according to its metric.
// osrm may be nil when no road router is configured.
func ForInstance(ctx context.Context, inst *models.Instance, osrm *OSRMSource) (*Matrix, error) {
	metric, err := ParseMetric(inst.Metric)
	if err != nil {
		return nil, err
	}
	if metric == MetricOSRM {
		if osrm == nil {
			return nil, &models.ErrInvalidInstance{Reason: "osrm metric requested but no OSRM source is configured", Point: -1}
		}
		return osrm.Matrix(ctx, inst.Points)
	}
	return NewMatrix(inst.Points, metric)
}
