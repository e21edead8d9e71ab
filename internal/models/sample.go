package models

// City block dimensions of the sample grid, in meters
const (
	sampleBlockWidth  = 228 / 2
	sampleBlockHeight = 80
)

var sampleBlocks = [][2]int{
	{4, 4}, // depot
	{2, 0}, {8, 0},
	{0, 1}, {1, 1},
	{5, 2}, {7, 2},
	{3, 3}, {6, 3},
	{5, 5}, {8, 5},
	{1, 6}, {2, 6},
	{3, 7}, {6, 7},
	{0, 8}, {7, 8},
}

var sampleDemands = []int{0, 1, 1, 2, 4, 2, 4, 8, 8, 1, 2, 1, 2, 4, 4, 8, 8}

// SampleInstance returns the classic 16-customer city grid: 4 vehicles of
// capacity 15 routed from a depot in the middle of the grid.
func SampleInstance() *Instance {
	points := make([]Point, len(sampleBlocks))
	for i, b := range sampleBlocks {
		points[i] = Point{
			X:      float64(b[0] * sampleBlockWidth),
			Y:      float64(b[1] * sampleBlockHeight),
			Demand: sampleDemands[i],
		}
	}
	return &Instance{
		Name:     "sample",
		Points:   points,
		Vehicles: 4,
		Capacity: 15,
		Metric:   "manhattan",
	}
}
