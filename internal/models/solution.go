package models

// Route is the ordered node sequence of one vehicle. It begins and ends at
// the depot; [0, 0] is an unused vehicle.
type Route struct {
	Vehicle int   `json:"vehicle"`
	Nodes   []int `json:"nodes"`
}

// IsEmpty reports whether the route visits nothing but the depot
func (r Route) IsEmpty() bool {
	return len(r.Nodes) <= 2
}

// Visits returns the nodes between the two depot markers
func (r Route) Visits() []int {
	if len(r.Nodes) <= 2 {
		return nil
	}
	return r.Nodes[1 : len(r.Nodes)-1]
}

// Solution is the output of a solver: one route per vehicle, the objective
// value and the cumulative value of every dimension at every route position.
type Solution struct {
	Strategy  string             `json:"strategy"`
	Routes    []Route            `json:"routes"`
	Objective float64            `json:"objective"`
	Cumuls    map[string][][]int `json:"cumuls,omitempty"`
}

// Vehicles returns the number of routes, used or not
func (s *Solution) Vehicles() int {
	return len(s.Routes)
}

// UsedVehicles counts the routes that visit at least one point
func (s *Solution) UsedVehicles() int {
	used := 0
	for _, r := range s.Routes {
		if !r.IsEmpty() {
			used++
		}
	}
	return used
}

// Start returns the first node of a vehicle's route
func (s *Solution) Start(vehicle int) int {
	return s.Routes[vehicle].Nodes[0]
}

// End returns the last node of a vehicle's route
func (s *Solution) End(vehicle int) int {
	nodes := s.Routes[vehicle].Nodes
	return nodes[len(nodes)-1]
}

// IsEnd reports whether position is the route's terminal depot marker
func (s *Solution) IsEnd(vehicle, position int) bool {
	return position == len(s.Routes[vehicle].Nodes)-1
}

// Next returns the node that follows position on the vehicle's route
func (s *Solution) Next(vehicle, position int) (int, bool) {
	nodes := s.Routes[vehicle].Nodes
	if position < 0 || position+1 >= len(nodes) {
		return 0, false
	}
	return nodes[position+1], true
}

// Cumul returns the cumulative value of a dimension at a route position
func (s *Solution) Cumul(dimension string, vehicle, position int) (int, bool) {
	perVehicle, ok := s.Cumuls[dimension]
	if !ok || vehicle < 0 || vehicle >= len(perVehicle) {
		return 0, false
	}
	values := perVehicle[vehicle]
	if position < 0 || position >= len(values) {
		return 0, false
	}
	return values[position], true
}

// StopLoad is a node of a reported route and the load carried after visiting it
type StopLoad struct {
	Node int `json:"node"`
	Load int `json:"load"`
}

// RouteReport describes one vehicle's route. Stops include both depot markers.
type RouteReport struct {
	Vehicle  int        `json:"vehicle"`
	Stops    []StopLoad `json:"stops"`
	Distance float64    `json:"distance"`
	Load     int        `json:"load"`
}

// SolutionReport is the presentation of a full solution
type SolutionReport struct {
	RunID         string        `json:"run_id,omitempty"`
	Strategy      string        `json:"strategy"`
	Objective     float64       `json:"objective"`
	Routes        []RouteReport `json:"routes"`
	TotalDistance float64       `json:"total_distance"`
	TotalLoad     int           `json:"total_load"`
}
