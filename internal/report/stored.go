package report

import "cvrp-router/internal/models"

// FromRun rebuilds the report of a persisted run. Stops must be ordered by
// vehicle then route order, as the store returns them.
func FromRun(run *models.Run, stops []models.RunStop) *models.SolutionReport {
	rep := &models.SolutionReport{
		RunID:     run.ID,
		Strategy:  run.Strategy,
		Objective: run.Objective,
		Routes:    make([]models.RouteReport, run.Vehicles),
	}
	for v := range rep.Routes {
		rep.Routes[v].Vehicle = v
	}

	for _, s := range stops {
		if s.Vehicle < 0 || s.Vehicle >= len(rep.Routes) {
			continue
		}
		rr := &rep.Routes[s.Vehicle]
		rr.Stops = append(rr.Stops, models.StopLoad{Node: s.Node, Load: s.Load})
		rr.Distance += s.DistanceFromPrev
		rr.Load = s.Load
	}

	for _, rr := range rep.Routes {
		rep.TotalDistance += rr.Distance
		rep.TotalLoad += rr.Load
	}
	return rep
}
