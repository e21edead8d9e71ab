package report

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"cvrp-router/internal/models"
)

// Format writes the report in the classic routing printer layout:
//
//	Objective: 8080
//	Route for vehicle 0:
//	 0 Load(0) ->  7 Load(8) ->  0 Load(8)
//	Distance of the route: 1780m
//	Load of the route: 8
//
//	Total Distance of all routes: 8080m
//	Total Load of all routes: 60
func Format(w io.Writer, rep *models.SolutionReport) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("Objective: " + formatDistance(rep.Objective) + "\n")
	for _, rr := range rep.Routes {
		bw.WriteString("Route for vehicle " + strconv.Itoa(rr.Vehicle) + ":\n")
		for i, s := range rr.Stops {
			bw.WriteString(" " + strconv.Itoa(s.Node) + " Load(" + strconv.Itoa(s.Load) + ")")
			if i < len(rr.Stops)-1 {
				bw.WriteString(" -> ")
			}
		}
		bw.WriteString("\n")
		bw.WriteString("Distance of the route: " + formatDistance(rr.Distance) + "m\n")
		bw.WriteString("Load of the route: " + strconv.Itoa(rr.Load) + "\n")
		bw.WriteString("\n")
	}
	bw.WriteString("Total Distance of all routes: " + formatDistance(rep.TotalDistance) + "m\n")
	bw.WriteString("Total Load of all routes: " + strconv.Itoa(rep.TotalLoad) + "\n")

	return bw.Flush()
}

// Text returns the formatted report as a string
func Text(rep *models.SolutionReport) string {
	var sb strings.Builder
	Format(&sb, rep)
	return sb.String()
}

// formatDistance prints whole distances without decimals and others with two
func formatDistance(d float64) string {
	if d == math.Trunc(d) && math.Abs(d) < 1e15 {
		return strconv.FormatFloat(d, 'f', 0, 64)
	}
	return strconv.FormatFloat(d, 'f', 2, 64)
}
