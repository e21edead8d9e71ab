package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cvrp-router/internal/database"
	"cvrp-router/internal/models"
)

// DefaultOSRMBaseURL is the public OSRM demo server
const DefaultOSRMBaseURL = "https://router.project-osrm.org"

// maxOSRMCoordinates is the maximum number of coordinates the public OSRM API accepts
const maxOSRMCoordinates = 80

// ErrDistanceCalculationFailed is returned when the OSRM API fails
type ErrDistanceCalculationFailed struct {
	Reason string
}

func (e *ErrDistanceCalculationFailed) Error() string {
	return fmt.Sprintf("distance calculation failed: %s", e.Reason)
}

type osrmTableResponse struct {
	Code      string      `json:"code"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// OSRMSource builds cost matrices from road distances using the OSRM table
// service. Pairs already present in the cache are not requested again.
type OSRMSource struct {
	baseURL    string
	httpClient *http.Client
	cache      database.DistanceCacheRepository
	limiter    *rate.Limiter
}

// NewOSRMSource creates an OSRM matrix source backed by a distance cache
func NewOSRMSource(baseURL string, cache database.DistanceCacheRepository) *OSRMSource {
	if baseURL == "" {
		baseURL = DefaultOSRMBaseURL
	}
	return &OSRMSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

// Matrix returns the road distance matrix for the given points
func (s *OSRMSource) Matrix(ctx context.Context, points []models.Point) (*Matrix, error) {
	coords := make([]models.Coordinates, len(points))
	for i, p := range points {
		coords[i] = p.Coords()
	}
	table, err := s.table(ctx, coords)
	if err != nil {
		return nil, err
	}
	return NewMatrixFromTable(table)
}

func (s *OSRMSource) table(ctx context.Context, points []models.Coordinates) ([][]float64, error) {
	n := len(points)
	table := make([][]float64, n)
	for i := range table {
		table[i] = make([]float64, n)
	}
	if n == 0 {
		return table, nil
	}

	missing := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			cached, err := s.cache.Get(ctx, points[i], points[j])
			if err != nil {
				return nil, err
			}
			if cached == nil {
				missing++
				continue
			}
			table[i][j] = cached.DistanceMeters
		}
	}

	if missing == 0 {
		log.Printf("[OSRM] Distance matrix all cached: points=%d", n)
		return table, nil
	}
	log.Printf("[OSRM] Distance matrix request: points=%d cached=%d missing=%d", n, n*n-n-missing, missing)

	var entries []models.DistanceCacheEntry
	requests := 0
	for _, src := range chunk(n) {
		for _, dst := range chunk(n) {
			got, err := s.fetchBlock(ctx, points, src, dst, table)
			if err != nil {
				return nil, err
			}
			entries = append(entries, got...)
			requests++
		}
	}
	log.Printf("[OSRM] Distance matrix complete: points=%d requests=%d entries=%d", n, requests, len(entries))

	if len(entries) > 0 {
		if err := s.cache.SetBatch(ctx, entries); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// chunk splits 0..n-1 into index blocks that fit in a single request
func chunk(n int) [][]int {
	var blocks [][]int
	for start := 0; start < n; start += maxOSRMCoordinates / 2 {
		end := min(start+maxOSRMCoordinates/2, n)
		if n <= maxOSRMCoordinates {
			end = n
		}
		block := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			block = append(block, i)
		}
		blocks = append(blocks, block)
		if end == n {
			break
		}
	}
	return blocks
}

// fetchBlock requests the distances from every src index to every dst index
// and writes them into table.
func (s *OSRMSource) fetchBlock(ctx context.Context, points []models.Coordinates, src, dst []int, table [][]float64) ([]models.DistanceCacheEntry, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Union of src and dst in first-seen order
	local := make(map[int]int)
	var order []int
	for _, idx := range append(append([]int{}, src...), dst...) {
		if _, ok := local[idx]; !ok {
			local[idx] = len(order)
			order = append(order, idx)
		}
	}

	coords := make([]string, len(order))
	for i, idx := range order {
		coords[i] = fmt.Sprintf("%.6f,%.6f", points[idx].Lng, points[idx].Lat)
	}
	sources := make([]string, len(src))
	for i, idx := range src {
		sources[i] = strconv.Itoa(local[idx])
	}
	destinations := make([]string, len(dst))
	for i, idx := range dst {
		destinations[i] = strconv.Itoa(local[idx])
	}

	queryURL := fmt.Sprintf("%s/table/v1/driving/%s?annotations=distance,duration&sources=%s&destinations=%s",
		s.baseURL, strings.Join(coords, ";"), strings.Join(sources, ";"), strings.Join(destinations, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to create OSRM request: points=%d err=%v", len(order), err)
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] OSRM API request failed: points=%d err=%v", len(order), err)
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] OSRM API error: status=%d body=%s", resp.StatusCode, string(body))
		return nil, &ErrDistanceCalculationFailed{
			Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var osrmResp osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&osrmResp); err != nil {
		log.Printf("[ERROR] Failed to decode OSRM response: err=%v", err)
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}
	if osrmResp.Code != "Ok" {
		log.Printf("[ERROR] OSRM returned error code: code=%s", osrmResp.Code)
		return nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("OSRM error: %s", osrmResp.Code)}
	}
	if len(osrmResp.Distances) != len(src) {
		return nil, &ErrDistanceCalculationFailed{
			Reason: fmt.Sprintf("OSRM returned %d rows, want %d", len(osrmResp.Distances), len(src)),
		}
	}

	var entries []models.DistanceCacheEntry
	for si, from := range src {
		if len(osrmResp.Distances[si]) != len(dst) {
			return nil, &ErrDistanceCalculationFailed{Reason: "OSRM returned a ragged table"}
		}
		for di, to := range dst {
			if from == to {
				continue
			}
			// null marks a pair OSRM cannot route
			cell := osrmResp.Distances[si][di]
			if cell == nil {
				log.Printf("[ERROR] OSRM has no route: from=%d to=%d", from, to)
				return nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("no route between points %d and %d", from, to)}
			}
			dist := *cell
			table[from][to] = dist
			var dur float64
			if si < len(osrmResp.Durations) && di < len(osrmResp.Durations[si]) && osrmResp.Durations[si][di] != nil {
				dur = *osrmResp.Durations[si][di]
			}
			entries = append(entries, models.DistanceCacheEntry{
				Origin:         points[from],
				Destination:    points[to],
				DistanceMeters: dist,
				DurationSecs:   dur,
			})
		}
	}
	return entries, nil
}
