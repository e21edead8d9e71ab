package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cvrp-router/internal/cache"
	"cvrp-router/internal/config"
	"cvrp-router/internal/database"
	"cvrp-router/internal/distance"
	"cvrp-router/internal/handlers"
	"cvrp-router/internal/metrics"
	"cvrp-router/internal/routing"
	"cvrp-router/internal/sqlite"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	db         database.DataStore
	cache      cache.SolutionCache
	listener   net.Listener
	addr       string
}

// New creates and initializes a new server (does not start it)
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	strategy, err := routing.ParseStrategy(cfg.DefaultStrategy)
	if err != nil {
		return nil, fmt.Errorf("invalid default strategy: %w", err)
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var solutionCache cache.SolutionCache
	if cfg.RedisURL != "" {
		log.Printf("Connecting solution cache...")
		rc, err := cache.NewRedisSolutionCache(ctx, cfg.RedisURL, cfg.SolutionCacheTTL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize solution cache: %w", err)
		}
		solutionCache = rc
	}

	var osrm *distance.OSRMSource
	if cfg.OSRMBaseURL != "" {
		osrm = distance.NewOSRMSource(cfg.OSRMBaseURL, db.DistanceCache())
	}

	handler := &handlers.Handler{
		DB:              db,
		Solver:          routing.NewSolver(),
		Cache:           solutionCache,
		OSRM:            osrm,
		DefaultStrategy: strategy,
	}

	return newServer(cfg, handler, db, solutionCache), nil
}

func newServer(cfg *config.Config, handler *handlers.Handler, db database.DataStore, solutionCache cache.SolutionCache) *Server {
	mux := setupRoutes(handler)

	var h http.Handler = mux
	if cfg.RateRPS > 0 {
		h = rateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst), h)
	}
	h = loggingMiddleware(metricsMiddleware(h))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		db:         db,
		cache:      solutionCache,
		addr:       cfg.Addr,
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*sqlite.Store, error) {
	if cfg.DatabaseURL != "" {
		log.Printf("Initializing Postgres run store...")
		store, err := sqlite.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize data store: %w", err)
		}
		return store, nil
	}

	path := cfg.DBPath
	if path == "" {
		p, err := database.GetDefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	log.Printf("Initializing data store...")
	store, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data store: %w", err)
	}
	return store, nil
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	log.Printf("Starting server on %s", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// setupRoutes configures all HTTP routes
func setupRoutes(handler *handlers.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", handler.HandleHealthCheck)

	mux.HandleFunc("POST /api/v1/solve", handler.HandleSolve)
	mux.HandleFunc("GET /api/v1/sample", handler.HandleSample)

	mux.HandleFunc("GET /api/v1/runs", handler.HandleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", handler.HandleGetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/report", handler.HandleGetRunReport)
	mux.HandleFunc("DELETE /api/v1/runs/{id}", handler.HandleDeleteRun)

	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		log.Printf("[HTTP] %s %s %d %v", r.Method, r.URL.Path, lrw.statusCode, duration)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware labels requests by route pattern so run ids do not
// explode the label space
func metricsMiddleware(next http.Handler) http.Handler {
	metrics.RegisterDefault()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		} else if i := strings.IndexByte(path, ' '); i >= 0 {
			path = path[i+1:]
		}
		status := strconv.Itoa(lrw.statusCode)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

func rateLimitMiddleware(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(handlers.ErrorResponse{
				Error: handlers.ErrorDetail{Code: "RATE_LIMITED", Message: "Too many requests"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
