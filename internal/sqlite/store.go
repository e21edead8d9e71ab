package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"cvrp-router/internal/database"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
	schemaVersion  = 1
)

// Store is a SQL data store implementing database.DataStore. It runs on an
// embedded SQLite file by default and on Postgres when opened with NewPostgres.
type Store struct {
	db     *sql.DB
	dbPath string
	driver string
	mu     sync.RWMutex

	runRepo           database.RunRepository
	distanceCacheRepo database.DistanceCacheRepository
}

// New creates a new SQLite store at the specified path. ":memory:" opens a
// private in-memory database.
func New(dbPath string) (*Store, error) {
	inMemory := dbPath == ":memory:"
	if !inMemory {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	log.Printf("[STORE] Opening SQLite database at: %s", dbPath)

	db, err := sql.Open(driverSQLite, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	return open(db, dbPath, driverSQLite)
}

// NewPostgres opens a Postgres-backed store through the pgx stdlib driver
func NewPostgres(ctx context.Context, databaseURL string) (*Store, error) {
	log.Printf("[STORE] Opening Postgres database")

	db, err := sql.Open(driverPostgres, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return open(db, "", driverPostgres)
}

func open(db *sql.DB, dbPath, driver string) (*Store, error) {
	store := &Store{
		db:     db,
		dbPath: dbPath,
		driver: driver,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	store.runRepo = &runRepository{store: store}
	store.distanceCacheRepo = &distanceCacheRepository{store: store}

	return store, nil
}

// GetDBPath returns the current database file path, empty for Postgres
func (s *Store) GetDBPath() string {
	return s.dbPath
}

// rebind rewrites ? placeholders into the $n form Postgres expects
func (s *Store) rebind(query string) string {
	if s.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) initSchema() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == nil && version >= schemaVersion {
		return nil
	}
	return s.createSchema()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)`,
		`INSERT INTO schema_version (version) VALUES (1) ON CONFLICT DO NOTHING`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			instance_name TEXT NOT NULL DEFAULT '',
			strategy TEXT NOT NULL,
			vehicles INTEGER NOT NULL,
			capacity INTEGER NOT NULL,
			points INTEGER NOT NULL,
			objective DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_distance DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_load INTEGER NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_stops (
			run_id TEXT NOT NULL,
			vehicle INTEGER NOT NULL,
			route_order INTEGER NOT NULL,
			node INTEGER NOT NULL,
			cum_load INTEGER NOT NULL,
			distance_from_prev DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, vehicle, route_order),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS distance_cache (
			origin_lat DOUBLE PRECISION NOT NULL,
			origin_lng DOUBLE PRECISION NOT NULL,
			dest_lat DOUBLE PRECISION NOT NULL,
			dest_lng DOUBLE PRECISION NOT NULL,
			distance_meters DOUBLE PRECISION NOT NULL,
			duration_secs DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (origin_lat, origin_lng, dest_lat, dest_lng)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	log.Printf("[STORE] Schema ready: driver=%s version=%d", s.driver, schemaVersion)
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// HealthCheck verifies the database is accessible
func (s *Store) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.PingContext(ctx)
}

func (s *Store) Runs() database.RunRepository                   { return s.runRepo }
func (s *Store) DistanceCache() database.DistanceCacheRepository { return s.distanceCacheRepo }
