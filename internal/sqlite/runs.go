package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cvrp-router/internal/database"
	"cvrp-router/internal/models"
)

type runRepository struct {
	store *Store
}

const runColumns = `id, instance_name, strategy, vehicles, capacity, points,
	objective, total_distance, total_load, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var createdAt int64
	if err := row.Scan(
		&run.ID, &run.InstanceName, &run.Strategy, &run.Vehicles, &run.Capacity, &run.Points,
		&run.Objective, &run.TotalDistance, &run.TotalLoad, &run.DurationMs, &createdAt,
	); err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &run, nil
}

func (r *runRepository) List(ctx context.Context, limit int) ([]models.Run, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id LIMIT ?`
	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func (r *runRepository) GetByID(ctx context.Context, id string) (*models.Run, []models.RunStop, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	run, err := scanRun(r.store.db.QueryRowContext(ctx, r.store.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, database.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run: %w", err)
	}

	stopQuery := `SELECT run_id, vehicle, route_order, node, cum_load, distance_from_prev
	              FROM run_stops
	              WHERE run_id = ?
	              ORDER BY vehicle, route_order`

	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(stopQuery), id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query run stops: %w", err)
	}
	defer rows.Close()

	var stops []models.RunStop
	for rows.Next() {
		var s models.RunStop
		if err := rows.Scan(&s.RunID, &s.Vehicle, &s.RouteOrder, &s.Node, &s.Load, &s.DistanceFromPrev); err != nil {
			return nil, nil, fmt.Errorf("failed to scan run stop: %w", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating run stops: %w", err)
	}

	return run, stops, nil
}

func (r *runRepository) Create(ctx context.Context, run *models.Run, stops []models.RunStop) (*models.Run, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	runQuery := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, r.store.rebind(runQuery),
		run.ID, run.InstanceName, run.Strategy, run.Vehicles, run.Capacity, run.Points,
		run.Objective, run.TotalDistance, run.TotalLoad, run.DurationMs, run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	stopQuery := `INSERT INTO run_stops (run_id, vehicle, route_order, node, cum_load, distance_from_prev)
	              VALUES (?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, r.store.rebind(stopQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range stops {
		if _, err := stmt.ExecContext(ctx, run.ID, s.Vehicle, s.RouteOrder, s.Node, s.Load, s.DistanceFromPrev); err != nil {
			return nil, fmt.Errorf("failed to create run stop: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return run, nil
}

func (r *runRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.store.rebind(`DELETE FROM run_stops WHERE run_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete run stops: %w", err)
	}

	result, err := tx.ExecContext(ctx, r.store.rebind(`DELETE FROM runs WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
