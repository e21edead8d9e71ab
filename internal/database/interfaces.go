package database

import (
	"context"

	"cvrp-router/internal/models"
)

// DataStore is the interface for data persistence
type DataStore interface {
	Close() error
	HealthCheck(ctx context.Context) error
	Runs() RunRepository
	DistanceCache() DistanceCacheRepository
}

// RunRepository persists solver runs and their routes
type RunRepository interface {
	List(ctx context.Context, limit int) ([]models.Run, error)
	GetByID(ctx context.Context, id string) (*models.Run, []models.RunStop, error)
	Create(ctx context.Context, run *models.Run, stops []models.RunStop) (*models.Run, error)
	Delete(ctx context.Context, id string) error
}

// DistanceCacheRepository handles distance cache persistence
type DistanceCacheRepository interface {
	Get(ctx context.Context, origin, dest models.Coordinates) (*models.DistanceCacheEntry, error)
	Set(ctx context.Context, entry *models.DistanceCacheEntry) error
	SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error
	Clear(ctx context.Context) error
}
