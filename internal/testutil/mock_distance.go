package testutil

import (
	"context"
	"fmt"
	"sync"

	"cvrp-router/internal/models"
)

// MockDistanceCache is an in-memory DistanceCacheRepository for tests
type MockDistanceCache struct {
	mu      sync.Mutex
	entries map[string]*models.DistanceCacheEntry
}

func NewMockDistanceCache() *MockDistanceCache {
	return &MockDistanceCache{
		entries: make(map[string]*models.DistanceCacheEntry),
	}
}

func (c *MockDistanceCache) cacheKey(origin, dest models.Coordinates) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f",
		models.RoundCoordinate(origin.Lat), models.RoundCoordinate(origin.Lng),
		models.RoundCoordinate(dest.Lat), models.RoundCoordinate(dest.Lng))
}

func (c *MockDistanceCache) Get(ctx context.Context, origin, dest models.Coordinates) (*models.DistanceCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[c.cacheKey(origin, dest)]; ok {
		return entry, nil
	}
	return nil, nil
}

func (c *MockDistanceCache) Set(ctx context.Context, entry *models.DistanceCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.cacheKey(entry.Origin, entry.Destination)] = entry
	return nil
}

func (c *MockDistanceCache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	for i := range entries {
		c.Set(ctx, &entries[i])
	}
	return nil
}

func (c *MockDistanceCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*models.DistanceCacheEntry)
	return nil
}

// Count returns the number of entries in the cache
func (c *MockDistanceCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
