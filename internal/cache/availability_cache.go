// Package cache keeps computed availability grids in Redis. Grids are
// derived data: a short TTL plus explicit invalidation on every lifecycle
// transition keeps them honest without making Redis a source of truth.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/stayline-hotel/internal/availability"
	"github.com/diagnosis/stayline-hotel/internal/domain"
	"github.com/diagnosis/stayline-hotel/pkg/logger"
)

type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func gridKey(roomID string, year int, month time.Month) string {
	return fmt.Sprintf("avail:%s:%04d-%02d", roomID, year, int(month))
}

// Get returns the cached grid or nil on miss. Cache errors degrade to a
// miss; availability is always recomputable.
func (c *AvailabilityCache) Get(ctx context.Context, roomID string, year int, month time.Month) *availability.Grid {
	raw, err := c.client.Get(ctx, gridKey(roomID, year, month)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		logger.WarnContext(ctx, "availability cache read failed", "error", err)
		return nil
	}

	var grid availability.Grid
	if err := json.Unmarshal(raw, &grid); err != nil {
		logger.WarnContext(ctx, "availability cache entry corrupt", "error", err)
		return nil
	}
	return &grid
}

func (c *AvailabilityCache) Set(ctx context.Context, grid *availability.Grid) {
	raw, err := json.Marshal(grid)
	if err != nil {
		logger.WarnContext(ctx, "availability cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, gridKey(grid.RoomID, grid.Year, grid.Month), raw, c.ttl).Err(); err != nil {
		logger.WarnContext(ctx, "availability cache write failed", "error", err)
	}
}

// InvalidateRange drops cached grids for every month the stay touches.
func (c *AvailabilityCache) InvalidateRange(ctx context.Context, roomID string, checkIn, checkOut domain.Date) {
	keys := make([]string, 0, 2)
	for d := checkIn; !d.After(checkOut); {
		keys = append(keys, gridKey(roomID, d.Year, d.Month))
		// Jump to the first day of the next month.
		d = domain.NewDate(d.Year, d.Month, 1).AddDays(domain.DaysInMonth(d.Year, d.Month))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.WarnContext(ctx, "availability cache invalidation failed", "error", err, "room_id", roomID)
	}
}
