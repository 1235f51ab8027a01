package filesystem

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DiskUsageCacherInterval = 10 * time.Second
)

type usageBackend interface {
	Usage(ctx context.Context) (DiskStats, error)
}

// DiskUsageCacher keeps the last known usage of a backend, refreshing it
// periodically so free space checks do not hit the store on every write.
type DiskUsageCacher struct {
	sync.RWMutex
	backend usageBackend
	stats   *DiskStats
}

func NewDiskUsageCacher(ctx context.Context, backend usageBackend) *DiskUsageCacher {
	cacher := &DiskUsageCacher{
		backend: backend,
	}
	go cacher.periodicUpdate(ctx)

	return cacher
}

func (c *DiskUsageCacher) periodicUpdate(ctx context.Context) {
	ticker := time.NewTicker(DiskUsageCacherInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Update(ctx)
		}
	}
}

// Update refreshes an already cached value. Nothing is fetched until the
// first [DiskUsageCacher.GetDiskUsage].
func (c *DiskUsageCacher) Update(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.stats == nil {
		return nil
	}

	stats, err := c.backend.Usage(ctx)
	if err == nil {
		err = validateStats(stats)
	}
	if err != nil {
		c.stats = nil

		return fmt.Errorf("(fs-diskstats-update) %w", err)
	}
	c.stats = &stats

	return nil
}

func validateStats(stats DiskStats) error {
	if stats.TotalSize == 0 || stats.FreeSpace > stats.TotalSize {
		return fmt.Errorf("%w (TotalSize: %d, FreeSpace: %d)",
			ErrInvalidStats, stats.TotalSize, stats.FreeSpace)
	}

	return nil
}

func (c *DiskUsageCacher) GetDiskUsageFresh(ctx context.Context) (DiskStats, error) {
	c.Lock()
	defer c.Unlock()

	stats, err := c.backend.Usage(ctx)
	if err != nil {
		return DiskStats{}, fmt.Errorf("(fs-diskstats-store) failed to get usage: %w", err)
	}

	if err := validateStats(stats); err != nil {
		return DiskStats{}, fmt.Errorf("(fs-diskstats-store) %w", err)
	}

	c.stats = &stats

	return stats, nil
}

func (c *DiskUsageCacher) GetDiskUsage(ctx context.Context) (DiskStats, error) {
	c.RLock()
	if c.stats != nil {
		stats := *c.stats
		c.RUnlock()

		return stats, nil
	}
	c.RUnlock()

	return c.GetDiskUsageFresh(ctx)
}

func (c *DiskUsageCacher) HasEnoughFreeSpace(ctx context.Context, minFree uint64, fileSize uint64) (bool, error) {
	stats, err := c.GetDiskUsage(ctx)
	if err != nil {
		return false, fmt.Errorf("(fs-diskstats-efree) failed to get usage: %w", err)
	}

	requiredFree := minFree
	if minFree <= fileSize {
		requiredFree = fileSize
	}

	if stats.FreeSpace > requiredFree {
		return true, nil
	}

	return false, nil
}
