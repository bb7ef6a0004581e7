package service

import (
	"context"
	"sync"
	"time"

	"barberflow/internal/domain"
	"barberflow/internal/repository"
)

// SettingsCache holds the product settings row with an explicit
// {value, fetchedAt} pair and a TTL. The clock is injected so staleness is
// testable; writes go through Update, which invalidates the cached value
// instead of waiting for it to age out.
type SettingsCache struct {
	repo  repository.SettingsRepository
	ttl   time.Duration
	clock func() time.Time

	mu        sync.Mutex
	value     *domain.ProductSettings
	fetchedAt time.Time
}

// NewSettingsCache creates a cache over the settings repository.
func NewSettingsCache(repo repository.SettingsRepository, ttl time.Duration, clock func() time.Time) *SettingsCache {
	if clock == nil {
		clock = time.Now
	}
	return &SettingsCache{repo: repo, ttl: ttl, clock: clock}
}

// Get returns the cached settings, refetching when stale or never loaded.
func (c *SettingsCache) Get(ctx context.Context) (*domain.ProductSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if c.value != nil && now.Sub(c.fetchedAt) < c.ttl {
		return c.value, nil
	}

	settings, err := c.repo.GetProductSettings(ctx)
	if err != nil {
		return nil, err
	}

	c.value = settings
	c.fetchedAt = now
	return settings, nil
}

// Update writes through to the store and drops the cached value.
func (c *SettingsCache) Update(ctx context.Context, settings *domain.ProductSettings) error {
	if err := c.repo.UpdateProductSettings(ctx, settings); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Invalidate drops the cached value so the next Get refetches.
func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
}
