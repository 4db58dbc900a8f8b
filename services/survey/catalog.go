// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package survey

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches the complete answer library from the remote
// platform. The production loader is the SD Elements client's paged
// library-answers fetch; tests substitute a fixed catalog.
type CatalogLoader func(ctx context.Context) ([]LibraryAnswer, error)

// CatalogCache holds the process-wide library answer catalog.
//
// The catalog is lazily populated on first use and replaced wholesale on
// refresh: readers see either the old or the new slice, never a partially
// updated one. Concurrent first readers trigger exactly one remote load
// (singleflight). Invalidate drops the cached catalog so the next Get
// reloads; a best-effort background refresh can replace it periodically
// without blocking readers.
//
// An optional CatalogStore persists the last loaded catalog so a restarted
// process can serve text resolution before its first remote load completes.
type CatalogCache struct {
	loader CatalogLoader
	store  *CatalogStore
	logger *slog.Logger

	group singleflight.Group

	mu          sync.RWMutex
	answers     []LibraryAnswer
	loaded      bool
	invalidated bool
}

// NewCatalogCache builds a cache over the given loader. store and logger
// may be nil.
func NewCatalogCache(loader CatalogLoader, store *CatalogStore, logger *slog.Logger) *CatalogCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogCache{
		loader: loader,
		store:  store,
		logger: logger,
	}
}

// Get returns the cached catalog, loading it on first use. The returned
// slice is shared and must be treated as read-only.
func (c *CatalogCache) Get(ctx context.Context) ([]LibraryAnswer, error) {
	c.mu.RLock()
	if c.loaded {
		answers := c.answers
		c.mu.RUnlock()
		return answers, nil
	}
	invalidated := c.invalidated
	c.mu.RUnlock()

	// Warm start: a persisted snapshot serves reads until the first remote
	// load lands. Snapshot failures are silent cache misses. An explicit
	// Invalidate skips this path: the caller asked for a fresh remote load,
	// not the pre-invalidation state.
	if c.store != nil && !invalidated {
		if snapshot, err := c.store.LoadSnapshot(); err == nil && len(snapshot) > 0 {
			c.mu.Lock()
			if !c.loaded && !c.invalidated {
				c.answers = snapshot
				c.loaded = true
				catalogSize.Set(float64(len(snapshot)))
			}
			answers, loaded := c.answers, c.loaded
			c.mu.Unlock()
			if loaded {
				c.logger.Info("Catalog served from persisted snapshot",
					slog.Int("answers", len(snapshot)))
				return answers, nil
			}
		}
	}

	_, err, _ := c.group.Do("catalog", func() (interface{}, error) {
		// A caller that lost the race may arrive here after the winning
		// flight already populated the cache; don't load twice.
		c.mu.RLock()
		loaded := c.loaded
		c.mu.RUnlock()
		if loaded {
			return nil, nil
		}
		return nil, c.Load(ctx)
	})
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	answers := c.answers
	c.mu.RUnlock()
	return answers, nil
}

// Load fetches the catalog from the remote and replaces the cached slice
// wholesale. It is called lazily by Get and explicitly by the refresh
// endpoint and the background refresher.
func (c *CatalogCache) Load(ctx context.Context) error {
	start := time.Now()
	answers, err := c.loader(ctx)
	if err != nil {
		return &FetchError{Resource: "catalog", Err: err}
	}
	catalogLoadDuration.Observe(time.Since(start).Seconds())
	catalogSize.Set(float64(len(answers)))

	c.mu.Lock()
	c.answers = answers
	c.loaded = true
	c.invalidated = false
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveSnapshot(answers); err != nil {
			c.logger.Warn("Failed to persist catalog snapshot",
				slog.String("error", err.Error()))
		}
	}

	c.logger.Info("Library answer catalog loaded",
		slog.Int("answers", len(answers)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Invalidate drops the cached catalog and the persisted snapshot. The next
// Get triggers a fresh remote load; the snapshot never satisfies it.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.answers = nil
	c.loaded = false
	c.invalidated = true
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.DropSnapshot(); err != nil {
			c.logger.Warn("Failed to drop catalog snapshot",
				slog.String("error", err.Error()))
		}
	}
}

// StartRefresh launches a best-effort background refresher that replaces
// the catalog wholesale every interval until ctx is cancelled. Refresh
// failures keep the previous catalog and are logged, never fatal.
func (c *CatalogCache) StartRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Load(ctx); err != nil {
					c.logger.Warn("Background catalog refresh failed",
						slog.String("error", err.Error()))
				}
			}
		}
	}()
}
