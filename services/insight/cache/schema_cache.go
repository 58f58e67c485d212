// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSchemaTTL is how long a built schema/glossary snapshot stays fresh.
const DefaultSchemaTTL = 2 * time.Hour

// SchemaBuilder produces the schema/glossary context text on demand.
type SchemaBuilder func(ctx context.Context) (string, error)

// SchemaCache is a single-slot TTL cache over the schema/glossary text.
//
// The slot is recomputed lazily and synchronously when read after expiry.
// A failed rebuild leaves the slot empty and is reported to the caller as
// an empty string, not an error: planning degrades to its uncached path
// and the failure is only logged. Concurrent readers during a rebuild
// share one builder invocation.
//
// Thread Safety: all methods are safe for concurrent use.
type SchemaCache struct {
	mu      sync.Mutex
	builder SchemaBuilder
	ttl     time.Duration
	value   string
	builtAt time.Time
	logger  *slog.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewSchemaCache creates a schema cache. A non-positive ttl falls back to
// DefaultSchemaTTL.
func NewSchemaCache(builder SchemaBuilder, ttl time.Duration, logger *slog.Logger) *SchemaCache {
	if ttl <= 0 {
		ttl = DefaultSchemaTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SchemaCache{
		builder: builder,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cached schema text, rebuilding it first if the slot is
// empty or stale. Returns "" when no snapshot is available and the rebuild
// failed.
func (c *SchemaCache) Get(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value != "" && c.now().Sub(c.builtAt) < c.ttl {
		recordCacheHit(ctx, "schema")
		return c.value
	}
	recordCacheMiss(ctx, "schema")

	text, err := c.builder(ctx)
	if err != nil {
		recordCacheBuild(ctx, false)
		c.logger.Warn("schema cache rebuild failed, continuing without cached schema",
			"error", err)
		c.value = ""
		return ""
	}

	recordCacheBuild(ctx, true)
	c.value = text
	c.builtAt = c.now()
	return c.value
}

// Invalidate empties the slot so the next Get rebuilds.
func (c *SchemaCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = ""
	c.builtAt = time.Time{}
}
