// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache holds the process-wide cache layer for the insight service:
// a single-slot TTL cache for the schema/glossary text and a pair of bounded
// FIFO caches for assembled prompts and model responses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// Default capacities for the FIFO caches.
const (
	DefaultPromptCapacity   = 100
	DefaultResponseCapacity = 50
)

// Key derives a deterministic cache key from content. Whitespace runs are
// collapsed first so formatting-only differences map to the same key.
func Key(content string) string {
	normalized := strings.Join(strings.Fields(content), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// FIFOCache is a bounded string cache with insertion-order eviction.
//
// When the cache is full, the oldest inserted entry is evicted to make room.
// Hits do not refresh an entry's position; eviction order is strictly
// first-in first-out.
//
// Thread Safety: all methods are safe for concurrent use.
type FIFOCache struct {
	mu       sync.Mutex
	name     string
	capacity int
	entries  map[string]string
	order    []string
	hits     uint64
	misses   uint64
}

// NewFIFOCache creates a FIFO cache with the given capacity. The name is
// used as a metric attribute. A capacity below 1 is clamped to 1.
func NewFIFOCache(name string, capacity int) *FIFOCache {
	if capacity < 1 {
		capacity = 1
	}
	return &FIFOCache{
		name:     name,
		capacity: capacity,
		entries:  make(map[string]string, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Get returns the cached value for key, counting a hit or miss.
func (c *FIFOCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.entries[key]
	if ok {
		c.hits++
		recordCacheHit(ctx, c.name)
	} else {
		c.misses++
		recordCacheMiss(ctx, c.name)
	}
	return value, ok
}

// Put stores a value, evicting the oldest entry if the cache is full.
// Overwriting an existing key does not change its eviction position.
func (c *FIFOCache) Put(ctx context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = value
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		recordCacheEviction(ctx, c.name)
	}

	c.entries[key] = value
	c.order = append(c.order, key)
}

// Len returns the current number of entries.
func (c *FIFOCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries and resets the hit and miss counters, so
// stats after a flush reflect only the lookups issued since.
func (c *FIFOCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string, c.capacity)
	c.order = c.order[:0]
	c.hits = 0
	c.misses = 0
}

// counters returns the lifetime hit and miss counts.
func (c *FIFOCache) counters() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Stats is a point-in-time snapshot of the prompt/response cache pair.
type Stats struct {
	Enabled         bool    `json:"enabled"`
	PromptEntries   int     `json:"prompt_entries"`
	ResponseEntries int     `json:"response_entries"`
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	HitRatePercent  float64 `json:"hit_rate_percent"`
}

// Layer bundles the prompt and response caches behind a runtime
// enable/disable switch.
//
// While disabled, lookups miss unconditionally without touching counters
// and writes are dropped, so a disabled layer behaves exactly like a cold
// collaborator from the workflow's point of view.
//
// Thread Safety: all methods are safe for concurrent use.
type Layer struct {
	mu       sync.RWMutex
	enabled  bool
	prompts  *FIFOCache
	response *FIFOCache
}

// NewLayer creates an enabled cache layer with the given capacities.
func NewLayer(promptCapacity, responseCapacity int) *Layer {
	return &Layer{
		enabled:  true,
		prompts:  NewFIFOCache("prompt", promptCapacity),
		response: NewFIFOCache("response", responseCapacity),
	}
}

// Enabled reports whether the layer is active.
func (l *Layer) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

// SetEnabled toggles the layer at runtime.
func (l *Layer) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// GetResponse looks up a cached model response by prompt key.
func (l *Layer) GetResponse(ctx context.Context, key string) (string, bool) {
	if !l.Enabled() {
		return "", false
	}
	return l.response.Get(ctx, key)
}

// PutResponse stores a model response under the prompt key.
func (l *Layer) PutResponse(ctx context.Context, key, value string) {
	if !l.Enabled() {
		return
	}
	l.response.Put(ctx, key, value)
}

// GetPrompt looks up a cached assembled prompt by key.
func (l *Layer) GetPrompt(ctx context.Context, key string) (string, bool) {
	if !l.Enabled() {
		return "", false
	}
	return l.prompts.Get(ctx, key)
}

// PutPrompt stores an assembled prompt under its key.
func (l *Layer) PutPrompt(ctx context.Context, key, value string) {
	if !l.Enabled() {
		return
	}
	l.prompts.Put(ctx, key, value)
}

// Clear flushes both caches.
func (l *Layer) Clear() {
	l.prompts.Clear()
	l.response.Clear()
}

// Snapshot returns current stats across both caches.
func (l *Layer) Snapshot() Stats {
	promptHits, promptMisses := l.prompts.counters()
	respHits, respMisses := l.response.counters()

	hits := promptHits + respHits
	misses := promptMisses + respMisses

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total) * 100.0
	}

	return Stats{
		Enabled:         l.Enabled(),
		PromptEntries:   l.prompts.Len(),
		ResponseEntries: l.response.Len(),
		Hits:            hits,
		Misses:          misses,
		HitRatePercent:  rate,
	}
}
