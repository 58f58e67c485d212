// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSchemaCache_RebuildsAfterTTL(t *testing.T) {
	ctx := context.Background()
	builds := 0
	builder := func(ctx context.Context) (string, error) {
		builds++
		return "schema snapshot", nil
	}

	clock := time.Now()
	c := NewSchemaCache(builder, time.Hour, nil)
	c.now = func() time.Time { return clock }

	if got := c.Get(ctx); got != "schema snapshot" {
		t.Fatalf("Get = %q", got)
	}
	if got := c.Get(ctx); got != "schema snapshot" {
		t.Fatalf("second Get = %q", got)
	}
	if builds != 1 {
		t.Errorf("builds = %d before TTL expiry, want 1", builds)
	}

	clock = clock.Add(2 * time.Hour)
	c.Get(ctx)
	if builds != 2 {
		t.Errorf("builds = %d after TTL expiry, want 2", builds)
	}
}

func TestSchemaCache_BuilderFailureDegrades(t *testing.T) {
	ctx := context.Background()
	fail := true
	builder := func(ctx context.Context) (string, error) {
		if fail {
			return "", errors.New("db unreachable")
		}
		return "schema snapshot", nil
	}

	c := NewSchemaCache(builder, time.Hour, nil)

	if got := c.Get(ctx); got != "" {
		t.Errorf("Get = %q during builder failure, want empty", got)
	}

	fail = false
	if got := c.Get(ctx); got != "schema snapshot" {
		t.Errorf("Get = %q after builder recovery", got)
	}
}

func TestSchemaCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	builds := 0
	c := NewSchemaCache(func(ctx context.Context) (string, error) {
		builds++
		return "s", nil
	}, time.Hour, nil)

	c.Get(ctx)
	c.Invalidate()
	c.Get(ctx)
	if builds != 2 {
		t.Errorf("builds = %d after Invalidate, want 2", builds)
	}
}
