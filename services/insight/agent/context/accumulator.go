// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package context accumulates query evidence across workflow iterations
// into the bounded text block the planning and evaluation prompts consume.
package context

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/PersonaInsight/services/insight/store"
)

const (
	// DefaultMaxBytes bounds the accumulated context overall.
	DefaultMaxBytes = 24000

	// resultSliceLimit bounds each individual result rendering.
	resultSliceLimit = 500

	truncationNote = "[earlier results truncated]\n"
)

// Accumulator folds query results into a cumulative context string.
//
// Folding is deterministic: the same inputs in the same order always
// produce the same output. Results within a round are rendered in candidate
// order and tagged with their originating iteration, so the evaluation
// model can tell which round produced which evidence.
//
// Thread Safety: Accumulator is stateless after construction and safe for
// concurrent use.
type Accumulator struct {
	maxBytes int
}

// NewAccumulator creates an accumulator with the given overall byte
// ceiling. A non-positive ceiling falls back to DefaultMaxBytes.
func NewAccumulator(maxBytes int) *Accumulator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Accumulator{maxBytes: maxBytes}
}

// Fold appends one round's results to the existing context.
//
// Description:
//
//	Each result is rendered (sample rows for successes, explicit failure
//	markers for failures), sliced to a per-result limit, and grouped under
//	an iteration tag. If the combined text exceeds the ceiling, whole
//	leading lines are dropped oldest-first and a truncation note is
//	prefixed.
//
// Inputs:
//
//	existing - Context accumulated so far. May be empty.
//	iteration - The round that produced these results.
//	results - The round's results in candidate order.
//
// Outputs:
//
//	string - Updated context, never longer than the ceiling.
func (a *Accumulator) Fold(existing string, iteration int, results []store.QueryResult) string {
	if len(results) == 0 {
		return existing
	}

	var b strings.Builder
	if existing != "" {
		b.WriteString(existing)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "--- ITERATION %d ---\n", iteration)

	for i, r := range results {
		rendered := store.FormatResult(r)
		if len(rendered) > resultSliceLimit {
			rendered = rendered[:resultSliceLimit] + "..."
		}
		fmt.Fprintf(&b, "[Query %d] %s\n%s\n", i+1, r.Query, rendered)
	}

	return a.truncate(b.String())
}

// truncate drops whole leading lines until the text fits the ceiling. A
// ceiling smaller than the truncation note leaves only the note, so a
// degenerate configuration degrades instead of panicking.
func (a *Accumulator) truncate(text string) string {
	if len(text) <= a.maxBytes {
		return text
	}

	budget := a.maxBytes - len(truncationNote)
	if budget < 0 {
		budget = 0
	}
	cut := len(text) - budget
	if idx := strings.Index(text[cut:], "\n"); idx >= 0 {
		cut += idx + 1
	}
	return truncationNote + text[cut:]
}
