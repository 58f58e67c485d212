// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package phases

import (
	"strings"
	"testing"
)

const sampleAnswer = `SUFFICIENT
SIMPLE SUMMARY: Urban personas dominate the dataset.
KEY INSIGHTS:
- 42 of 60 personas are urban
- Rural personas cluster in two regions
DETAILED EXPLANATION: The counts per type show urban personas at 70 percent of the catalog, concentrated in metro areas.
CONTEXT RELEVANCE: 0.9`

func TestParseAnswer(t *testing.T) {
	a := ParseAnswer(sampleAnswer)

	if a.SimpleSummary != "Urban personas dominate the dataset." {
		t.Errorf("SimpleSummary = %q", a.SimpleSummary)
	}
	if len(a.KeyInsights) != 2 {
		t.Fatalf("KeyInsights = %v", a.KeyInsights)
	}
	if a.KeyInsights[0] != "42 of 60 personas are urban" {
		t.Errorf("KeyInsights[0] = %q", a.KeyInsights[0])
	}
	if !strings.Contains(a.DetailedExplanation, "70 percent") {
		t.Errorf("DetailedExplanation = %q", a.DetailedExplanation)
	}
	if a.ContextRelevance != 0.9 {
		t.Errorf("ContextRelevance = %v, want 0.9", a.ContextRelevance)
	}
}

func TestParseAnswer_RelevanceNormalization(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"plain", "CONTEXT RELEVANCE: 0.75", 0.75},
		{"percentage style", "CONTEXT RELEVANCE: 85", 0.85},
		{"percent sign", "CONTEXT RELEVANCE: 85%", 0.85},
		{"negative clamped", "CONTEXT RELEVANCE: -0.2", 0.0},
		{"missing", "SIMPLE SUMMARY: x", 0.0},
		{"prose around value", "CONTEXT RELEVANCE: roughly 0.6 given the data", 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ParseAnswer(tt.raw)
			if a.ContextRelevance != tt.want {
				t.Errorf("ContextRelevance = %v, want %v", a.ContextRelevance, tt.want)
			}
		})
	}
}

func TestParseAnswer_NumberedInsights(t *testing.T) {
	a := ParseAnswer("KEY INSIGHTS:\n1. first point\n2) second point")
	if len(a.KeyInsights) != 2 || a.KeyInsights[0] != "first point" || a.KeyInsights[1] != "second point" {
		t.Errorf("KeyInsights = %v", a.KeyInsights)
	}
}

func TestParseAnswer_NoMarkers(t *testing.T) {
	a := ParseAnswer("The data shows 42 urban personas.")
	if a.SimpleSummary != "" {
		t.Errorf("SimpleSummary = %q, want empty", a.SimpleSummary)
	}
	if a.DetailedExplanation != "The data shows 42 urban personas." {
		t.Errorf("DetailedExplanation = %q", a.DetailedExplanation)
	}
}

func TestParseAnswer_MarkdownHeaders(t *testing.T) {
	a := ParseAnswer("**SIMPLE SUMMARY:** Short answer here.\n**KEY INSIGHTS:**\n- one")
	if a.SimpleSummary != "Short answer here." {
		t.Errorf("SimpleSummary = %q", a.SimpleSummary)
	}
}
