// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classifier

import "testing"

func TestLooksLikeClarificationRequest(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			name: "direct clarification ask",
			text: "Could you clarify which region you are interested in?",
			want: true,
		},
		{
			name: "mixed case",
			text: "The question is AMBIGUOUS without a timeframe.",
			want: true,
		},
		{
			name: "buried in explanation",
			text: "Persona counts vary by region. I need more information about the date range to proceed.",
			want: true,
		},
		{
			name: "bare need to know",
			text: "I need to know which type of persona you mean.",
			want: true,
		},
		{
			name: "which type",
			text: "Which type of region should the comparison cover?",
			want: true,
		},
		{
			name: "more specific",
			text: "A more specific timeframe would be required to answer.",
			want: true,
		},
		{
			name: "clarification noun",
			text: "Some clarification is needed before the counts can be computed.",
			want: true,
		},
		{
			name: "real answer",
			text: "There are 42 urban personas, concentrated in the three largest metro areas.",
			want: false,
		},
		{
			name: "empty",
			text: "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeClarificationRequest(tt.text); got != tt.want {
				t.Errorf("LooksLikeClarificationRequest(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
