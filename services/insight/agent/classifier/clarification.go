// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package classifier provides local, model-free text predicates used by the
// evaluation stage. Keeping these checks out of the model keeps them fast,
// deterministic, and immune to prompt drift.
package classifier

import "strings"

// clarificationMarkers are phrases that indicate the synthesized answer is
// really a question back to the user. Matched case-insensitively as
// substrings of the combined answer text.
var clarificationMarkers = []string{
	"clarification",
	"clarify",
	"specify",
	"which type",
	"which specific",
	"more specific",
	"need to know",
	"what do you mean",
	"need more information",
	"need more details",
	"more context about",
	"ambiguous",
	"rephrase",
}

// LooksLikeClarificationRequest reports whether the given answer text reads
// as a request for clarification rather than an actual answer.
//
// Description:
//
//	The evaluation model sometimes claims sufficiency while its synthesized
//	summary asks the user a question. This predicate runs independently of
//	the model's own judgment and, when it fires, the caller must treat the
//	evaluation as insufficient.
//
// Inputs:
//
//	text - Combined answer text (summary plus explanation).
//
// Outputs:
//
//	bool - True if the text asks for clarification.
//
// Thread Safety: Pure function, safe for concurrent use.
func LooksLikeClarificationRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range clarificationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
