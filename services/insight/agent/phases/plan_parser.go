// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package phases

import "strings"

// ParsePlanningOutput splits a planning response into the plan text and up
// to max extracted SQL statements.
//
// The expected layout is a PLAN: section followed by a QUERIES: section,
// but model output drifts, so the parser tolerates missing markers: with
// no QUERIES: marker the whole response is scanned for statements, and
// with no PLAN: marker the text before the first statement serves as the
// plan.
func ParsePlanningOutput(response string, max int) (plan string, statements []string) {
	queryText := response

	if idx := indexCaseInsensitive(response, "QUERIES:"); idx >= 0 {
		plan = response[:idx]
		queryText = response[idx+len("QUERIES:"):]
	} else {
		plan = response
	}

	if idx := indexCaseInsensitive(plan, "PLAN:"); idx >= 0 {
		plan = plan[idx+len("PLAN:"):]
	}
	plan = strings.TrimSpace(plan)

	statements = ExtractStatements(queryText, max)
	return plan, statements
}

// ExtractStatements pulls up to max SELECT statements out of free text.
//
// A statement runs from a SELECT keyword to the next semicolon. Text
// without a closing semicolon is not a statement. Markdown code fences are
// stripped first so fenced statements extract cleanly.
func ExtractStatements(text string, max int) []string {
	cleaned := strings.ReplaceAll(text, "```sql", "\n")
	cleaned = strings.ReplaceAll(cleaned, "```", "\n")
	upper := strings.ToUpper(cleaned)

	var out []string
	for start := 0; len(out) < max; {
		idx := strings.Index(upper[start:], "SELECT")
		if idx < 0 {
			break
		}
		idx += start

		end := strings.Index(cleaned[idx:], ";")
		if end < 0 {
			break
		}

		statement := strings.TrimSpace(cleaned[idx : idx+end+1])
		out = append(out, statement)
		start = idx + end + 1
	}
	return out
}

// indexCaseInsensitive finds marker in text ignoring case.
func indexCaseInsensitive(text, marker string) int {
	return strings.Index(strings.ToUpper(text), strings.ToUpper(marker))
}
