// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"
	"strings"
)

// MaxDisplayRows caps how many sample rows a rendered result carries into
// the model context.
const MaxDisplayRows = 10

// FormatResult renders a QueryResult as the compact text block the
// evaluation prompts consume.
//
// Successful results render a row count, an optional truncation note, a
// `col | col` header line, and up to MaxDisplayRows data rows. Failures
// render an explicit failure marker with the error text so the model can
// reason about what went wrong.
func FormatResult(r QueryResult) string {
	if !r.Success {
		return fmt.Sprintf("Query failed: %s\nError: %s", r.Query, r.Error)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query returned %d rows", r.RowCount)

	if r.RowCount == 0 {
		return b.String()
	}

	if r.RowCount > MaxDisplayRows {
		fmt.Fprintf(&b, "\n(Showing first %d rows)", MaxDisplayRows)
	}

	b.WriteString("\n")
	b.WriteString(strings.Join(r.Columns, " | "))

	limit := r.RowCount
	if limit > MaxDisplayRows {
		limit = MaxDisplayRows
	}
	for _, row := range r.Rows[:limit] {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cells, " | "))
	}

	return b.String()
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
