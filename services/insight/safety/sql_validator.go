// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package safety provides the SQL safety gate for the insight workflow.
//
// Every candidate statement produced by the planning stage passes through
// Validate before it may touch the data store. The store is assumed
// read-only-capable but is NOT trusted to enforce it; this validator is the
// service's own defense regardless of store-side permissions.
package safety

import (
	"strings"
)

// deniedKeywords are mutating SQL keywords that are never allowed, even
// inside an otherwise well-formed SELECT (e.g. a sneaky CTE or subquery).
var deniedKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE", "TRUNCATE",
}

// Verdict is the outcome of validating one candidate SQL statement.
//
// A Verdict is immutable once returned. Validation never fails with an
// error: malformed input yields a rejection, not a panic or error return.
type Verdict struct {
	// Accepted is true if the statement may be executed.
	Accepted bool

	// Normalized is the cleaned statement (comments stripped, whitespace
	// collapsed, trailing semicolon guaranteed). Only set when Accepted.
	Normalized string

	// Reason explains the rejection. Only set when !Accepted.
	Reason string
}

// Validate checks a candidate SQL statement against the read-only policy.
//
// Description:
//
//	Strips `--` line comments before any other check so comments cannot
//	hide disallowed tokens, collapses whitespace, then requires the
//	cleaned statement to begin with SELECT (case-insensitive) and to
//	contain none of the denied keywords as standalone tokens.
//
// Inputs:
//
//	sqlText - The raw candidate statement. May contain prose artifacts.
//
// Outputs:
//
//	Verdict - Accepted with the normalized text, or Rejected with a reason.
//
// Thread Safety: Validate is a pure function and safe for concurrent use.
func Validate(sqlText string) Verdict {
	normalized := Normalize(sqlText)
	if normalized == "" {
		return Verdict{Accepted: false, Reason: "empty statement"}
	}

	upper := strings.ToUpper(normalized)
	if !strings.HasPrefix(upper, "SELECT") {
		return Verdict{Accepted: false, Reason: "only SELECT statements are allowed"}
	}

	for _, keyword := range deniedKeywords {
		if containsToken(upper, keyword) {
			return Verdict{
				Accepted: false,
				Reason:   "dangerous keyword '" + keyword + "' detected",
			}
		}
	}

	return Verdict{Accepted: true, Normalized: normalized}
}

// Normalize strips `--` line comments, trims each line, and collapses the
// statement onto a single line ending with a semicolon.
//
// Normalizing an already-normalized statement is a no-op, which keeps
// Validate idempotent.
func Normalize(sqlText string) string {
	var parts []string
	for _, line := range strings.Split(sqlText, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			parts = append(parts, line)
		}
	}

	cleaned := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if cleaned == "" {
		return ""
	}
	if !strings.HasSuffix(cleaned, ";") {
		cleaned += ";"
	}
	return cleaned
}

// containsToken reports whether keyword appears in text as a standalone
// token rather than as a substring of an identifier (so "CREATED_AT" does
// not trip the "CREATE" check).
func containsToken(text, keyword string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], keyword)
		if idx < 0 {
			return false
		}
		idx += start

		before := byte(' ')
		if idx > 0 {
			before = text[idx-1]
		}
		after := byte(' ')
		if end := idx + len(keyword); end < len(text) {
			after = text[end]
		}
		if !isIdentByte(before) && !isIdentByte(after) {
			return true
		}
		start = idx + len(keyword)
	}
}

func isIdentByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z':
		return true
	case b >= 'a' && b <= 'z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_':
		return true
	}
	return false
}
