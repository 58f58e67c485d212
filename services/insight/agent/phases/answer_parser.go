// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package phases

import (
	"strconv"
	"strings"

	"github.com/AleutianAI/PersonaInsight/services/insight/agent"
)

// sectionMarkers are the answer section headers, in expected order. The
// parser does not require the order; each section ends where any other
// marker begins.
var sectionMarkers = []string{
	"SIMPLE SUMMARY",
	"KEY INSIGHTS",
	"DETAILED EXPLANATION",
	"CONTEXT RELEVANCE",
}

// ParseAnswer extracts the structured answer fields from a model response.
//
// Missing sections yield empty fields rather than errors; a response with
// no markers at all lands entirely in the detailed explanation so nothing
// the model said is lost. Relevance values above 1 are treated as
// percentages and divided by 100, then clamped to [0, 1].
func ParseAnswer(response string) agent.Answer {
	answer := agent.Answer{
		SimpleSummary:       extractSection(response, "SIMPLE SUMMARY"),
		KeyInsights:         parseInsights(extractSection(response, "KEY INSIGHTS")),
		DetailedExplanation: extractSection(response, "DETAILED EXPLANATION"),
		ContextRelevance:    parseRelevance(extractSection(response, "CONTEXT RELEVANCE")),
	}

	if answer.SimpleSummary == "" && answer.DetailedExplanation == "" {
		answer.DetailedExplanation = strings.TrimSpace(response)
	}
	return answer
}

// extractSection returns the text between a marker and the next marker.
func extractSection(text, marker string) string {
	upper := strings.ToUpper(text)
	idx := strings.Index(upper, marker)
	if idx < 0 {
		return ""
	}

	start := idx + len(marker)
	rest := text[start:]
	restUpper := upper[start:]

	end := len(rest)
	for _, other := range sectionMarkers {
		if other == marker {
			continue
		}
		if j := strings.Index(restUpper, other); j >= 0 && j < end {
			end = j
		}
	}

	section := strings.TrimLeft(rest[:end], ":* \t")
	return strings.TrimSpace(strings.TrimRight(section, "*# \t\r\n"))
}

// parseInsights splits a section into bullet items. Lines keep their order;
// bullet and numbering prefixes are stripped. A section with no bullet
// structure becomes a single insight.
func parseInsights(section string) []string {
	if section == "" {
		return []string{}
	}

	var out []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = trimNumberPrefix(line)
		if line != "" {
			out = append(out, line)
		}
	}

	if len(out) == 0 {
		out = []string{section}
	}
	return out
}

// trimNumberPrefix strips "1." / "2)" style list numbering.
func trimNumberPrefix(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

// parseRelevance finds the first numeric token in the section and maps it
// into [0, 1].
func parseRelevance(section string) float64 {
	for _, field := range strings.Fields(section) {
		token := strings.Trim(field, "()[]%,:")
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			continue
		}
		if value > 1 {
			value = value / 100
		}
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
		return value
	}
	return 0
}
