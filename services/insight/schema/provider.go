// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package schema builds the database schema and glossary text that grounds
// the planning prompts. The provider's Build method is the schema cache's
// builder, so a snapshot is recomputed at most once per TTL window.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/PersonaInsight/services/insight/store"
)

const personasSummaryQuery = "SELECT id, code, name, label, type FROM personas ORDER BY id;"

const columnsQuery = `SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position;`

// glossary explains domain terms the model cannot learn from column names.
const glossary = `GLOSSARY
- persona: a named population segment with a stable integer id and short code.
- label: human-readable display name for a persona, distinct from its code.
- type: coarse persona category (for example urban, suburban, rural).
- geography tables join to personas through the persona id column.`

// Provider builds the schema context text from the live store.
type Provider struct {
	store store.Store
}

// NewProvider creates a provider over the given store.
func NewProvider(s store.Store) *Provider {
	return &Provider{store: s}
}

// Build assembles the full schema context: persona catalog, table/column
// listing, and the static glossary.
//
// Inputs:
//
//	ctx - Governs both catalog queries.
//
// Outputs:
//
//	string - The assembled context text.
//	error - Store failure; the caller's cache degrades silently on error.
func (p *Provider) Build(ctx context.Context) (string, error) {
	var b strings.Builder

	personas, err := p.personasSummary(ctx)
	if err != nil {
		return "", fmt.Errorf("building personas summary: %w", err)
	}
	b.WriteString("AVAILABLE PERSONAS\n")
	b.WriteString(personas)

	tables, err := p.tableListing(ctx)
	if err != nil {
		return "", fmt.Errorf("building table listing: %w", err)
	}
	b.WriteString("\n\nDATABASE SCHEMA\n")
	b.WriteString(tables)

	b.WriteString("\n\n")
	b.WriteString(glossary)

	return b.String(), nil
}

// personasSummary renders one line per persona.
func (p *Provider) personasSummary(ctx context.Context) (string, error) {
	columns, rows, err := p.store.Query(ctx, personasSummaryQuery)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.Join(columns, " | "))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cells, " | "))
	}
	return b.String(), nil
}

// tableListing groups columns by table.
func (p *Provider) tableListing(ctx context.Context) (string, error) {
	_, rows, err := p.store.Query(ctx, columnsQuery)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	currentTable := ""
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		table := fmt.Sprintf("%v", row[0])
		column := fmt.Sprintf("%v", row[1])
		dataType := fmt.Sprintf("%v", row[2])

		if table != currentTable {
			if currentTable != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "TABLE %s:", table)
			currentTable = table
		}
		fmt.Fprintf(&b, "\n  %s (%s)", column, dataType)
	}
	return b.String(), nil
}
