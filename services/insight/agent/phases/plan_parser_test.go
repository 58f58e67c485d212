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

func TestParsePlanningOutput(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		response := `PLAN:
Count personas per type, then look at the largest group.
QUERIES:
SELECT type, count(*) FROM personas GROUP BY type;
SELECT * FROM personas WHERE type = 'urban' LIMIT 5;`

		plan, statements := ParsePlanningOutput(response, 3)
		if !strings.Contains(plan, "Count personas per type") {
			t.Errorf("plan = %q", plan)
		}
		if strings.Contains(plan, "SELECT type") {
			t.Errorf("plan contains query text: %q", plan)
		}
		if len(statements) != 2 {
			t.Fatalf("len(statements) = %d, want 2", len(statements))
		}
		if statements[0] != "SELECT type, count(*) FROM personas GROUP BY type;" {
			t.Errorf("statements[0] = %q", statements[0])
		}
	})

	t.Run("no markers", func(t *testing.T) {
		response := "I would run SELECT count(*) FROM personas; to start."
		plan, statements := ParsePlanningOutput(response, 3)
		if len(statements) != 1 {
			t.Fatalf("len(statements) = %d, want 1", len(statements))
		}
		if statements[0] != "SELECT count(*) FROM personas;" {
			t.Errorf("statements[0] = %q", statements[0])
		}
		if plan == "" {
			t.Error("plan is empty")
		}
	})

	t.Run("no queries", func(t *testing.T) {
		plan, statements := ParsePlanningOutput("PLAN:\nNothing to query yet.\nQUERIES:\nnone", 3)
		if len(statements) != 0 {
			t.Errorf("statements = %v, want none", statements)
		}
		if !strings.Contains(plan, "Nothing to query yet") {
			t.Errorf("plan = %q", plan)
		}
	})
}

func TestExtractStatements(t *testing.T) {
	t.Run("markdown fences", func(t *testing.T) {
		text := "```sql\nSELECT 1;\n```\nand also\n```sql\nSELECT 2;\n```"
		statements := ExtractStatements(text, 3)
		if len(statements) != 2 {
			t.Fatalf("len = %d, want 2", len(statements))
		}
		for _, s := range statements {
			if strings.Contains(s, "`") {
				t.Errorf("fence leaked into statement: %q", s)
			}
		}
	})

	t.Run("cap respected", func(t *testing.T) {
		text := "SELECT 1; SELECT 2; SELECT 3; SELECT 4; SELECT 5;"
		statements := ExtractStatements(text, 3)
		if len(statements) != 3 {
			t.Errorf("len = %d, want cap of 3", len(statements))
		}
	})

	t.Run("subquery stays whole", func(t *testing.T) {
		text := "SELECT a FROM (SELECT b FROM t) s WHERE a > 1;"
		statements := ExtractStatements(text, 3)
		if len(statements) != 1 {
			t.Fatalf("len = %d, want 1", len(statements))
		}
		if !strings.Contains(statements[0], "(SELECT b FROM t)") {
			t.Errorf("subquery split: %q", statements[0])
		}
	})

	t.Run("unterminated statement dropped", func(t *testing.T) {
		statements := ExtractStatements("SELECT a FROM t", 3)
		if len(statements) != 0 {
			t.Errorf("statements = %v, want none", statements)
		}
	})

	t.Run("lowercase select", func(t *testing.T) {
		statements := ExtractStatements("select 1;", 3)
		if len(statements) != 1 {
			t.Errorf("len = %d, want 1", len(statements))
		}
	})
}
