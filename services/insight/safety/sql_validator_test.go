// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package safety

import (
	"strings"
	"testing"
)

func TestValidate_AcceptsSelect(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "simple select",
			sql:  "SELECT id FROM personas;",
			want: "SELECT id FROM personas;",
		},
		{
			name: "lowercase select",
			sql:  "select count(*) from personas",
			want: "select count(*) from personas;",
		},
		{
			name: "multiline with comments",
			sql:  "SELECT id, name -- the key columns\nFROM personas\nWHERE type = 'urban';",
			want: "SELECT id, name FROM personas WHERE type = 'urban';",
		},
		{
			name: "leading whitespace",
			sql:  "   \n  SELECT 1;",
			want: "SELECT 1;",
		},
		{
			name: "identifier containing denied keyword",
			sql:  "SELECT created_at, updated_count FROM events;",
			want: "SELECT created_at, updated_count FROM events;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.sql)
			if !v.Accepted {
				t.Fatalf("Validate(%q) rejected: %s", tt.sql, v.Reason)
			}
			if v.Normalized != tt.want {
				t.Errorf("Normalized = %q, want %q", v.Normalized, tt.want)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		reason string
	}{
		{"empty", "", "empty statement"},
		{"only comments", "-- nothing here\n--really", "empty statement"},
		{"non-select", "SHOW TABLES;", "only SELECT"},
		{"drop", "DROP TABLE personas;", "DROP"},
		{"delete", "DELETE FROM personas;", "DELETE"},
		{"update buried in subquery", "SELECT * FROM (UPDATE x SET y=1 RETURNING *) t;", "UPDATE"},
		{"insert via cte", "SELECT 1; INSERT INTO t VALUES (1);", "INSERT"},
		{"truncate lowercase", "select * from t; truncate t;", "TRUNCATE"},
		{"keyword hidden behind comment marker", "SELECT 1 --\n; DROP TABLE t;", "DROP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(tt.sql)
			if v.Accepted {
				t.Fatalf("Validate(%q) accepted, want rejection", tt.sql)
			}
			if !strings.Contains(v.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to mention %q", v.Reason, tt.reason)
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	first := Validate("SELECT a,\n b -- cols\nFROM t")
	if !first.Accepted {
		t.Fatalf("unexpected rejection: %s", first.Reason)
	}

	second := Validate(first.Normalized)
	if !second.Accepted {
		t.Fatalf("re-validation rejected: %s", second.Reason)
	}
	if second.Normalized != first.Normalized {
		t.Errorf("re-validation changed text: %q -> %q", first.Normalized, second.Normalized)
	}
}
