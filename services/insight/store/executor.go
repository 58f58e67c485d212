// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultQueryTimeout bounds a single statement's execution.
const DefaultQueryTimeout = 30 * time.Second

// QueryResult is the outcome of executing one validated statement.
//
// Failures are data, not errors: a failed statement produces a result with
// Success=false and the error text, and the round continues. Row and column
// order is preserved exactly as the store returned it.
type QueryResult struct {
	Query    string   `json:"query"`
	Success  bool     `json:"success"`
	Columns  []string `json:"columns,omitempty"`
	Rows     [][]any  `json:"rows,omitempty"`
	RowCount int      `json:"row_count"`
	Error    string   `json:"error,omitempty"`
}

// QueryExecutor runs validated statements against the store under a bounded
// timeout.
//
// Thread Safety: safe for concurrent use; each call operates on its own
// derived context.
type QueryExecutor struct {
	store   Store
	timeout time.Duration
	logger  *slog.Logger
}

// NewQueryExecutor creates an executor. A non-positive timeout falls back
// to DefaultQueryTimeout.
func NewQueryExecutor(store Store, timeout time.Duration, logger *slog.Logger) *QueryExecutor {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryExecutor{store: store, timeout: timeout, logger: logger}
}

// Execute runs one validated statement.
//
// Description:
//
//	Derives a per-statement timeout from ctx and runs the statement. Any
//	store failure, including the timeout firing, is captured in the
//	returned QueryResult rather than surfaced as an error.
//
// Inputs:
//
//	ctx - Parent context; cancellation aborts the statement.
//	sql - A statement already accepted by the safety validator.
//
// Outputs:
//
//	QueryResult - Success with rows, or failure with the error text.
func (e *QueryExecutor) Execute(ctx context.Context, sql string) QueryResult {
	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	columns, rows, err := e.store.Query(queryCtx, sql)
	elapsed := time.Since(start)

	if err != nil {
		e.logger.Warn("query failed", "error", err, "duration", elapsed)
		return QueryResult{Query: sql, Success: false, Error: err.Error()}
	}

	e.logger.Debug("query succeeded", "rows", len(rows), "duration", elapsed)
	return QueryResult{
		Query:    sql,
		Success:  true,
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}
}

// ExecuteAll runs a round's candidate statements concurrently and returns
// their results in candidate order.
//
// Description:
//
//	Each statement gets its own goroutine and its own timeout. Results are
//	written to a slot indexed by the statement's position, so the returned
//	slice order is deterministic no matter which statement finishes first.
//	Individual failures never abort the round; only parent-context
//	cancellation stops work early.
//
// Inputs:
//
//	ctx - Parent context for the round.
//	statements - Validated statements in candidate order.
//
// Outputs:
//
//	[]QueryResult - One result per statement, index-aligned.
func (e *QueryExecutor) ExecuteAll(ctx context.Context, statements []string) []QueryResult {
	results := make([]QueryResult, len(statements))

	g, groupCtx := errgroup.WithContext(ctx)
	for i, sql := range statements {
		i, sql := i, sql
		g.Go(func() error {
			results[i] = e.Execute(groupCtx, sql)
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes completion.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if !results[i].Success && results[i].Error == "" {
				results[i] = QueryResult{Query: statements[i], Success: false, Error: err.Error()}
			}
		}
	}

	return results
}
