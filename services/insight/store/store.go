// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store wraps the PostgreSQL collaborator behind a narrow Store
// interface and provides the bounded, failure-isolating QueryExecutor the
// workflow rounds run against.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the relational collaborator. Only read queries are expected;
// enforcement happens upstream in the safety validator.
type Store interface {
	// Query runs sql and returns the column names in result order and the
	// row values in result order.
	Query(ctx context.Context, sql string) (columns []string, rows [][]any, err error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error
}

// PgxStore is the production Store backed by a pgx connection pool.
type PgxStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPgxStore connects a pool using the given DSN.
//
// Inputs:
//
//	ctx - Governs the initial connection attempt.
//	dsn - PostgreSQL connection string.
//
// Outputs:
//
//	*PgxStore - Connected store.
//	error - Connection or configuration failure.
func NewPgxStore(ctx context.Context, dsn string, logger *slog.Logger) (*PgxStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("Connected to PostgreSQL", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return &PgxStore{pool: pool, logger: logger}, nil
}

// Query implements Store.
func (s *PgxStore) Query(ctx context.Context, sql string) ([]string, [][]any, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	var values [][]any
	for rows.Next() {
		rowValues, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		values = append(values, rowValues)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return columns, values, nil
}

// Ping implements Store.
func (s *PgxStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PgxStore) Close() {
	s.pool.Close()
}

var _ Store = (*PgxStore)(nil)
