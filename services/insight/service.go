// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package insight wires the workflow controller, its stages, the cache
// layer, and the PostgreSQL collaborator into one HTTP-served service.
package insight

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/PersonaInsight/services/insight/agent"
	insightctx "github.com/AleutianAI/PersonaInsight/services/insight/agent/context"
	"github.com/AleutianAI/PersonaInsight/services/insight/agent/phases"
	"github.com/AleutianAI/PersonaInsight/services/insight/cache"
	"github.com/AleutianAI/PersonaInsight/services/insight/config"
	"github.com/AleutianAI/PersonaInsight/services/insight/llm"
	"github.com/AleutianAI/PersonaInsight/services/insight/schema"
	"github.com/AleutianAI/PersonaInsight/services/insight/store"
)

// Service bundles the wired components of the insight service.
type Service struct {
	Config     *config.Config
	Store      *store.PgxStore
	Caches     *cache.Layer
	Schema     *cache.SchemaCache
	Controller *agent.Controller
	Handlers   *Handlers

	logger *slog.Logger
}

// NewService wires the full service from configuration.
//
// Description:
//
//	Connects the store, builds the schema provider and both cache levels,
//	constructs the model client and the three workflow stages, and hands
//	everything to a controller. The returned service owns the store
//	connection; call Close when done.
//
// Inputs:
//
//	ctx - Governs the initial store connection.
//	cfg - Validated configuration.
//	logger - Process logger. Nil falls back to slog.Default.
//
// Outputs:
//
//	*Service - The wired service.
//	error - Store or model client construction failure.
func NewService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.NewPgxStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting store: %w", err)
	}

	provider := schema.NewProvider(st)
	schemaCache := cache.NewSchemaCache(provider.Build, cfg.SchemaCacheTTL.Std(), logger)

	caches := cache.NewLayer(cfg.PromptCacheCapacity, cfg.ResponseCacheCapacity)
	if cfg.CachingEnabled != nil {
		caches.SetEnabled(*cfg.CachingEnabled)
	}

	model, err := llm.NewOpenAIClient(cfg.Model, cfg.SystemPrompt, cfg.LLMTimeout.Std())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	deps := phases.Dependencies{
		LLM:           model,
		Caches:        caches,
		Schema:        schemaCache,
		Executor:      store.NewQueryExecutor(st, cfg.QueryTimeout.Std(), logger),
		Accumulator:   insightctx.NewAccumulator(cfg.ContextMaxBytes),
		MaxCandidates: cfg.MaxCandidateQueries,
		Logger:        logger,
	}

	controller := agent.NewController(
		phases.NewPlanning(deps),
		phases.NewExecution(deps),
		phases.NewEvaluating(deps),
		agent.WithMaxIterations(cfg.MaxIterations),
		agent.WithRunTimeout(cfg.RunTimeout.Std()),
		agent.WithLogger(logger),
	)

	svc := &Service{
		Config:     cfg,
		Store:      st,
		Caches:     caches,
		Schema:     schemaCache,
		Controller: controller,
		logger:     logger,
	}
	svc.Handlers = NewHandlers(controller, caches, st, logger)
	return svc, nil
}

// Close releases the store connection.
func (s *Service) Close() {
	s.Store.Close()
}
