// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package phases implements the individual stages of the workflow state
// machine.
//
// Each stage handles a specific part of a run:
//   - PLAN: assemble the prompt, generate and validate candidate statements
//   - EXECUTE: run the round's accepted candidates, fold evidence
//   - EVALUATE: judge sufficiency, synthesize or force the final answer
//
// Thread Safety:
//
//	Stage implementations are stateless beyond their injected dependencies
//	and safe for concurrent use; sessions are owned by their run.
package phases

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"

	insightctx "github.com/AleutianAI/PersonaInsight/services/insight/agent/context"
	"github.com/AleutianAI/PersonaInsight/services/insight/cache"
	"github.com/AleutianAI/PersonaInsight/services/insight/llm"
	"github.com/AleutianAI/PersonaInsight/services/insight/store"
)

// tracer for stage spans.
var tracer = otel.Tracer("insight.phases")

// DefaultMaxCandidates caps how many statements one planning round may
// produce.
const DefaultMaxCandidates = 3

// Dependencies carries the collaborators shared by all stages.
type Dependencies struct {
	// LLM generates planning and evaluation text.
	LLM llm.Client

	// Caches is the prompt/response cache layer. Optional; a nil layer
	// means every model call goes out uncached.
	Caches *cache.Layer

	// Schema serves the cached schema/glossary text. Optional; planning
	// proceeds without schema grounding when absent or degraded.
	Schema *cache.SchemaCache

	// Executor runs validated statements.
	Executor *store.QueryExecutor

	// Accumulator folds round results into the session context.
	Accumulator *insightctx.Accumulator

	// MaxCandidates caps statements per round. Zero means
	// DefaultMaxCandidates.
	MaxCandidates int

	Logger *slog.Logger
}

// logger returns the configured logger or the process default.
func (d Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// maxCandidates returns the effective per-round candidate cap.
func (d Dependencies) maxCandidates() int {
	if d.MaxCandidates > 0 {
		return d.MaxCandidates
	}
	return DefaultMaxCandidates
}

// generate runs a model call through the response cache when available.
//
// A cache hit short-circuits the model entirely. On a miss the response is
// stored under the prompt's key so an identical prompt later in this or
// another run hits. With no cache layer the call falls through directly,
// which keeps stages working when caching is disabled or degraded.
func generate(ctx context.Context, deps Dependencies, prompt string) (string, error) {
	if deps.Caches == nil {
		deps.logger().Debug("response cache unavailable, calling model directly")
		return deps.LLM.Generate(ctx, prompt, llm.GenerationParams{})
	}

	key := cache.Key(prompt)
	if cached, ok := deps.Caches.GetResponse(ctx, key); ok {
		return cached, nil
	}

	response, err := deps.LLM.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		return "", err
	}
	deps.Caches.PutResponse(ctx, key, response)
	return response, nil
}

// cachedPrompt serves an assembled prompt from the prompt cache, building
// and storing it on a miss. The key must cover every input the build
// closure reads.
func cachedPrompt(ctx context.Context, deps Dependencies, key string, build func() string) string {
	if deps.Caches == nil {
		return build()
	}
	if prompt, ok := deps.Caches.GetPrompt(ctx, key); ok {
		return prompt
	}
	prompt := build()
	deps.Caches.PutPrompt(ctx, key, prompt)
	return prompt
}

// schemaText returns the cached schema context or empty when unavailable.
func schemaText(ctx context.Context, deps Dependencies) string {
	if deps.Schema == nil {
		return ""
	}
	return deps.Schema.Get(ctx)
}
