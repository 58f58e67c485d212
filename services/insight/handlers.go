// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package insight

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/PersonaInsight/services/insight/agent"
	"github.com/AleutianAI/PersonaInsight/services/insight/cache"
	"github.com/AleutianAI/PersonaInsight/services/insight/store"
)

// QueryRunner runs one workflow for a question.
type QueryRunner interface {
	Run(ctx context.Context, question, priorContext string) agent.RunResult
}

// Handlers contains the HTTP handlers for the insight service.
//
// Thread Safety: Handlers is safe for concurrent use.
type Handlers struct {
	runner QueryRunner
	caches *cache.Layer
	store  store.Store
	logger *slog.Logger
}

// NewHandlers creates handlers over the workflow runner and its
// collaborators.
func NewHandlers(runner QueryRunner, caches *cache.Layer, st store.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{runner: runner, caches: caches, store: st, logger: logger}
}

// QueryRequest is the body of POST /v1/insight/query.
type QueryRequest struct {
	Question     string `json:"question" binding:"required"`
	PriorContext string `json:"prior_context"`
}

// QueryResponse is the body returned for a finished run.
type QueryResponse struct {
	RunID           string       `json:"run_id"`
	State           string       `json:"state"`
	Answer          agent.Answer `json:"answer"`
	Iterations      int          `json:"iterations"`
	QueriesExecuted int          `json:"queries_executed"`
	DurationMillis  int64        `json:"duration_ms"`
}

// HandleQuery handles POST /v1/insight/query.
//
// Description:
//
//	Runs the full workflow synchronously. Every run ends in a COMPLETE or
//	ERROR state; both are reported with HTTP 200 and an answer payload,
//	with ERROR runs carrying return_answer=false. Only malformed requests
//	produce non-200 responses.
func (h *Handlers) HandleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	result := h.runner.Run(c.Request.Context(), req.Question, req.PriorContext)

	c.JSON(http.StatusOK, QueryResponse{
		RunID:           result.RunID,
		State:           result.State.String(),
		Answer:          result.Answer,
		Iterations:      result.Iterations,
		QueriesExecuted: result.QueriesExecuted,
		DurationMillis:  result.Duration.Milliseconds(),
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	dbStatus := "connected"
	healthy := true
	if err := h.store.Ping(c.Request.Context()); err != nil {
		dbStatus = "unreachable"
		healthy = false
		h.logger.Warn("health check: database unreachable", "error", err)
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":          overall,
		"database":        dbStatus,
		"caching_enabled": h.caches.Enabled(),
	})
}

// HandleCacheStats handles GET /v1/insight/cache/stats.
func (h *Handlers) HandleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.caches.Snapshot())
}

// CacheEnabledRequest is the body of POST /v1/insight/cache/enabled.
type CacheEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// HandleCacheEnabled handles POST /v1/insight/cache/enabled.
func (h *Handlers) HandleCacheEnabled(c *gin.Context) {
	var req CacheEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	h.caches.SetEnabled(*req.Enabled)
	h.logger.Info("cache layer toggled", "enabled", *req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": h.caches.Enabled()})
}

// HandleCacheClear handles POST /v1/insight/cache/clear.
func (h *Handlers) HandleCacheClear(c *gin.Context) {
	h.caches.Clear()
	h.logger.Info("cache layer cleared")
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
