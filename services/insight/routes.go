// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package insight

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all insight routes with the router.
//
// Endpoints:
//
//	POST /v1/insight/query         - Run the analysis workflow
//	GET  /v1/insight/cache/stats   - Cache effectiveness snapshot
//	POST /v1/insight/cache/enabled - Toggle the cache layer
//	POST /v1/insight/cache/clear   - Flush the cache layer
//	GET  /health                   - Liveness and dependency health
//
// The /v1/insight group enforces the API key when one is configured;
// /health is always open so orchestration probes work unauthenticated.
func RegisterRoutes(router *gin.Engine, handlers *Handlers, apiKey string) {
	router.GET("/health", handlers.HandleHealth)

	v1 := router.Group("/v1/insight")
	if apiKey != "" {
		v1.Use(apiKeyMiddleware(apiKey))
	}
	{
		v1.POST("/query", handlers.HandleQuery)
		v1.GET("/cache/stats", handlers.HandleCacheStats)
		v1.POST("/cache/enabled", handlers.HandleCacheEnabled)
		v1.POST("/cache/clear", handlers.HandleCacheClear)
	}
}

// apiKeyMiddleware rejects requests without the expected X-API-Key header.
func apiKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-API-Key") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			return
		}
		c.Next()
	}
}
