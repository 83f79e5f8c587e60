// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trace

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/aleutianai/romadebug/services/trace/config"
)

// NewRouter builds the full HTTP surface: /analyze, /health, /info, and
// /metrics, with CORS and OpenTelemetry tracing middleware applied.
func NewRouter(engine *Engine, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("romadebug"))
	r.Use(corsMiddleware(cfg))

	h := NewHandlers(engine, Config{
		APIKeyConfigured: cfg.APIKeyConfigured(),
		RequireAPIKey:    cfg.RequireAPIKey(),
		ExpectedAPIKey:   cfg.APIKey,
	})

	r.POST("/analyze", h.HandleAnalyze)
	r.GET("/health", h.HandleHealth)
	r.GET("/info", h.HandleInfo)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originAllowed(origin, cfg) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-ROMA-API-KEY")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originAllowed(origin string, cfg config.Config) bool {
	if len(cfg.AllowedOrigins) == 0 && cfg.AllowedOriginRegex == nil {
		return true
	}
	for _, allowed := range cfg.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}
	if cfg.AllowedOriginRegex != nil && cfg.AllowedOriginRegex.MatchString(origin) {
		return true
	}
	return false
}
