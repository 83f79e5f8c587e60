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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aleutianai/romadebug/services/trace/core"
	"github.com/aleutianai/romadebug/services/trace/romaerrors"
)

// Handlers adapts Engine to Gin request handlers.
type Handlers struct {
	engine *Engine
	cfg    Config
}

// Config is the subset of config.Config the handlers need to render
// health/info responses without importing the config package's full
// surface into every call site.
type Config struct {
	APIKeyConfigured bool
	RequireAPIKey    bool
	ExpectedAPIKey   string
}

// NewHandlers builds Handlers around an already-constructed Engine.
func NewHandlers(engine *Engine, cfg Config) *Handlers {
	return &Handlers{engine: engine, cfg: cfg}
}

// AnalyzeHTTPRequest is the POST /analyze request body.
type AnalyzeHTTPRequest struct {
	Log         string `json:"log" binding:"required"`
	Context     string `json:"context"`
	ProjectRoot string `json:"project_root"`
	Language    string `json:"language"`
}

// AnalyzeHTTPResponse is the POST /analyze response body.
type AnalyzeHTTPResponse struct {
	AnalysisID           string              `json:"analysis_id"`
	Explanation          string              `json:"explanation"`
	Code                 string              `json:"code"`
	FilePath             *string             `json:"filepath"`
	Diff                 *string             `json:"diff"`
	RootCauseFile        *string             `json:"root_cause_file"`
	RootCauseExplanation *string             `json:"root_cause_explanation"`
	AdditionalFixes      []AdditionalFixWire `json:"additional_fixes"`
	FilesRead            []string            `json:"files_read"`
	FilesReadSources     map[string]string   `json:"files_read_sources"`
}

// AdditionalFixWire is one entry of the additional_fixes array.
type AdditionalFixWire struct {
	FilePath      string `json:"filepath"`
	FullCodeBlock string `json:"full_code_block"`
	Explanation   string `json:"explanation"`
}

// ErrorResponse is the shape of every non-2xx JSON body this service
// returns.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HandleAnalyze handles POST /analyze.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	var req AnalyzeHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
		return
	}

	ps, err := h.engine.Analyze(c.Request.Context(), AnalyzeRequest{
		Log:         req.Log,
		Context:     req.Context,
		ProjectRoot: req.ProjectRoot,
		Language:    req.Language,
	})
	if err != nil {
		kind := romaerrors.KindOf(err)
		if kind == romaerrors.KindUpstreamRateLimited || kind == romaerrors.KindUpstreamExhausted || kind == romaerrors.KindModelOutputInvalid {
			upstreamFailuresTotal.WithLabelValues(string(kind)).Inc()
		}
		analysesTotal.WithLabelValues("failure").Inc()
		h.writeEngineError(c, err)
		return
	}
	analysesTotal.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, toAnalyzeHTTPResponse(ps))
}

func (h *Handlers) authorized(c *gin.Context) bool {
	if !h.cfg.RequireAPIKey {
		return true
	}
	if c.GetHeader("X-ROMA-API-KEY") == h.cfg.ExpectedAPIKey {
		return true
	}
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing or invalid X-ROMA-API-KEY", Code: "UNAUTHORIZED"})
	c.Abort()
	return false
}

func (h *Handlers) writeEngineError(c *gin.Context, err error) {
	kind := romaerrors.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case romaerrors.KindLogEmpty, romaerrors.KindSizeCapExceeded:
		status = http.StatusBadRequest
	case romaerrors.KindPathEscape:
		status = http.StatusForbidden
	case romaerrors.KindUpstreamRateLimited, romaerrors.KindUpstreamExhausted:
		status = http.StatusServiceUnavailable
	case romaerrors.KindModelOutputInvalid, romaerrors.KindParseFailed:
		status = http.StatusUnprocessableEntity
	}
	if kind == "" {
		kind = romaerrors.Kind("internal_error")
	}

	slog.Error("analyze failed", slog.String("kind", string(kind)), slog.Any("err", err))
	c.JSON(status, ErrorResponse{Error: errorMessage(err), Code: string(kind)})
}

func toAnalyzeHTTPResponse(ps core.PatchSet) AnalyzeHTTPResponse {
	resp := AnalyzeHTTPResponse{
		AnalysisID:       ps.AnalysisID,
		Explanation:      ps.Primary.Explanation,
		Code:             ps.Primary.FullCodeBlock,
		FilesReadSources: make(map[string]string, len(ps.FilesRead)),
	}
	if ps.Primary.FilePath != "" {
		resp.FilePath = &ps.Primary.FilePath
	}
	if ps.Primary.UnifiedDiff != "" {
		resp.Diff = &ps.Primary.UnifiedDiff
	}
	if ps.RootCauseFile != "" {
		resp.RootCauseFile = &ps.RootCauseFile
	}
	if ps.RootCauseExplanation != "" {
		resp.RootCauseExplanation = &ps.RootCauseExplanation
	}
	for _, add := range ps.Additional {
		if add.FilePath == "" {
			continue
		}
		resp.AdditionalFixes = append(resp.AdditionalFixes, AdditionalFixWire{
			FilePath:      add.FilePath,
			FullCodeBlock: add.FullCodeBlock,
			Explanation:   add.Explanation,
		})
	}
	for _, rec := range ps.FilesRead {
		resp.FilesRead = append(resp.FilesRead, rec.FilePath)
		resp.FilesReadSources[rec.FilePath] = string(rec.Source)
	}
	return resp
}

func errorMessage(err error) string {
	var unwrapped error = err
	for {
		next := errors.Unwrap(unwrapped)
		if next == nil {
			break
		}
		unwrapped = next
	}
	return err.Error()
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"version":            Version,
		"api_key_configured": h.cfg.APIKeyConfigured,
	})
}

// HandleInfo handles GET /info.
func (h *Handlers) HandleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":             Version,
		"supported_languages": SupportedLanguages,
		"capabilities": gin.H{
			"multi_language":     true,
			"deep_debugging":     true,
			"root_cause_analysis": true,
			"multiple_fixes":     true,
		},
	})
}
