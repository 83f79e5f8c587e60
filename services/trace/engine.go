// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trace wires the parser, graph, scanner, and LLM packages into
// one analysis pipeline and exposes it over HTTP.
package trace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/aleutianai/romadebug/services/llm"
	"github.com/aleutianai/romadebug/services/trace/apply"
	"github.com/aleutianai/romadebug/services/trace/ast"
	"github.com/aleutianai/romadebug/services/trace/chain"
	"github.com/aleutianai/romadebug/services/trace/config"
	"github.com/aleutianai/romadebug/services/trace/core"
	"github.com/aleutianai/romadebug/services/trace/diffengine"
	"github.com/aleutianai/romadebug/services/trace/graph"
	"github.com/aleutianai/romadebug/services/trace/resolve"
	"github.com/aleutianai/romadebug/services/trace/romaerrors"
	"github.com/aleutianai/romadebug/services/trace/scan"
	"github.com/aleutianai/romadebug/services/trace/tracepatterns"
)

// Version is the engine's reported version string.
const Version = "0.1.0"

// SupportedLanguages is the set of languages the traceback parser and
// AST registry both understand.
var SupportedLanguages = []string{"python", "javascript", "typescript", "go", "rust", "java"}

// AnalyzeRequest is the input to one analysis, mirroring the HTTP wire
// body and the CLI's equivalent invocation.
type AnalyzeRequest struct {
	Log         string
	Context     string
	ProjectRoot string
	Language    string
}

// Engine runs the full investigation-then-fix pipeline: parse the
// traceback, resolve imports, walk the dependency graph, assemble a
// call chain, scan the project, build a prompt, call the LLM, normalize
// the response, and compute diffs.
type Engine struct {
	cfg   config.Config
	fixer *llm.Fixer
}

// NewEngine builds an Engine from resolved configuration and an
// LLM client built from cfg.GeminiAPIKeys/Models.
func NewEngine(cfg config.Config) *Engine {
	opts := []llm.Option{}
	if len(cfg.Models) > 0 {
		opts = append(opts, llm.WithModels(cfg.Models))
	}
	client := llm.NewClient(cfg.GeminiAPIKeys, opts...)
	return &Engine{cfg: cfg, fixer: llm.NewFixer(client)}
}

// NewEngineWithFixer builds an Engine around an already-constructed Fixer,
// for tests that need to inject a fake LLM transport.
func NewEngineWithFixer(cfg config.Config, fixer *llm.Fixer) *Engine {
	return &Engine{cfg: cfg, fixer: fixer}
}

// Analyze runs one full pipeline pass and returns the normalized,
// diff-computed PatchSet.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (core.PatchSet, error) {
	logText := strings.TrimSpace(req.Log)
	if logText == "" {
		return core.PatchSet{}, romaerrors.ErrLogEmpty
	}
	if len(req.Log) > e.cfg.MaxLogBytes {
		return core.PatchSet{}, fmt.Errorf("%w: log is %d bytes", romaerrors.ErrSizeCapExceeded, len(req.Log))
	}

	projectRoot := req.ProjectRoot
	if !e.cfg.AllowProjectRoot || projectRoot == "" {
		projectRoot = "."
	}

	lang := core.Language(req.Language)
	if lang == "" {
		lang = tracepatterns.DetectLanguage(logText)
	}
	traceback := tracepatterns.Parse(logText, lang)

	reg := ast.NewRegistry()
	resolver := resolve.New(projectRoot)
	depGraph := graph.New(projectRoot, reg, resolver)

	chainResult, err := chain.Assemble(ctx, traceback.Frames, reg, depGraph, chain.Config{})
	if err != nil {
		return core.PatchSet{}, fmt.Errorf("%w: %v", romaerrors.ErrParseFailed, err)
	}

	scanner := scan.New(projectRoot)
	descriptor := scanner.Scan()
	analysis := scan.Analyze(logText, scanner)

	buildInput := llm.BuildInput{
		ErrorLog:  buildErrorLog(traceback, logText),
		Descriptor: descriptor,
		FileTree:  scanner.GenerateFileTree(4, 30),
		CallChain: chainResult.Entries,
		Upstream:  upstreamExcerpts(ctx, chainResult.UpstreamContext, reg),
	}
	if req.Context != "" {
		buildInput.ErrorLog = buildInput.ErrorLog + "\n\n" + req.Context
	}

	proposal, err := e.fixer.Fix(ctx, buildInput, projectRoot)
	if err != nil {
		return core.PatchSet{}, err
	}

	return e.toPatchSet(proposal, projectRoot, analysis, chainResult), nil
}

// ApplyPatchSet writes a previously computed PatchSet to disk under
// projectRoot, using the configured patch size cap.
func (e *Engine) ApplyPatchSet(projectRoot string, ps core.PatchSet) apply.BatchResult {
	result := apply.New(projectRoot).WithMaxPatchBytes(e.cfg.MaxPatchBytes).ApplyPatchSet(ps)
	for _, r := range result.Results {
		if r.Err != nil {
			appliesTotal.WithLabelValues("failure").Inc()
			continue
		}
		appliesTotal.WithLabelValues("success").Inc()
	}
	return result
}

func (e *Engine) toPatchSet(proposal core.FixProposal, projectRoot string, analysis scan.Analysis, chainResult *chain.Result) core.PatchSet {
	ps := core.PatchSet{
		AnalysisID:           uuid.NewString(),
		Primary:              toFilePatch(proposal, projectRoot),
		RootCauseFile:        proposal.RootCauseFile,
		RootCauseExplanation: proposal.RootCauseExplanation,
	}
	for _, add := range proposal.AdditionalFixes {
		ps.Additional = append(ps.Additional, toFilePatch(add, projectRoot))
	}

	seen := make(map[string]struct{})
	addRead := func(path string, source core.FileSource) {
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		ps.FilesRead = append(ps.FilesRead, core.ReadRecord{FilePath: path, Source: source})
	}
	for _, entry := range chainResult.Entries {
		addRead(entry.Frame.FilePath, core.SourceTraceback)
	}
	for _, path := range chainResult.UpstreamContext {
		addRead(path, core.SourceImport)
	}
	for _, path := range analysis.RelevantFiles {
		addRead(path, core.SourceScan)
	}

	return ps
}

func toFilePatch(proposal core.FixProposal, projectRoot string) core.FilePatch {
	patch := core.FilePatch{
		FilePath:      proposal.FilePath,
		FullCodeBlock: proposal.FullCodeBlock,
		Explanation:   proposal.Explanation,
	}
	if patch.FilePath == "" {
		return patch
	}

	absPath := patch.FilePath
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(projectRoot, absPath)
	}
	oldContent := readFileOrEmpty(absPath)

	diffText, err := diffengine.Compute(patch.FilePath, oldContent, patch.FullCodeBlock)
	if err == nil {
		patch.UnifiedDiff = diffText
	}
	return patch
}

func buildErrorLog(traceback *core.ParsedTraceback, raw string) string {
	if traceback == nil || traceback.ErrorType == "" {
		return raw
	}
	return fmt.Sprintf("%s: %s\n\n%s", traceback.ErrorType, traceback.ErrorMessage, raw)
}

func upstreamExcerpts(ctx context.Context, paths []string, reg *ast.Registry) []llm.UpstreamExcerpt {
	var excerpts []llm.UpstreamExcerpt
	for _, path := range paths {
		content := readFileOrEmpty(path)
		if content == "" {
			continue
		}
		result, err := reg.Parse(ctx, []byte(content), path)
		excerpt := content
		if err == nil && result != nil && len(result.Symbols) > 0 {
			excerpt = result.Symbols[0].Source
		}
		excerpts = append(excerpts, llm.UpstreamExcerpt{FilePath: path, Excerpt: truncateExcerpt(excerpt, 2000)})
	}
	return excerpts
}

func truncateExcerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n…"
}

func readFileOrEmpty(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(content)
}
