// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chain assembles a traceback's Frames into an ordered call chain
// of enclosing symbols and imports, plus deduplicated upstream context.
package chain

import (
	"context"
	"os"
	"sort"

	"github.com/aleutianai/romadebug/services/trace/ast"
	"github.com/aleutianai/romadebug/services/trace/core"
	"github.com/aleutianai/romadebug/services/trace/graph"
)

// MaxChainLength caps the number of entries kept in an assembled chain;
// excess frames are dropped from the middle, preserving both ends.
const MaxChainLength = 10

// MaxUpstreamFiles caps the number of additional files surfaced as upstream
// context, chosen by BFS order out of the crash file's dependencies.
const MaxUpstreamFiles = 5

// Config overrides the package defaults; zero values fall back to them.
type Config struct {
	MaxChainLength  int
	MaxUpstreamFiles int
}

func (c Config) chainLength() int {
	if c.MaxChainLength > 0 {
		return c.MaxChainLength
	}
	return MaxChainLength
}

func (c Config) upstreamFiles() int {
	if c.MaxUpstreamFiles > 0 {
		return c.MaxUpstreamFiles
	}
	return MaxUpstreamFiles
}

// Result is an assembled call chain: the ordered entries plus supplemental
// upstream files not already represented among them.
type Result struct {
	Entries         []core.CallChainEntry
	UpstreamContext []string // project-relative or absolute file paths
}

// Assemble builds a Result from frames, using reg to extract each frame's
// enclosing symbol and imports, and g to find upstream context around the
// deepest (crash-site) frame.
//
// External frames -- those outside the project root -- are skipped during
// extraction; callers render them as path-only markers instead.
func Assemble(ctx context.Context, frames []core.Frame, reg *ast.Registry, g *graph.Graph, cfg Config) (*Result, error) {
	kept := capMiddle(frames, cfg.chainLength())

	entries := make([]core.CallChainEntry, 0, len(kept))
	for _, f := range kept {
		if f.External || f.FilePath == "" {
			entries = append(entries, core.CallChainEntry{Frame: f})
			continue
		}
		entry := core.CallChainEntry{Frame: f}
		if result, err := parseFrame(ctx, reg, f.FilePath); err == nil && result != nil {
			entry.Symbol = ast.EnclosingOrFallback(result, f.Line)
			entry.Imports = result.Imports
		}
		entries = append(entries, entry)
	}

	upstream, err := upstreamContext(ctx, kept, g, cfg.upstreamFiles())
	if err != nil {
		return nil, err
	}

	return &Result{Entries: entries, UpstreamContext: upstream}, nil
}

// capMiddle keeps at most n frames, dropping from the middle so the
// outermost and crash-site ends survive.
func capMiddle(frames []core.Frame, n int) []core.Frame {
	if len(frames) <= n || n <= 0 {
		return frames
	}
	if n == 1 {
		return frames[len(frames)-1:]
	}
	head := n / 2
	tail := n - head
	out := make([]core.Frame, 0, n)
	out = append(out, frames[:head]...)
	out = append(out, frames[len(frames)-tail:]...)
	return out
}

func parseFrame(ctx context.Context, reg *ast.Registry, filePath string) (*ast.ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return reg.Parse(ctx, content, filePath)
}

// upstreamContext finds the crash-site frame (the last non-external frame
// in the capped chain) and walks its dependencies, deduplicating against
// files already present in the chain and capping at maxFiles.
func upstreamContext(ctx context.Context, frames []core.Frame, g *graph.Graph, maxFiles int) ([]string, error) {
	var crashFile string
	inChain := make(map[string]struct{})
	for _, f := range frames {
		if f.FilePath == "" {
			continue
		}
		inChain[f.FilePath] = struct{}{}
		if !f.External {
			crashFile = f.FilePath
		}
	}
	if crashFile == "" || g == nil {
		return nil, nil
	}

	neighbors, err := g.Upstream(ctx, crashFile, graph.DefaultDepth)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].FilePath < neighbors[j].FilePath
	})

	var out []string
	for _, n := range neighbors {
		if _, ok := inChain[n.FilePath]; ok {
			continue
		}
		out = append(out, n.FilePath)
		if len(out) >= maxFiles {
			break
		}
	}
	return out, nil
}
