// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds a lazily-resolved, file-level dependency graph for
// one analysis and exposes depth-bounded BFS neighborhood queries over it.
package graph

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aleutianai/romadebug/services/trace/ast"
	"github.com/aleutianai/romadebug/services/trace/core"
	"github.com/aleutianai/romadebug/services/trace/resolve"
)

// DefaultDepth is the BFS depth used by upstream/downstream when the caller
// does not specify one.
const DefaultDepth = 2

// Neighbor is one file reached during a BFS walk, tagged with its distance
// from the query's starting file.
type Neighbor struct {
	FilePath string
	Distance int
}

// Graph is a directed, file-level dependency graph. Nodes are files; edges
// are resolved Imports, collapsed to one edge per (source, target) pair.
// Resolution is lazy: a file's imports are parsed and resolved only the
// first time the graph visits it, then cached for the graph's lifetime.
//
// A Graph is built for one analysis and discarded afterward; it is not
// meant to be reused across requests.
type Graph struct {
	root     string
	registry *ast.Registry
	resolver *resolve.Resolver

	mu       sync.Mutex
	forward  map[string]map[string]struct{} // file -> files it imports
	reverse  map[string]map[string]struct{} // file -> files that import it
	visited  map[string]struct{}
}

// New builds a Graph rooted at projectRoot, using reg to parse files for
// imports and resolver to turn import text into concrete file paths.
func New(projectRoot string, reg *ast.Registry, resolver *resolve.Resolver) *Graph {
	return &Graph{
		root:     projectRoot,
		registry: reg,
		resolver: resolver,
		forward:  make(map[string]map[string]struct{}),
		reverse:  make(map[string]map[string]struct{}),
		visited:  make(map[string]struct{}),
	}
}

// Upstream returns the files that file transitively depends on (its
// imports, and their imports, ...), ordered by BFS distance then path.
// depth <= 0 uses DefaultDepth.
func (g *Graph) Upstream(ctx context.Context, file string, depth int) ([]Neighbor, error) {
	return g.walk(ctx, file, depth, g.dependenciesOf)
}

// Downstream returns the files that transitively depend on file (files
// that import it, directly or indirectly), ordered by BFS distance then
// path. depth <= 0 uses DefaultDepth.
func (g *Graph) Downstream(ctx context.Context, file string, depth int) ([]Neighbor, error) {
	return g.walk(ctx, file, depth, g.dependentsOf)
}

type neighborFunc func(ctx context.Context, file string) ([]string, error)

// walk runs a breadth-first traversal from file using next to expand each
// node, stopping at depth and breaking cycles with a visited set. Each
// BFS layer resolves its frontier's imports concurrently via errgroup,
// since those files are independent of one another.
func (g *Graph) walk(ctx context.Context, file string, depth int, next neighborFunc) ([]Neighbor, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	start, err := absPath(file)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{start: {}}
	frontier := []string{start}
	var result []Neighbor

	for d := 1; d <= depth && len(frontier) > 0; d++ {
		neighborSets := make([][]string, len(frontier))
		group, gctx := errgroup.WithContext(ctx)
		for i, f := range frontier {
			i, f := i, f
			group.Go(func() error {
				ns, err := next(gctx, f)
				if err != nil {
					return err
				}
				neighborSets[i] = ns
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}

		var nextFrontier []string
		for _, ns := range neighborSets {
			for _, n := range ns {
				if _, ok := seen[n]; ok {
					continue
				}
				seen[n] = struct{}{}
				result = append(result, Neighbor{FilePath: n, Distance: d})
				nextFrontier = append(nextFrontier, n)
			}
		}
		frontier = nextFrontier
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Distance != result[j].Distance {
			return result[i].Distance < result[j].Distance
		}
		return result[i].FilePath < result[j].FilePath
	})
	return result, nil
}

func (g *Graph) dependenciesOf(ctx context.Context, file string) ([]string, error) {
	if err := g.visit(ctx, file); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return setKeys(g.forward[file]), nil
}

func (g *Graph) dependentsOf(ctx context.Context, file string) ([]string, error) {
	if err := g.visit(ctx, file); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return setKeys(g.reverse[file]), nil
}

// visit parses file (if not already visited) and records its resolved
// imports as forward/reverse edges. Safe to call concurrently for
// different files; visiting the same file twice is a no-op.
func (g *Graph) visit(ctx context.Context, file string) error {
	g.mu.Lock()
	if _, ok := g.visited[file]; ok {
		g.mu.Unlock()
		return nil
	}
	g.visited[file] = struct{}{}
	g.mu.Unlock()

	content, err := os.ReadFile(file)
	if err != nil {
		// Unreadable file (deleted, external, permission denied): treat as
		// a dead end rather than failing the whole traversal.
		return nil
	}

	result, err := g.registry.Parse(ctx, content, file)
	if err != nil || result == nil {
		return nil
	}

	lang := core.FromExtension(file)

	g.mu.Lock()
	if g.forward[file] == nil {
		g.forward[file] = make(map[string]struct{})
	}
	g.mu.Unlock()

	for _, imp := range result.Imports {
		imp.SourceFile = file
		g.resolver.Resolve(lang, imp)
		if imp.ResolvedFile == "" {
			continue
		}
		target := imp.ResolvedFile

		g.mu.Lock()
		g.forward[file][target] = struct{}{}
		if g.reverse[target] == nil {
			g.reverse[target] = make(map[string]struct{})
		}
		g.reverse[target][file] = struct{}{}
		g.mu.Unlock()
	}
	return nil
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func absPath(path string) (string, error) {
	return filepath.Abs(path)
}
