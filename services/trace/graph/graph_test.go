// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutianai/romadebug/services/trace/ast"
	"github.com/aleutianai/romadebug/services/trace/resolve"
)

func writeGoFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// a -> b -> c, and a -> c directly, forming a diamond plus a cycle back
// from c to a to exercise visited-set pruning.
func buildDiamond(t *testing.T) (root, a, b, c string) {
	t.Helper()
	root = t.TempDir()
	writeGoFile(t, filepath.Join(root, "go.mod"), "module example.com/diamond\n\ngo 1.22\n")

	a = filepath.Join(root, "a.go")

	writeGoFile(t, a, `package diamond

import (
	"example.com/diamond/sub"
	"example.com/diamond/sub2"
)

func A() {
	sub.B()
	sub2.C()
}
`)
	writeGoFile(t, filepath.Join(root, "sub", "b.go"), `package sub

import "example.com/diamond/sub2"

func B() { sub2.C() }
`)
	return root, a, filepath.Join(root, "sub", "b.go"), filepath.Join(root, "sub2", "c.go")
}

func TestGraph_UpstreamFollowsImportsBFS(t *testing.T) {
	root, a, b, c := buildDiamond(t)
	g := New(root, ast.NewRegistry(), resolve.New(root))

	neighbors, err := g.Upstream(context.Background(), a, 2)
	require.NoError(t, err)

	var paths []string
	for _, n := range neighbors {
		paths = append(paths, n.FilePath)
	}
	assert.Contains(t, paths, b)
	assert.Contains(t, paths, c)

	// c is reachable at distance 1 (a imports sub2 directly) so it must
	// appear with Distance 1, not 2, even though b also reaches it.
	for _, n := range neighbors {
		if n.FilePath == c {
			assert.Equal(t, 1, n.Distance)
		}
	}
}

func TestGraph_DownstreamIsReverseOfUpstream(t *testing.T) {
	root, a, b, c := buildDiamond(t)
	g := New(root, ast.NewRegistry(), resolve.New(root))

	// prime edges by visiting from the root of the diamond first.
	_, err := g.Upstream(context.Background(), a, 2)
	require.NoError(t, err)

	downOfC, err := g.Downstream(context.Background(), c, 2)
	require.NoError(t, err)

	var paths []string
	for _, n := range downOfC {
		paths = append(paths, n.FilePath)
	}
	assert.Contains(t, paths, a)
	assert.Contains(t, paths, b)
}

func TestGraph_DepthZeroUsesDefault(t *testing.T) {
	root, a, _, c := buildDiamond(t)
	g := New(root, ast.NewRegistry(), resolve.New(root))

	neighbors, err := g.Upstream(context.Background(), a, 0)
	require.NoError(t, err)

	var found bool
	for _, n := range neighbors {
		if n.FilePath == c {
			found = true
		}
	}
	assert.True(t, found, "default depth of %d should reach %s", DefaultDepth, c)
}

func TestGraph_UnreadableFileIsDeadEnd(t *testing.T) {
	root := t.TempDir()
	g := New(root, ast.NewRegistry(), resolve.New(root))

	neighbors, err := g.Upstream(context.Background(), filepath.Join(root, "missing.go"), 2)
	require.NoError(t, err)
	assert.Empty(t, neighbors)
}
