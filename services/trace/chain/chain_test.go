// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutianai/romadebug/services/trace/ast"
	"github.com/aleutianai/romadebug/services/trace/core"
	"github.com/aleutianai/romadebug/services/trace/graph"
	"github.com/aleutianai/romadebug/services/trace/resolve"
)

func TestCapMiddle_DropsFromMiddlePreservingEnds(t *testing.T) {
	frames := make([]core.Frame, 20)
	for i := range frames {
		frames[i] = core.Frame{FilePath: filepath.Join("f", string(rune('a'+i)))}
	}
	kept := capMiddle(frames, 10)
	require.Len(t, kept, 10)
	assert.Equal(t, frames[0], kept[0])
	assert.Equal(t, frames[len(frames)-1], kept[len(kept)-1])
}

func TestCapMiddle_NoOpWhenUnderLimit(t *testing.T) {
	frames := []core.Frame{{FilePath: "a"}, {FilePath: "b"}}
	assert.Equal(t, frames, capMiddle(frames, 10))
}

func TestAssemble_ExtractsSymbolAndSkipsExternalFrames(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/app\n\ngo 1.22\n"), 0o644))
	mainPath := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(mainPath, []byte(`package main

func run() {
	panic("boom")
}
`), 0o644))

	frames := []core.Frame{
		{FilePath: "runtime/panic.go", External: true},
		{FilePath: mainPath, Line: 4, Symbol: "run"},
	}

	reg := ast.NewRegistry()
	g := graph.New(root, reg, resolve.New(root))

	result, err := Assemble(context.Background(), frames, reg, g, Config{})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)

	assert.Nil(t, result.Entries[0].Symbol)
	require.NotNil(t, result.Entries[1].Symbol)
	assert.Equal(t, "run", result.Entries[1].Symbol.Name)
}

func TestConfig_FallsBackToPackageDefaults(t *testing.T) {
	var cfg Config
	assert.Equal(t, MaxChainLength, cfg.chainLength())
	assert.Equal(t, MaxUpstreamFiles, cfg.upstreamFiles())

	cfg = Config{MaxChainLength: 3, MaxUpstreamFiles: 1}
	assert.Equal(t, 3, cfg.chainLength())
	assert.Equal(t, 1, cfg.upstreamFiles())
}
