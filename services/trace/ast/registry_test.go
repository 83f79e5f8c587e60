// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DetectLanguage(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "python", r.DetectLanguage("app/main.py"))
	assert.Equal(t, "go", r.DetectLanguage("cmd/main.go"))
	assert.Equal(t, "typescript", r.DetectLanguage("src/app.tsx"))
	assert.Equal(t, "", r.DetectLanguage("README.md"))
}

func TestRegistry_ParseUnsupportedExtension(t *testing.T) {
	r := NewRegistry()
	_, err := r.Parse(context.Background(), []byte("hello"), "notes.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestEnclosingOrFallback_SynthesizesWindow(t *testing.T) {
	result := &ParseResult{FilePath: "f.py", LineCount: 200}
	sym := EnclosingOrFallback(result, 100)
	require.NotNil(t, sym)
	assert.Equal(t, SymbolOther, sym.Kind)
	assert.Equal(t, 50, sym.StartLine)
	assert.Equal(t, 150, sym.EndLine)
}

func TestEnclosingOrFallback_ClampsToFileBounds(t *testing.T) {
	result := &ParseResult{FilePath: "f.py", LineCount: 30}
	sym := EnclosingOrFallback(result, 10)
	require.NotNil(t, sym)
	assert.Equal(t, 1, sym.StartLine)
	assert.Equal(t, 30, sym.EndLine)
}

func TestEnclosingOrFallback_PrefersRealSymbol(t *testing.T) {
	result := &ParseResult{
		FilePath: "f.py",
		Symbols: []*Symbol{
			{Kind: SymbolFunction, Name: "f", StartLine: 5, EndLine: 15},
		},
	}
	sym := EnclosingOrFallback(result, 10)
	require.NotNil(t, sym)
	assert.Equal(t, "f", sym.Name)
}
