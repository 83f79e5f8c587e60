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

const pySample = `import os
from collections import OrderedDict as OD
from . import sibling

class Widget:
    def __init__(self, name):
        self.name = name

    def render(self):
        return self.name

def top_level(x):
    return x + 1
`

func TestPythonParser_ExtractsSymbolsAndImports(t *testing.T) {
	p := NewPythonParser()
	result, err := p.Parse(context.Background(), []byte(pySample), "widget.py")
	require.NoError(t, err)

	assert.Equal(t, "python", result.Language)

	var names []string
	for _, sym := range result.Symbols {
		names = append(names, sym.Name)
	}
	assert.Contains(t, names, "Widget")
	assert.Contains(t, names, "__init__")
	assert.Contains(t, names, "render")
	assert.Contains(t, names, "top_level")

	init := findSymbol(result, "__init__")
	require.NotNil(t, init)
	assert.Equal(t, SymbolMethod, init.Kind)
	require.NotNil(t, init.Parent)
	assert.Equal(t, "Widget", init.Parent.Name)

	topLevel := findSymbol(result, "top_level")
	require.NotNil(t, topLevel)
	assert.Equal(t, SymbolFunction, topLevel.Kind)
	assert.Nil(t, topLevel.Parent)

	require.Len(t, result.Imports, 3)
	assert.Equal(t, "os", result.Imports[0].Text)
}

func TestPythonParser_FindEnclosing(t *testing.T) {
	p := NewPythonParser()
	result, err := p.Parse(context.Background(), []byte(pySample), "widget.py")
	require.NoError(t, err)

	render := findSymbol(result, "render")
	require.NotNil(t, render)

	enclosing := result.FindEnclosing(render.StartLine + 1)
	require.NotNil(t, enclosing)
	assert.Equal(t, "render", enclosing.Name)
}

func TestPythonParser_RejectsOversizedFile(t *testing.T) {
	p := NewPythonParser(WithPythonMaxFileSize(4))
	_, err := p.Parse(context.Background(), []byte(pySample), "widget.py")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func findSymbol(r *ParseResult, name string) *Symbol {
	for _, s := range r.Symbols {
		if s.Name == name {
			return s
		}
	}
	return nil
}
