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

const goSample = `package widget

import (
	"fmt"
	other "example.com/other"
)

type Widget struct {
	Name string
}

type Renderer interface {
	Render() string
}

func (w *Widget) Render() string {
	return fmt.Sprintf("%s via %v", w.Name, other.Version)
}

func New(name string) *Widget {
	return &Widget{Name: name}
}
`

func TestGoParser_ExtractsSymbolsAndImports(t *testing.T) {
	p := NewGoParser()
	result, err := p.Parse(context.Background(), []byte(goSample), "widget.go")
	require.NoError(t, err)

	var names []string
	for _, sym := range result.Symbols {
		names = append(names, sym.Name)
	}
	assert.Contains(t, names, "Widget")
	assert.Contains(t, names, "Renderer")
	assert.Contains(t, names, "Render")
	assert.Contains(t, names, "New")

	render := findSymbol(result, "Render")
	require.NotNil(t, render)
	assert.Equal(t, SymbolMethod, render.Kind)

	newFn := findSymbol(result, "New")
	require.NotNil(t, newFn)
	assert.Equal(t, SymbolFunction, newFn.Kind)

	widgetType := findSymbol(result, "Widget")
	require.NotNil(t, widgetType)
	assert.Equal(t, SymbolStruct, widgetType.Kind)

	require.Len(t, result.Imports, 2)
	assert.Equal(t, "other", result.Imports[1].Alias)
}
