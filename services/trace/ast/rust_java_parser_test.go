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

const rustSample = `use std::collections::HashMap;
use crate::widget::{Widget, Render};

struct Counter {
    value: i32,
}

impl Counter {
    fn increment(&mut self) {
        self.value += 1;
    }
}

fn main() {
    println!("hi");
}
`

func TestRustParser_ExtractsSymbolsAndImports(t *testing.T) {
	p := NewRustParser()
	result, err := p.Parse(context.Background(), []byte(rustSample), "main.rs")
	require.NoError(t, err)

	var names []string
	for _, sym := range result.Symbols {
		names = append(names, sym.Name)
	}
	assert.Contains(t, names, "Counter")
	assert.Contains(t, names, "increment")
	assert.Contains(t, names, "main")

	incr := findSymbol(result, "increment")
	require.NotNil(t, incr)
	assert.Equal(t, SymbolMethod, incr.Kind)

	require.GreaterOrEqual(t, len(result.Imports), 2)
}

const javaSample = `package com.example;

import java.util.List;
import java.util.*;

public class Widget {
    public Widget() {
    }

    public void render() {
    }
}
`

func TestJavaParser_ExtractsSymbolsAndImports(t *testing.T) {
	p := NewJavaParser()
	result, err := p.Parse(context.Background(), []byte(javaSample), "Widget.java")
	require.NoError(t, err)

	var names []string
	for _, sym := range result.Symbols {
		names = append(names, sym.Name)
	}
	assert.Contains(t, names, "Widget")
	assert.Contains(t, names, "render")

	ctor := findSymbol(result, "Widget")
	require.NotNil(t, ctor)

	require.Len(t, result.Imports, 2)
	assert.True(t, result.Imports[1].IsWildcard)
}
