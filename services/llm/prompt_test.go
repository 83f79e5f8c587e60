// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aleutianai/romadebug/services/trace/ast"
	"github.com/aleutianai/romadebug/services/trace/core"
)

func TestBuild_IncludesAllLabeledSections(t *testing.T) {
	in := BuildInput{
		ErrorLog: "Traceback (most recent call last):\n  File \"main.py\", line 5\nKeyError: 'x'",
		Descriptor: &core.ProjectDescriptor{
			ProjectType: "python",
			Frameworks:  []string{"flask"},
			EntryPoints: []string{"app.py"},
		},
		CallChain: []core.CallChainEntry{
			{Frame: core.Frame{FilePath: "main.py", Line: 5, Symbol: "run"}},
		},
	}
	out := Build(in, DefaultBudgets())

	assert.Contains(t, out, "## ERROR LOG")
	assert.Contains(t, out, "## PROJECT DESCRIPTOR")
	assert.Contains(t, out, "## CALL CHAIN")
	assert.Contains(t, out, "## UPSTREAM CONTEXT")
	assert.Contains(t, out, "## INSTRUCTIONS")
	assert.Contains(t, out, "KeyError")
	assert.Contains(t, out, "flask")
	assert.Contains(t, out, "main.py:5")
}

func TestBuild_TruncatesOversizedSectionWithEllipsis(t *testing.T) {
	in := BuildInput{ErrorLog: strings.Repeat("x", 100)}
	out := Build(in, Budgets{ErrorLog: 10, ProjectDescriptor: 10, CallChain: 10, UpstreamContext: 10})

	assert.Contains(t, out, "…[truncated")
	assert.NotContains(t, out, strings.Repeat("x", 100))
}

func TestBuild_RendersSymbolSourceWhenPresent(t *testing.T) {
	in := BuildInput{
		CallChain: []core.CallChainEntry{
			{
				Frame:  core.Frame{FilePath: "utils.py", Line: 3, Symbol: "helper"},
				Symbol: &ast.Symbol{Kind: ast.SymbolFunction, Name: "helper", Source: "def helper():\n    return 1 / 0"},
			},
		},
	}
	out := Build(in, DefaultBudgets())
	assert.Contains(t, out, "def helper():")
	assert.Contains(t, out, "1 / 0")
}

func TestBuild_NoDescriptorFallsBackGracefully(t *testing.T) {
	out := Build(BuildInput{ErrorLog: "boom"}, DefaultBudgets())
	assert.Contains(t, out, "(no project descriptor available)")
	assert.Contains(t, out, "(no call chain resolved)")
	assert.Contains(t, out, "(no upstream context)")
}

func TestSystemPrompt_DemandsJSONOnlyOutput(t *testing.T) {
	assert.Contains(t, SystemPrompt, "ONLY valid JSON")
	assert.Contains(t, SystemPrompt, "additional_fixes")
}
