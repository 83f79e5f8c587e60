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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ParsesCleanJSON(t *testing.T) {
	raw := `{"filepath": "src/main.py", "full_code_block": "def f():\n    pass", "explanation": "fixed it"}`
	fix, err := Normalize(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "src/main.py", fix.FilePath)
	assert.Equal(t, "fixed it", fix.Explanation)
	assert.Empty(t, fix.AdditionalFixes)
}

func TestNormalize_ExtractsObjectFromSurroundingCommentary(t *testing.T) {
	raw := "Sure, here's the fix:\n```json\n{\"filepath\": \"a.go\", \"full_code_block\": \"package main\", \"explanation\": \"ok\"}\n```\nLet me know if that helps!"
	fix, err := Normalize(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "a.go", fix.FilePath)
}

func TestNormalize_HandlesBracesInsideStringValues(t *testing.T) {
	raw := `{"filepath": "a.go", "full_code_block": "fmt.Sprintf(\"{%s}\", x)", "explanation": "uses braces in a literal"}`
	fix, err := Normalize(raw, "")
	require.NoError(t, err)
	assert.Contains(t, fix.FullCodeBlock, "{%s}")
}

func TestNormalize_NullFilepathStaysEmpty(t *testing.T) {
	raw := `{"filepath": null, "full_code_block": "", "explanation": "general advice"}`
	fix, err := Normalize(raw, "")
	require.NoError(t, err)
	assert.Empty(t, fix.FilePath)
}

func TestNormalize_RejectsPlaceholderPaths(t *testing.T) {
	for _, placeholder := range []string{"path/to/file.py", "your_file.py", "<filename>", "unknown"} {
		raw := `{"filepath": "` + placeholder + `", "full_code_block": "", "explanation": "x"}`
		fix, err := Normalize(raw, "")
		require.NoError(t, err)
		assert.Empty(t, fix.FilePath, "expected %q to be rejected", placeholder)
	}
}

func TestNormalize_MissingAdditionalFixesDefaultsToEmptySlice(t *testing.T) {
	raw := `{"filepath": "a.py", "full_code_block": "x", "explanation": "y"}`
	fix, err := Normalize(raw, "")
	require.NoError(t, err)
	assert.NotNil(t, fix.AdditionalFixes)
	assert.Len(t, fix.AdditionalFixes, 0)
}

func TestNormalize_CoercesNestedAdditionalFixes(t *testing.T) {
	raw := `{"filepath": "a.py", "full_code_block": "x", "explanation": "y",
		"root_cause_file": "b.py", "root_cause_explanation": "upstream bug",
		"additional_fixes": [{"filepath": "c.py", "full_code_block": "z", "explanation": "w"}]}`
	fix, err := Normalize(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "b.py", fix.RootCauseFile)
	require.Len(t, fix.AdditionalFixes, 1)
	assert.Equal(t, "c.py", fix.AdditionalFixes[0].FilePath)
}

func TestNormalize_StripsProjectRootPrefix(t *testing.T) {
	raw := `{"filepath": "/repo/src/main.py", "full_code_block": "x", "explanation": "y"}`
	fix, err := Normalize(raw, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "src/main.py", fix.FilePath)
}

func TestNormalize_MalformedJSONReturnsModelOutputInvalid(t *testing.T) {
	_, err := Normalize("this is not json at all", "")
	assert.ErrorIs(t, err, ErrModelOutputInvalid)
}

func TestNormalize_NoBraceAtAllReturnsModelOutputInvalid(t *testing.T) {
	_, err := Normalize("no json here, sorry", "")
	assert.ErrorIs(t, err, ErrModelOutputInvalid)
}

func TestExtractBalancedObject_StopsAtFirstTopLevelClose(t *testing.T) {
	s := `prefix {"a": 1} trailing {"b": 2}`
	obj, ok := extractBalancedObject(s)
	require.True(t, ok)
	assert.Equal(t, `{"a": 1}`, obj)
}
