// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diffengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_ReturnsEmptyForIdenticalContent(t *testing.T) {
	out, err := Compute("a.py", "same\n", "same\n")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCompute_ProducesUnifiedDiffHeader(t *testing.T) {
	out, err := Compute("a.py", "def f():\n    return 1\n", "def f():\n    return 2\n")
	require.NoError(t, err)
	assert.Contains(t, out, "--- a.py")
	assert.Contains(t, out, "+++ a.py")
	assert.Contains(t, out, "-    return 1")
	assert.Contains(t, out, "+    return 2")
}

func TestValidate_ParsesWellFormedDiff(t *testing.T) {
	unified, err := Compute("a.py", "x = 1\n", "x = 2\n")
	require.NoError(t, err)

	fileDiff, err := Validate(unified)
	require.NoError(t, err)
	require.NotNil(t, fileDiff)
	assert.Equal(t, 1, HunkCount(fileDiff))
}

func TestValidate_EmptyDiffIsNilWithoutError(t *testing.T) {
	fileDiff, err := Validate("")
	require.NoError(t, err)
	assert.Nil(t, fileDiff)
	assert.Equal(t, 0, HunkCount(fileDiff))
}

func TestValidate_RejectsGarbageInput(t *testing.T) {
	_, err := Validate("this is not a diff at all, just prose about diffs")
	assert.Error(t, err)
}
