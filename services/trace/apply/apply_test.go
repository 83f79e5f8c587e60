// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package apply

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutianai/romadebug/services/trace/core"
	"github.com/aleutianai/romadebug/services/trace/romaerrors"
)

func TestApplier_WritesNewFileWithoutBackup(t *testing.T) {
	root := t.TempDir()
	a := New(root)

	batch := a.ApplyPatchSet(core.PatchSet{
		Primary: core.FilePatch{FilePath: "pkg/new.go", FullCodeBlock: "package pkg\n"},
	})
	require.False(t, batch.Failed())
	require.Len(t, batch.Results, 1)
	assert.True(t, batch.Results[0].Applied)
	assert.Empty(t, batch.Results[0].BackupPath)

	content, err := os.ReadFile(filepath.Join(root, "pkg/new.go"))
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", string(content))
}

func TestApplier_BacksUpExistingFileBeforeOverwriting(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(target, []byte("package main\n// old\n"), 0o644))

	a := New(root)
	batch := a.ApplyPatchSet(core.PatchSet{
		Primary: core.FilePatch{FilePath: "main.go", FullCodeBlock: "package main\n// new\n"},
	})
	require.False(t, batch.Failed())

	backupContent, err := os.ReadFile(target + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "package main\n// old\n", string(backupContent))

	newContent, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "package main\n// new\n", string(newContent))
}

func TestApplier_RejectsPathEscapingProjectRoot(t *testing.T) {
	root := t.TempDir()
	a := New(root)

	batch := a.ApplyPatchSet(core.PatchSet{
		Primary:    core.FilePatch{FilePath: "safe.go", FullCodeBlock: "package main\n"},
		Additional: []core.FilePatch{{FilePath: "../../../etc/passwd", FullCodeBlock: "pwned"}},
	})
	require.True(t, batch.Failed())
	require.Len(t, batch.Results, 2)

	assert.True(t, batch.Results[0].Applied)
	assert.False(t, batch.Results[1].Applied)
	assert.ErrorIs(t, batch.Results[1].Err, romaerrors.ErrPathEscape)

	_, err := os.Stat(filepath.Join(root, "safe.go"))
	assert.NoError(t, err)
}

func TestApplier_RejectsOversizedPatch(t *testing.T) {
	root := t.TempDir()
	a := New(root).WithMaxPatchBytes(10)

	batch := a.ApplyPatchSet(core.PatchSet{
		Primary: core.FilePatch{FilePath: "big.go", FullCodeBlock: strings.Repeat("x", 100)},
	})
	require.True(t, batch.Failed())
	assert.ErrorIs(t, batch.Results[0].Err, romaerrors.ErrSizeCapExceeded)
}

func TestApplier_ContinuesBatchAfterOneFileFails(t *testing.T) {
	root := t.TempDir()
	a := New(root)

	batch := a.ApplyPatchSet(core.PatchSet{
		Primary: core.FilePatch{FilePath: "../escape.go", FullCodeBlock: "x"},
		Additional: []core.FilePatch{
			{FilePath: "ok.go", FullCodeBlock: "package main\n"},
		},
	})
	require.True(t, batch.Failed())
	require.Len(t, batch.Results, 2)
	assert.False(t, batch.Results[0].Applied)
	assert.True(t, batch.Results[1].Applied)
}
