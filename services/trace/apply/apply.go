// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package apply writes FixProposal code blocks back to the project
// filesystem: containment-checked, size-capped, backed up, and written
// atomically.
package apply

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aleutianai/romadebug/services/trace/core"
	"github.com/aleutianai/romadebug/services/trace/romaerrors"
)

// DefaultMaxPatchBytes caps a single full_code_block's size before it's
// written to disk.
const DefaultMaxPatchBytes = 200 * 1024

// Result records the outcome of applying one FilePatch.
type Result struct {
	FilePath   string
	Applied    bool
	BackupPath string // empty if the file did not previously exist
	Err        error
}

// BatchResult is the outcome of applying an entire PatchSet: primary
// first, then additional fixes in list order. A failure on one file
// does not block the rest -- there is no rollback across files.
type BatchResult struct {
	Results []Result
}

// Failed reports whether any file in the batch failed to apply.
func (b BatchResult) Failed() bool {
	for _, r := range b.Results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Applier writes patches under a single project root, refusing any
// write that would land outside it.
type Applier struct {
	projectRoot  string
	maxPatchBytes int
}

// New builds an Applier rooted at projectRoot.
func New(projectRoot string) *Applier {
	return &Applier{projectRoot: projectRoot, maxPatchBytes: DefaultMaxPatchBytes}
}

// WithMaxPatchBytes overrides DefaultMaxPatchBytes.
func (a *Applier) WithMaxPatchBytes(n int) *Applier {
	if n > 0 {
		a.maxPatchBytes = n
	}
	return a
}

// ApplyPatchSet writes the primary patch, then each additional patch in
// order. Every file is attempted even if an earlier one failed.
func (a *Applier) ApplyPatchSet(ps core.PatchSet) BatchResult {
	var batch BatchResult

	patches := make([]core.FilePatch, 0, 1+len(ps.Additional))
	patches = append(patches, ps.Primary)
	patches = append(patches, ps.Additional...)

	for _, patch := range patches {
		if patch.FilePath == "" {
			continue
		}
		batch.Results = append(batch.Results, a.applyOne(patch))
	}
	return batch
}

func (a *Applier) applyOne(patch core.FilePatch) Result {
	result := Result{FilePath: patch.FilePath}

	absPath, err := a.resolveContained(patch.FilePath)
	if err != nil {
		result.Err = err
		return result
	}

	if len(patch.FullCodeBlock) > a.maxPatchBytes {
		result.Err = fmt.Errorf("%w: %s is %d bytes, exceeds %d", romaerrors.ErrSizeCapExceeded, patch.FilePath, len(patch.FullCodeBlock), a.maxPatchBytes)
		return result
	}

	backupPath, err := a.backup(absPath)
	if err != nil {
		result.Err = fmt.Errorf("%w: backing up %s: %v", romaerrors.ErrWriteFailed, patch.FilePath, err)
		return result
	}
	result.BackupPath = backupPath

	if err := writeAtomic(absPath, []byte(patch.FullCodeBlock)); err != nil {
		result.Err = fmt.Errorf("%w: writing %s: %v", romaerrors.ErrWriteFailed, patch.FilePath, err)
		return result
	}

	result.Applied = true
	return result
}

// resolveContained resolves relPath against the project root and
// rejects it if the resolved path would land outside the root.
func (a *Applier) resolveContained(relPath string) (string, error) {
	root, err := filepath.Abs(a.projectRoot)
	if err != nil {
		return "", fmt.Errorf("apply: resolving project root: %w", err)
	}

	candidate := relPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || hasParentPrefix(rel) {
		return "", romaerrors.WithPath(romaerrors.ErrPathEscape, relPath)
	}
	return candidate, nil
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// backup copies the pre-apply contents of path to path+".bak". Returns
// "" without error if path does not currently exist -- per the
// invariant, a newly created file needs no backup.
func (a *Applier) backup(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	backupPath := path + ".bak"
	if err := os.WriteFile(backupPath, content, 0o644); err != nil {
		return "", err
	}
	return backupPath, nil
}

// writeAtomic writes content to a temp file alongside path, then
// renames it into place, so a crash mid-write never leaves a
// partially-written file at the destination.
func writeAtomic(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
