// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diffengine computes and validates unified diffs between a
// file's current contents and the code block an LLM proposed to
// replace it with.
package diffengine

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	sgdiff "github.com/sourcegraph/go-diff/diff"
)

// ContextLines is the number of unchanged lines shown around each hunk,
// matching the unified diff convention `diff -u` uses by default.
const ContextLines = 3

// Compute returns the unified diff transforming oldContent into
// newContent, labeled with path on both sides. Returns "" if the two
// are identical.
func Compute(path, oldContent, newContent string) (string, error) {
	if oldContent == newContent {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: path,
		ToFile:   path,
		Context:  ContextLines,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diffengine: computing unified diff for %s: %w", path, err)
	}
	return text, nil
}

// Validate parses a unified diff with the production-grade unified-diff
// parser to confirm it is well-formed before it's attached to a
// PatchSet or handed to the applier, catching a malformed diff early
// rather than failing mysteriously during apply.
func Validate(unifiedDiff string) (*sgdiff.FileDiff, error) {
	if strings.TrimSpace(unifiedDiff) == "" {
		return nil, nil
	}
	fileDiff, err := sgdiff.ParseFileDiff([]byte(unifiedDiff))
	if err != nil {
		return nil, fmt.Errorf("diffengine: parsing computed diff: %w", err)
	}
	return fileDiff, nil
}

// HunkCount reports how many hunks a parsed diff contains, 0 for a nil
// diff (no change).
func HunkCount(fileDiff *sgdiff.FileDiff) int {
	if fileDiff == nil {
		return 0
	}
	return len(fileDiff.Hunks)
}
