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
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aleutianai/romadebug/services/trace/core"
	"github.com/aleutianai/romadebug/services/trace/romaerrors"
)

// ErrModelOutputInvalid is surfaced after a malformed response survives
// the one allowed corrective retry.
var ErrModelOutputInvalid = romaerrors.ErrModelOutputInvalid

// invalidPaths are placeholder filepaths the model sometimes returns
// instead of a genuine path or null.
var invalidPaths = map[string]struct{}{
	"unknown":             {},
	"path/to/file.py":     {},
	"path/to/your/code.py": {},
	"path/to/your/file.py": {},
	"example.py":          {},
	"your_file.py":        {},
	"file.py":             {},
	"":                    {},
}

var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^path/to/`),
	regexp.MustCompile(`(?i)^your[_-]`),
	regexp.MustCompile(`(?i)^example[_-]?`),
	regexp.MustCompile(`<.*>`),
}

// rawFixProposal mirrors the wire JSON shape before coercion.
type rawFixProposal struct {
	FilePath             *string          `json:"filepath"`
	FullCodeBlock        string           `json:"full_code_block"`
	Explanation          string           `json:"explanation"`
	RootCauseFile        *string          `json:"root_cause_file"`
	RootCauseExplanation string           `json:"root_cause_explanation"`
	AdditionalFixes      []rawFixProposal `json:"additional_fixes"`
}

// Normalize parses raw model output into a FixProposal, tolerating
// leading/trailing commentary around the JSON object by extracting the
// first balanced brace-delimited block. projectRoot is used to strip
// absolute paths down to project-relative form.
func Normalize(raw string, projectRoot string) (core.FixProposal, error) {
	block, ok := extractBalancedObject(raw)
	if !ok {
		return core.FixProposal{}, ErrModelOutputInvalid
	}

	var parsed rawFixProposal
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return core.FixProposal{}, ErrModelOutputInvalid
	}

	return coerce(parsed, projectRoot), nil
}

func coerce(raw rawFixProposal, projectRoot string) core.FixProposal {
	proposal := core.FixProposal{
		FullCodeBlock: raw.FullCodeBlock,
		Explanation:   raw.Explanation,
	}

	if path := normalizeFilepath(raw.FilePath, projectRoot); path != "" {
		proposal.FilePath = path
	}
	if path := normalizeFilepath(raw.RootCauseFile, projectRoot); path != "" {
		proposal.RootCauseFile = path
		proposal.RootCauseExplanation = raw.RootCauseExplanation
	}

	proposal.AdditionalFixes = make([]core.FixProposal, 0, len(raw.AdditionalFixes))
	for _, child := range raw.AdditionalFixes {
		proposal.AdditionalFixes = append(proposal.AdditionalFixes, coerce(child, projectRoot))
	}

	return proposal
}

// normalizeFilepath rejects nil/placeholder paths and strips a
// project-root prefix, returning "" when the path is invalid or absent.
func normalizeFilepath(path *string, projectRoot string) string {
	if path == nil {
		return ""
	}
	p := strings.TrimSpace(*path)
	if _, bad := invalidPaths[strings.ToLower(p)]; bad {
		return ""
	}
	for _, pattern := range placeholderPatterns {
		if pattern.MatchString(p) {
			return ""
		}
	}

	if projectRoot != "" {
		if rel, err := filepath.Rel(projectRoot, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		} else if filepath.IsAbs(p) {
			// Absolute path outside projectRoot: keep as-is, the applier's
			// containment check will reject it rather than the normalizer.
		}
	}
	return filepath.ToSlash(p)
}

// extractBalancedObject returns the first top-level {...} block in s,
// counting brace depth so embedded braces inside string literals or
// nested objects don't truncate the match early. Unlike a greedy regex,
// this correctly bounds the object even when trailing commentary itself
// contains braces.
func extractBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
