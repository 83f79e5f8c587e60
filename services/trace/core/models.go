// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package core

import "github.com/aleutianai/romadebug/services/trace/ast"

// Frame is one traceback entry, normalized across languages.
type Frame struct {
	FilePath   string
	Line       int
	Column     int    // 0 if the source language does not report columns
	Symbol     string // function/method name as reported by the traceback, may be empty
	RawText    string
	External   bool // true if FilePath resolves outside the project root
}

// ParsedTraceback is the ordered result of parsing a raw error log.
// Frames are normalized to oldest-caller-first: Frames[0] is outermost,
// Frames[len-1] is the crash site.
type ParsedTraceback struct {
	Language    Language
	ErrorType   string
	ErrorMessage string
	Frames      []Frame
	RawText     string
}

// CallChainEntry pairs one traceback Frame with the Symbol enclosing it
// and that file's resolved imports.
type CallChainEntry struct {
	Frame   Frame
	Symbol  *ast.Symbol
	Imports []*ast.Import
}

// ProjectDescriptor summarizes what the project scanner learned about the
// target repository.
type ProjectDescriptor struct {
	RootPath     string
	ProjectType  string   // "python", "node", "go", "rust", "java", "unknown"
	Frameworks   []string // e.g. "flask", "express"
	EntryPoints  []string
	SourceFiles  []string // project-relative, after gitignore/size filtering
}

// FixProposal is the normalized shape of an LLM response: a primary file
// fix plus zero or more secondary fixes. Nesting inside AdditionalFixes is
// not itself recursive in practice -- one level deep.
type FixProposal struct {
	FilePath             string
	FullCodeBlock        string
	Explanation          string
	RootCauseFile        string
	RootCauseExplanation string
	AdditionalFixes      []FixProposal
}

// FileSource records where the investigation pipeline learned about a
// file it read, for the PatchSet audit trail.
type FileSource string

const (
	SourceTraceback FileSource = "traceback"
	SourceImport    FileSource = "import"
	SourceScan      FileSource = "scan"
	SourceManual    FileSource = "manual"
)

// ReadRecord is one entry in a PatchSet's audit trail.
type ReadRecord struct {
	FilePath string
	Source   FileSource
}

// FilePatch is a normalized FixProposal for a single file, plus its
// computed unified diff against the file's current on-disk contents.
type FilePatch struct {
	FilePath      string
	FullCodeBlock string
	Explanation   string
	UnifiedDiff   string
}

// PatchSet is the fully normalized, diff-computed result of one analysis:
// the primary fix, any additional fixes, and the audit trail of files read
// during investigation.
type PatchSet struct {
	AnalysisID           string
	Primary              FilePatch
	Additional           []FilePatch
	RootCauseFile        string
	RootCauseExplanation string
	FilesRead            []ReadRecord
}
