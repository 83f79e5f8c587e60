// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts symbols (functions, classes, methods, structs,
// interfaces) and import statements from source files across several
// language families. One parser is native (Go, via go/parser and go/ast);
// the rest run on tree-sitter grammars.
package ast

import "context"

// SymbolKind identifies the syntactic category of an extracted Symbol.
type SymbolKind string

const (
	SymbolFunction    SymbolKind = "function"
	SymbolMethod      SymbolKind = "method"
	SymbolClass       SymbolKind = "class"
	SymbolStruct      SymbolKind = "struct"
	SymbolInterface   SymbolKind = "interface"
	SymbolImpl        SymbolKind = "impl"
	SymbolEnum        SymbolKind = "enum"
	SymbolConstructor SymbolKind = "constructor"
	SymbolOther       SymbolKind = "other"
)

// Symbol is a syntactic unit extracted from a file: a function, class,
// method, struct, interface, or similar. Symbols never overlap except by
// containment (a method is nested inside its class).
type Symbol struct {
	Kind       SymbolKind
	Name       string
	FilePath   string
	StartLine  int // 1-based, inclusive
	EndLine    int // 1-based, inclusive
	Decorators []string
	Parent     *Symbol // enclosing symbol, nil at top level
	Source     string  // the symbol's own source text, if captured
}

// Contains reports whether line falls within the symbol's span.
func (s *Symbol) Contains(line int) bool {
	if s == nil {
		return false
	}
	return line >= s.StartLine && line <= s.EndLine
}

// Span is the number of lines the symbol covers; used to pick the
// innermost (smallest-span) symbol among overlapping candidates.
func (s *Symbol) Span() int {
	if s == nil {
		return 0
	}
	return s.EndLine - s.StartLine
}

// ImportConfidence describes how certain an Import's resolution is.
type ImportConfidence string

const (
	ImportCertain    ImportConfidence = "certain"
	ImportHeuristic  ImportConfidence = "heuristic"
	ImportUnresolved ImportConfidence = "unresolved"
)

// Import is a single import/use/require statement as written in source,
// optionally resolved to a concrete file by the import resolver.
type Import struct {
	SourceFile string
	Text       string // the raw module/package reference as written
	Alias      string
	Names      []string // imported members, for "from x import a, b" style
	IsWildcard bool
	IsRelative bool

	ResolvedFile string // empty until resolved
	Confidence   ImportConfidence
}

// ParseOptions tunes what a Parser extracts.
type ParseOptions struct {
	IncludePrivate   bool // include unexported/underscore-prefixed symbols
	IncludeDocstring bool
	MaxDepth         int // max nesting depth for nested function/class bodies; 0 = unlimited
}

// DefaultParseOptions returns the options used when none are supplied.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		IncludePrivate:   true,
		IncludeDocstring: false,
		MaxDepth:         0,
	}
}

// ParseResult is everything a Parser extracted from one file.
type ParseResult struct {
	FilePath       string
	Language       string
	Symbols        []*Symbol
	Imports        []*Import
	ModuleDocstring string
	LineCount      int
	Truncated      bool // true if the file exceeded the parser's size limit
}

// FindEnclosing returns the smallest-span Symbol whose range contains
// line, or nil if no symbol contains it. Ties are broken by picking the
// symbol with the later start line (the more deeply nested one).
func (r *ParseResult) FindEnclosing(line int) *Symbol {
	if r == nil {
		return nil
	}
	var best *Symbol
	for _, sym := range r.Symbols {
		if !sym.Contains(line) {
			continue
		}
		if best == nil || sym.Span() < best.Span() ||
			(sym.Span() == best.Span() && sym.StartLine > best.StartLine) {
			best = sym
		}
	}
	return best
}

// Parser extracts symbols and imports from one file of a single language.
type Parser interface {
	// Language returns the language tag this parser handles (e.g. "python").
	Language() string

	// Extensions returns the file extensions (with leading dot) this
	// parser claims, e.g. []string{".py"}.
	Extensions() []string

	// Parse extracts symbols and imports from content. filePath is used
	// only for attribution in the result and in log/trace attributes.
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)
}
