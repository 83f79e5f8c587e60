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
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// FallbackContextLines is the number of lines above and below a frame's
// line used to synthesize a Symbol of kind "other" when no parser claims
// the file's extension or symbol extraction finds nothing enclosing.
const FallbackContextLines = 50

// Registry dispatches Parse calls to the Parser registered for a file's
// language, detected from its extension. It is process-wide and safe for
// concurrent use; construction of the default set happens once.
type Registry struct {
	mu      sync.RWMutex
	byExt   map[string]Parser
	byLang  map[string]Parser
}

// NewRegistry builds a Registry with every language family the program
// ships support for.
func NewRegistry() *Registry {
	r := &Registry{
		byExt:  make(map[string]Parser),
		byLang: make(map[string]Parser),
	}
	r.Register(NewGoParser())
	r.Register(NewPythonParser())
	r.Register(NewJavaScriptParser())
	r.Register(NewTypeScriptParser())
	r.Register(NewRustParser())
	r.Register(NewJavaParser())
	return r
}

// Register adds or replaces the Parser handling p.Language() and each of
// p.Extensions().
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLang[p.Language()] = p
	for _, ext := range p.Extensions() {
		r.byExt[ext] = p
	}
}

// DetectLanguage returns the language tag for filePath's extension, or ""
// if no registered parser claims it.
func (r *Registry) DetectLanguage(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byExt[ext]; ok {
		return p.Language()
	}
	return ""
}

// ParserFor returns the Parser registered for language, or (nil, false).
func (r *Registry) ParserFor(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byLang[language]
	return p, ok
}

// Parse detects filePath's language and dispatches to its Parser. If no
// parser claims the extension, ErrUnsupportedLanguage is returned.
func (r *Registry) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	lang := r.DetectLanguage(filePath)
	if lang == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filepath.Ext(filePath))
	}
	p, _ := r.ParserFor(lang)
	return p.Parse(ctx, content, filePath)
}

// EnclosingOrFallback returns the smallest-span Symbol containing line, or
// -- if extraction produced nothing that contains it -- a synthetic Symbol
// of kind SymbolOther spanning [line-FallbackContextLines, line+FallbackContextLines],
// clamped to the file's line count. It never returns nil for a non-nil
// result with LineCount > 0.
func EnclosingOrFallback(result *ParseResult, line int) *Symbol {
	if sym := result.FindEnclosing(line); sym != nil {
		return sym
	}
	start := line - FallbackContextLines
	if start < 1 {
		start = 1
	}
	end := line + FallbackContextLines
	if result.LineCount > 0 && end > result.LineCount {
		end = result.LineCount
	}
	return &Symbol{
		Kind:      SymbolOther,
		Name:      "",
		FilePath:  result.FilePath,
		StartLine: start,
		EndLine:   end,
	}
}
