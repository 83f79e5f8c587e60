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
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// GoParser extracts functions, methods, structs, and interfaces from Go
// source using the standard library's own parser -- the one language
// family in this program whose implementation language ships an AST
// natively, so it needs no tree-sitter grammar.
type GoParser struct {
	maxFileSize int64
}

type GoParserOption func(*GoParser)

func WithGoMaxFileSize(bytes int64) GoParserOption {
	return func(p *GoParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

func NewGoParser(opts ...GoParserOption) *GoParser {
	p := &GoParser{maxFileSize: 10 * 1024 * 1024}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GoParser) Language() string     { return "go" }
func (p *GoParser) Extensions() []string { return []string{".go"} }

func (p *GoParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	_, span := startParseSpan(ctx, "go", filePath, len(content))
	defer span.End()
	start := time.Now()

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if len(content) > WarnFileSize {
		slog.Warn("parsing large file", slog.String("file", filePath), slog.Int("size_bytes", len(content)))
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w", ErrInvalidContent)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, content, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		// go/parser stops on the first syntax error; still return what we
		// can, matching the tree-sitter parsers' tolerance of partial trees.
		if file == nil {
			return nil, fmt.Errorf("go parse failed: %w", err)
		}
	}

	result := &ParseResult{FilePath: filePath, Language: "go", LineCount: strings.Count(string(content), "\n") + 1}

	for _, imp := range file.Imports {
		path, unquoteErr := strconv.Unquote(imp.Path.Value)
		if unquoteErr != nil {
			path = strings.Trim(imp.Path.Value, `"`)
		}
		alias := ""
		if imp.Name != nil {
			alias = imp.Name.Name
		}
		result.Imports = append(result.Imports, &Import{
			SourceFile: filePath,
			Text:       path,
			Alias:      alias,
			IsWildcard: alias == "_",
			IsRelative: false,
		})
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			result.Symbols = append(result.Symbols, goFuncSymbol(fset, d, filePath))
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				result.Symbols = append(result.Symbols, goTypeSymbol(fset, ts, d, filePath))
			}
		}
	}

	setParseSpanResult(span, len(result.Symbols), len(result.Imports))
	recordParseMetrics(ctx, "go", time.Since(start), len(result.Symbols), true)
	return result, nil
}

func goFuncSymbol(fset *token.FileSet, d *ast.FuncDecl, filePath string) *Symbol {
	kind := SymbolFunction
	if d.Recv != nil && len(d.Recv.List) > 0 {
		kind = SymbolMethod
	}
	start := fset.Position(d.Pos())
	end := fset.Position(d.End())
	return &Symbol{
		Kind:      kind,
		Name:      d.Name.Name,
		FilePath:  filePath,
		StartLine: start.Line,
		EndLine:   end.Line,
	}
}

func goTypeSymbol(fset *token.FileSet, ts *ast.TypeSpec, d *ast.GenDecl, filePath string) *Symbol {
	kind := SymbolOther
	switch ts.Type.(type) {
	case *ast.StructType:
		kind = SymbolStruct
	case *ast.InterfaceType:
		kind = SymbolInterface
	}
	start := fset.Position(d.Pos())
	end := fset.Position(d.End())
	// A GenDecl can carry multiple specs on one line ("type A struct{}; type B struct{}");
	// prefer the individual spec's own span when it differs from the decl's.
	specStart := fset.Position(ts.Pos())
	specEnd := fset.Position(ts.End())
	if d.Lparen == token.NoPos {
		start, end = specStart, specEnd
	}
	return &Symbol{
		Kind:      kind,
		Name:      ts.Name.Name,
		FilePath:  filePath,
		StartLine: start.Line,
		EndLine:   end.Line,
	}
}
