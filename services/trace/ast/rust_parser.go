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
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// RustParser extracts functions, structs, enums, impl blocks, and use
// declarations from Rust source using tree-sitter.
type RustParser struct {
	maxFileSize  int64
	parseOptions ParseOptions
}

type RustParserOption func(*RustParser)

func WithRustMaxFileSize(bytes int64) RustParserOption {
	return func(p *RustParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

func NewRustParser(opts ...RustParserOption) *RustParser {
	p := &RustParser{maxFileSize: 10 * 1024 * 1024, parseOptions: DefaultParseOptions()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RustParser) Language() string     { return "rust" }
func (p *RustParser) Extensions() []string { return []string{".rs"} }

func (p *RustParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "rust", filePath, len(content))
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

	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	result := &ParseResult{FilePath: filePath, Language: "rust", LineCount: strings.Count(string(content), "\n") + 1}
	root := tree.RootNode()
	if root == nil {
		return result, nil
	}

	extractRustSymbols(ctx, root, content, filePath, result, nil)
	setParseSpanResult(span, len(result.Symbols), len(result.Imports))
	recordParseMetrics(ctx, "rust", time.Since(start), len(result.Symbols), true)
	return result, nil
}

func extractRustSymbols(ctx context.Context, n *sitter.Node, content []byte, filePath string, result *ParseResult, parent *Symbol) {
	if ctx.Err() != nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "use_declaration":
			extractRustUse(child, content, filePath, result)
		case "struct_item", "enum_item":
			kind := SymbolStruct
			if child.Type() == "enum_item" {
				kind = SymbolEnum
			}
			sym := rustSymbol(child, content, filePath, kind, parent)
			result.Symbols = append(result.Symbols, sym)
		case "impl_item":
			sym := rustSymbol(child, content, filePath, SymbolImpl, parent)
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				sym.Name = typeNode.Content(content)
			}
			result.Symbols = append(result.Symbols, sym)
			if body := child.ChildByFieldName("body"); body != nil {
				extractRustSymbols(ctx, body, content, filePath, result, sym)
			}
		case "function_item":
			kind := SymbolFunction
			if parent != nil && parent.Kind == SymbolImpl {
				kind = SymbolMethod
			}
			sym := rustSymbol(child, content, filePath, kind, parent)
			result.Symbols = append(result.Symbols, sym)
		default:
			extractRustSymbols(ctx, child, content, filePath, result, parent)
		}
	}
}

func rustSymbol(n *sitter.Node, content []byte, filePath string, kind SymbolKind, parent *Symbol) *Symbol {
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(content)
	}
	return &Symbol{
		Kind:      kind,
		Name:      name,
		FilePath:  filePath,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		Parent:    parent,
		Source:    n.Content(content),
	}
}

// extractRustUse builds a dotted path from a use_declaration's scoped
// identifier / use_list, e.g. `use crate::foo::{Bar, Baz};`.
func extractRustUse(n *sitter.Node, content []byte, filePath string, result *ParseResult) {
	var parts []string
	var names []string
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		switch node.Type() {
		case "scoped_identifier":
			if path := node.ChildByFieldName("path"); path != nil {
				parts = append(parts, path.Content(content))
			}
			if name := node.ChildByFieldName("name"); name != nil {
				parts = append(parts, name.Content(content))
			}
		case "identifier", "crate", "self", "super":
			parts = append(parts, node.Content(content))
		case "use_list":
			for i := 0; i < int(node.NamedChildCount()); i++ {
				names = append(names, node.NamedChild(i).Content(content))
			}
		case "scoped_use_list":
			if path := node.ChildByFieldName("path"); path != nil {
				parts = append(parts, path.Content(content))
			}
			if list := node.ChildByFieldName("list"); list != nil {
				walk(list)
			}
		case "use_wildcard":
			result.Imports = append(result.Imports, &Import{SourceFile: filePath, Text: strings.Join(parts, "::"), IsWildcard: true})
			return
		default:
			for i := 0; i < int(node.NamedChildCount()); i++ {
				walk(node.NamedChild(i))
			}
		}
	}
	if arg := n.ChildByFieldName("argument"); arg != nil {
		walk(arg)
	}
	result.Imports = append(result.Imports, &Import{
		SourceFile: filePath,
		Text:       strings.Join(parts, "::"),
		Names:      names,
	})
}
