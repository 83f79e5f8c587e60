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
	"github.com/smacker/go-tree-sitter/java"
)

// JavaParser extracts classes, interfaces, enums, methods, constructors,
// and import declarations from Java source using tree-sitter.
type JavaParser struct {
	maxFileSize  int64
	parseOptions ParseOptions
}

type JavaParserOption func(*JavaParser)

func WithJavaMaxFileSize(bytes int64) JavaParserOption {
	return func(p *JavaParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

func NewJavaParser(opts ...JavaParserOption) *JavaParser {
	p := &JavaParser{maxFileSize: 10 * 1024 * 1024, parseOptions: DefaultParseOptions()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *JavaParser) Language() string     { return "java" }
func (p *JavaParser) Extensions() []string { return []string{".java"} }

func (p *JavaParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "java", filePath, len(content))
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
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	result := &ParseResult{FilePath: filePath, Language: "java", LineCount: strings.Count(string(content), "\n") + 1}
	root := tree.RootNode()
	if root == nil {
		return result, nil
	}

	extractJavaSymbols(ctx, root, content, filePath, result, nil)
	setParseSpanResult(span, len(result.Symbols), len(result.Imports))
	recordParseMetrics(ctx, "java", time.Since(start), len(result.Symbols), true)
	return result, nil
}

func extractJavaSymbols(ctx context.Context, n *sitter.Node, content []byte, filePath string, result *ParseResult, parent *Symbol) {
	if ctx.Err() != nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "import_declaration":
			extractJavaImport(child, content, filePath, result)
		case "class_declaration", "interface_declaration", "enum_declaration":
			kind := SymbolClass
			switch child.Type() {
			case "interface_declaration":
				kind = SymbolInterface
			case "enum_declaration":
				kind = SymbolEnum
			}
			sym := javaSymbol(child, content, filePath, kind, parent)
			result.Symbols = append(result.Symbols, sym)
			if body := child.ChildByFieldName("body"); body != nil {
				extractJavaSymbols(ctx, body, content, filePath, result, sym)
			}
		case "method_declaration", "constructor_declaration":
			kind := SymbolMethod
			if child.Type() == "constructor_declaration" {
				kind = SymbolConstructor
			}
			sym := javaSymbol(child, content, filePath, kind, parent)
			result.Symbols = append(result.Symbols, sym)
		default:
			extractJavaSymbols(ctx, child, content, filePath, result, parent)
		}
	}
}

func javaSymbol(n *sitter.Node, content []byte, filePath string, kind SymbolKind, parent *Symbol) *Symbol {
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

// extractJavaImport collects the dotted package path of an import
// declaration, recursing through nested scoped_identifier parts and
// recognizing the trailing `.*` wildcard form.
func extractJavaImport(n *sitter.Node, content []byte, filePath string, result *ParseResult) {
	var parts []string
	wildcard := false
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		switch node.Type() {
		case "scoped_identifier":
			if scope := node.ChildByFieldName("scope"); scope != nil {
				walk(scope)
			}
			if name := node.ChildByFieldName("name"); name != nil {
				parts = append(parts, name.Content(content))
			}
		case "identifier":
			parts = append(parts, node.Content(content))
		case "asterisk":
			wildcard = true
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i))
	}
	result.Imports = append(result.Imports, &Import{
		SourceFile: filePath,
		Text:       strings.Join(parts, "."),
		IsWildcard: wildcard,
	})
}
