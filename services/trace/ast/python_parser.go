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
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithPythonMaxFileSize sets the maximum file size the parser will accept.
func WithPythonMaxFileSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithPythonParseOptions applies the given ParseOptions to the parser.
func WithPythonParseOptions(opts ParseOptions) PythonParserOption {
	return func(p *PythonParser) {
		p.parseOptions = opts
	}
}

// PythonParser extracts functions, classes, methods, and imports from
// Python source using the tree-sitter Python grammar.
type PythonParser struct {
	maxFileSize  int64
	parseOptions ParseOptions
}

// NewPythonParser constructs a PythonParser with sensible defaults.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{
		maxFileSize:  10 * 1024 * 1024,
		parseOptions: DefaultParseOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PythonParser) Language() string     { return "python" }
func (p *PythonParser) Extensions() []string { return []string{".py", ".pyi"} }

// Parse extracts all functions, classes, methods, and imports from content.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "python", filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
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
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	result := &ParseResult{
		FilePath:  filePath,
		Language:  "python",
		LineCount: strings.Count(string(content), "\n") + 1,
	}

	root := tree.RootNode()
	if root == nil {
		return result, nil
	}

	p.extractImports(root, content, filePath, result)
	p.extractDefs(ctx, root, content, filePath, result, nil, 0)

	setParseSpanResult(span, len(result.Symbols), len(result.Imports))
	recordParseMetrics(ctx, "python", time.Since(start), len(result.Symbols), true)
	return result, nil
}

// extractImports walks top-level import_statement / import_from_statement nodes.
func (p *PythonParser) extractImports(root *sitter.Node, content []byte, filePath string, result *ParseResult) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				text := child.Content(content)
				result.Imports = append(result.Imports, &Import{
					SourceFile: filePath,
					Text:       text,
				})
			}
			return
		case "import_from_statement":
			var module string
			var names []string
			wildcard := false
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				switch child.Type() {
				case "dotted_name", "relative_import":
					if module == "" {
						module = child.Content(content)
					}
				case "wildcard_import":
					wildcard = true
				case "aliased_import":
					names = append(names, child.Content(content))
				default:
					txt := child.Content(content)
					if txt != "" && txt != "import" {
						names = append(names, txt)
					}
				}
			}
			result.Imports = append(result.Imports, &Import{
				SourceFile: filePath,
				Text:       module,
				Names:      names,
				IsWildcard: wildcard,
				IsRelative: strings.HasPrefix(module, "."),
			})
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
}

// extractDefs recursively collects class_definition and function_definition
// nodes, nesting methods under their enclosing class.
func (p *PythonParser) extractDefs(ctx context.Context, n *sitter.Node, content []byte, filePath string, result *ParseResult, parent *Symbol, depth int) {
	if ctx.Err() != nil {
		return
	}
	if p.parseOptions.MaxDepth > 0 && depth > p.parseOptions.MaxDepth {
		return
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "class_definition":
			sym := p.makeSymbol(child, content, filePath, SymbolClass, parent)
			result.Symbols = append(result.Symbols, sym)
			if body := child.ChildByFieldName("body"); body != nil {
				p.extractDefs(ctx, body, content, filePath, result, sym, depth+1)
			}
		case "function_definition", "decorated_definition":
			target := child
			decorators := []string{}
			if child.Type() == "decorated_definition" {
				for j := 0; j < int(child.NamedChildCount()); j++ {
					dc := child.NamedChild(j)
					if dc.Type() == "decorator" {
						decorators = append(decorators, strings.TrimPrefix(dc.Content(content), "@"))
					} else if dc.Type() == "function_definition" || dc.Type() == "class_definition" {
						target = dc
					}
				}
			}
			if target.Type() == "class_definition" {
				sym := p.makeSymbol(target, content, filePath, SymbolClass, parent)
				sym.Decorators = decorators
				result.Symbols = append(result.Symbols, sym)
				if body := target.ChildByFieldName("body"); body != nil {
					p.extractDefs(ctx, body, content, filePath, result, sym, depth+1)
				}
				continue
			}
			kind := SymbolFunction
			if parent != nil && parent.Kind == SymbolClass {
				kind = SymbolMethod
			}
			sym := p.makeSymbol(target, content, filePath, kind, parent)
			sym.Decorators = decorators
			if !p.parseOptions.IncludePrivate && strings.HasPrefix(sym.Name, "_") && !strings.HasPrefix(sym.Name, "__") {
				continue
			}
			result.Symbols = append(result.Symbols, sym)
			if body := target.ChildByFieldName("body"); body != nil {
				p.extractDefs(ctx, body, content, filePath, result, sym, depth+1)
			}
		default:
			p.extractDefs(ctx, child, content, filePath, result, parent, depth)
		}
	}
}

func (p *PythonParser) makeSymbol(n *sitter.Node, content []byte, filePath string, kind SymbolKind, parent *Symbol) *Symbol {
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
