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
	"github.com/smacker/go-tree-sitter/javascript"
)

// JavaScriptParser extracts symbols from JavaScript source code using the
// tree-sitter javascript grammar. It also understands CommonJS require()
// calls in addition to ES module imports.
type JavaScriptParser struct {
	maxFileSize  int64
	parseOptions ParseOptions
}

type JavaScriptParserOption func(*JavaScriptParser)

func WithJSMaxFileSize(bytes int64) JavaScriptParserOption {
	return func(p *JavaScriptParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

func WithJSParseOptions(opts ParseOptions) JavaScriptParserOption {
	return func(p *JavaScriptParser) { p.parseOptions = opts }
}

func NewJavaScriptParser(opts ...JavaScriptParserOption) *JavaScriptParser {
	p := &JavaScriptParser{maxFileSize: 10 * 1024 * 1024, parseOptions: DefaultParseOptions()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *JavaScriptParser) Language() string { return "javascript" }
func (p *JavaScriptParser) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs"}
}

func (p *JavaScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "javascript", filePath, len(content))
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
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	result := &ParseResult{FilePath: filePath, Language: "javascript", LineCount: strings.Count(string(content), "\n") + 1}
	root := tree.RootNode()
	if root == nil {
		return result, nil
	}

	extractJSFamilySymbols(ctx, root, content, filePath, result, nil, p.parseOptions)
	setParseSpanResult(span, len(result.Symbols), len(result.Imports))
	recordParseMetrics(ctx, "javascript", time.Since(start), len(result.Symbols), true)
	return result, nil
}

// extractJSFamilySymbols walks a JS/TS tree recursively, shared by the
// JavaScript and TypeScript parsers since their grammars overlap heavily.
func extractJSFamilySymbols(ctx context.Context, n *sitter.Node, content []byte, filePath string, result *ParseResult, parent *Symbol, opts ParseOptions) {
	if ctx.Err() != nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "import_statement":
			extractJSImport(child, content, filePath, result)
		case "call_expression":
			extractCommonJSRequire(child, content, filePath, result)
		case "class_declaration", "class":
			sym := jsSymbol(child, content, filePath, SymbolClass, parent)
			result.Symbols = append(result.Symbols, sym)
			if body := child.ChildByFieldName("body"); body != nil {
				extractJSFamilySymbols(ctx, body, content, filePath, result, sym, opts)
			}
		case "interface_declaration":
			sym := jsSymbol(child, content, filePath, SymbolInterface, parent)
			result.Symbols = append(result.Symbols, sym)
		case "function_declaration", "function_expression", "arrow_function", "generator_function_declaration":
			kind := SymbolFunction
			if parent != nil && parent.Kind == SymbolClass {
				kind = SymbolMethod
			}
			sym := jsSymbol(child, content, filePath, kind, parent)
			if sym.Name == "" && child.Parent() != nil && child.Parent().Type() == "variable_declarator" {
				if nameNode := child.Parent().ChildByFieldName("name"); nameNode != nil {
					sym.Name = nameNode.Content(content)
				}
			}
			result.Symbols = append(result.Symbols, sym)
			if body := child.ChildByFieldName("body"); body != nil {
				extractJSFamilySymbols(ctx, body, content, filePath, result, sym, opts)
			}
		case "method_definition", "method_signature":
			kind := SymbolMethod
			if nameNode := child.ChildByFieldName("name"); nameNode != nil && nameNode.Content(content) == "constructor" {
				kind = SymbolConstructor
			}
			sym := jsSymbol(child, content, filePath, kind, parent)
			result.Symbols = append(result.Symbols, sym)
			if body := child.ChildByFieldName("body"); body != nil {
				extractJSFamilySymbols(ctx, body, content, filePath, result, sym, opts)
			}
		default:
			extractJSFamilySymbols(ctx, child, content, filePath, result, parent, opts)
		}
	}
}

func jsSymbol(n *sitter.Node, content []byte, filePath string, kind SymbolKind, parent *Symbol) *Symbol {
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

func extractJSImport(n *sitter.Node, content []byte, filePath string, result *ParseResult) {
	var source string
	var names []string
	wildcard := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "string":
			source = strings.Trim(child.Content(content), `"'`+"`")
		case "import_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				switch spec.Type() {
				case "identifier":
					names = append(names, spec.Content(content))
				case "namespace_import":
					wildcard = true
				case "named_imports":
					for k := 0; k < int(spec.NamedChildCount()); k++ {
						names = append(names, spec.NamedChild(k).Content(content))
					}
				}
			}
		}
	}
	result.Imports = append(result.Imports, &Import{
		SourceFile: filePath,
		Text:       source,
		Names:      names,
		IsWildcard: wildcard,
		IsRelative: strings.HasPrefix(source, ".") || strings.HasPrefix(source, "/"),
	})
}

// extractCommonJSRequire recognizes `require("x")` call expressions,
// including `const x = require("y")` assignment forms.
func extractCommonJSRequire(n *sitter.Node, content []byte, filePath string, result *ParseResult) {
	fnNode := n.ChildByFieldName("function")
	if fnNode == nil || fnNode.Content(content) != "require" {
		return
	}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	arg := args.NamedChild(0)
	if arg.Type() != "string" {
		return
	}
	source := strings.Trim(arg.Content(content), `"'`+"`")
	result.Imports = append(result.Imports, &Import{
		SourceFile: filePath,
		Text:       source,
		IsRelative: strings.HasPrefix(source, ".") || strings.HasPrefix(source, "/"),
	})
}
