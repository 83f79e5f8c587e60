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
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScriptParser extracts symbols from TypeScript (and TSX) source using
// tree-sitter, reusing JavaScript's tree-walk since the grammars share the
// bulk of their node shapes and additionally recognizing interfaces.
type TypeScriptParser struct {
	maxFileSize  int64
	parseOptions ParseOptions
}

type TypeScriptParserOption func(*TypeScriptParser)

func WithTSMaxFileSize(bytes int64) TypeScriptParserOption {
	return func(p *TypeScriptParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

func WithTSParseOptions(opts ParseOptions) TypeScriptParserOption {
	return func(p *TypeScriptParser) { p.parseOptions = opts }
}

func NewTypeScriptParser(opts ...TypeScriptParserOption) *TypeScriptParser {
	p := &TypeScriptParser{maxFileSize: 10 * 1024 * 1024, parseOptions: DefaultParseOptions()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *TypeScriptParser) Language() string { return "typescript" }
func (p *TypeScriptParser) Extensions() []string {
	return []string{".ts", ".tsx"}
}

func (p *TypeScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, "typescript", filePath, len(content))
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

	grammar := typescript.GetLanguage()
	if strings.HasSuffix(filePath, ".tsx") {
		grammar = tsx.GetLanguage()
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	result := &ParseResult{FilePath: filePath, Language: "typescript", LineCount: strings.Count(string(content), "\n") + 1}
	root := tree.RootNode()
	if root == nil {
		return result, nil
	}

	extractJSFamilySymbols(ctx, root, content, filePath, result, nil, p.parseOptions)
	setParseSpanResult(span, len(result.Symbols), len(result.Imports))
	recordParseMetrics(ctx, "typescript", time.Since(start), len(result.Symbols), true)
	return result, nil
}
