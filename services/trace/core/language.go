// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package core holds the data model shared across the investigation
// pipeline: the language tag, traceback frames, the project descriptor,
// and the fix/patch records exchanged with the LLM and the applier.
package core

import "strings"

// Language identifies the language family a file or traceback belongs to.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageJava       Language = "java"
	LanguageCSharp     Language = "csharp"
	LanguageRuby       Language = "ruby"
	LanguagePHP        Language = "php"
	LanguageC          Language = "c"
	LanguageCPP        Language = "cpp"
	LanguageUnknown    Language = "unknown"
)

// extensionLanguage maps a lowercase file extension (with leading dot) to
// the Language that owns it. Extensions beyond the six families the
// traceback parser understands are carried here so the project scanner and
// error analyzer can still classify files by language.
var extensionLanguage = map[string]Language{
	".py":    LanguagePython,
	".pyi":   LanguagePython,
	".js":    LanguageJavaScript,
	".jsx":   LanguageJavaScript,
	".mjs":   LanguageJavaScript,
	".cjs":   LanguageJavaScript,
	".ts":    LanguageTypeScript,
	".tsx":   LanguageTypeScript,
	".go":    LanguageGo,
	".rs":    LanguageRust,
	".java":  LanguageJava,
	".cs":    LanguageCSharp,
	".rb":    LanguageRuby,
	".php":   LanguagePHP,
	".c":     LanguageC,
	".h":     LanguageC,
	".cpp":   LanguageCPP,
	".cc":    LanguageCPP,
	".hpp":   LanguageCPP,
}

// FromExtension returns the Language associated with filePath's extension,
// or LanguageUnknown if none is recognized.
func FromExtension(filePath string) Language {
	idx := strings.LastIndexByte(filePath, '.')
	if idx < 0 {
		return LanguageUnknown
	}
	ext := strings.ToLower(filePath[idx:])
	if lang, ok := extensionLanguage[ext]; ok {
		return lang
	}
	return LanguageUnknown
}

// TreeSitterSupported reports whether a symbol/import extraction backend
// exists for lang in this program (Go through go/ast, the rest through
// tree-sitter grammars).
func TreeSitterSupported(lang Language) bool {
	switch lang {
	case LanguagePython, LanguageJavaScript, LanguageTypeScript, LanguageRust, LanguageJava:
		return true
	default:
		return false
	}
}
