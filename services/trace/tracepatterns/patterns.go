// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tracepatterns detects the source language of a raw error log
// and parses it into an ordered, normalized list of stack frames.
package tracepatterns

import (
	"regexp"

	"github.com/aleutianai/romadebug/services/trace/core"
)

// framePattern is one compiled regex for a language's traceback frame line,
// plus the capture-group indices for file, line, column, and symbol. A
// group index of 0 means "not present in this pattern".
type framePattern struct {
	re          *regexp.Regexp
	fileGroup   int
	lineGroup   int
	colGroup    int
	symbolGroup int

	// symbolFromPrecedingLine reports that this pattern's own capture
	// groups never carry the symbol: it sits on the preceding non-tab
	// line instead (Go's "goroutine" dumps print the call site, then
	// the file:line on the next, tab-indented line) and extractFrames
	// must merge it in.
	symbolFromPrecedingLine bool
}

// languageIndicator is a substring (or regex, when re is set) whose
// presence in a raw log votes for a language during detection.
type languageIndicator struct {
	substr string
	re     *regexp.Regexp
	weight int
}

var tracebackPatterns = map[core.Language][]framePattern{
	core.LanguagePython: {
		{re: regexp.MustCompile(`^\s*File "([^"]+)", line (\d+), in (\S+)`), fileGroup: 1, lineGroup: 2, symbolGroup: 3},
	},
	core.LanguageJavaScript: {
		{re: regexp.MustCompile(`^\s*at\s+(\S+)\s+\(([^:]+):(\d+):(\d+)\)`), symbolGroup: 1, fileGroup: 2, lineGroup: 3, colGroup: 4},
		{re: regexp.MustCompile(`^\s*at\s+([^\s(]+):(\d+):(\d+)`), fileGroup: 1, lineGroup: 2, colGroup: 3},
	},
	core.LanguageTypeScript: {
		{re: regexp.MustCompile(`^\s*at\s+(\S+)\s+\(([^:]+):(\d+):(\d+)\)`), symbolGroup: 1, fileGroup: 2, lineGroup: 3, colGroup: 4},
		{re: regexp.MustCompile(`^\s*at\s+([^\s(]+):(\d+):(\d+)`), fileGroup: 1, lineGroup: 2, colGroup: 3},
	},
	core.LanguageGo: {
		{re: regexp.MustCompile(`^([\w./\-]+\.go):(\d+)(?:\s+\+0x[0-9a-fA-F]+)?$`), fileGroup: 1, lineGroup: 2, symbolFromPrecedingLine: true},
		{re: regexp.MustCompile(`^\t([\w./\-]+\.go):(\d+)(?:\s+\+0x[0-9a-fA-F]+)?$`), fileGroup: 1, lineGroup: 2, symbolFromPrecedingLine: true},
	},
	core.LanguageRust: {
		{re: regexp.MustCompile(`^\s*\d+:\s+(\S+)`), symbolGroup: 1},
		{re: regexp.MustCompile(`^\s*at\s+([^:]+):(\d+)(?::(\d+))?`), fileGroup: 1, lineGroup: 2, colGroup: 3},
		{re: regexp.MustCompile(`^thread '.*' panicked at '(.*)', ([^:]+):(\d+):(\d+)`), fileGroup: 2, lineGroup: 3, colGroup: 4},
	},
	core.LanguageJava: {
		{re: regexp.MustCompile(`^\s*at\s+([\w.$]+)\(([^:]+):(\d+)\)`), symbolGroup: 1, fileGroup: 2, lineGroup: 3},
		{re: regexp.MustCompile(`^\s*at\s+([\w.$]+)\(Native Method\)`), symbolGroup: 1},
	},
}

var errorTypePatterns = map[core.Language]*regexp.Regexp{
	core.LanguagePython:     regexp.MustCompile(`(?m)^(\w*Error|\w*Exception):\s*(.*)$`),
	core.LanguageJavaScript: regexp.MustCompile(`(?m)^(\w*Error):\s*(.*)$`),
	core.LanguageTypeScript: regexp.MustCompile(`(?m)^(\w*Error):\s*(.*)$`),
	core.LanguageGo:         regexp.MustCompile(`(?m)^panic:\s*(.*)$`),
	core.LanguageRust:       regexp.MustCompile(`thread '.*' panicked at '(.*)'`),
	core.LanguageJava:       regexp.MustCompile(`(?m)^(?:Exception in thread "[^"]*"\s+)?([\w.$]*(?:Exception|Error)):\s*(.*)$`),
}

var languageIndicators = map[core.Language][]languageIndicator{
	core.LanguagePython:     {{substr: "Traceback (most recent call last)", weight: 5}, {substr: ".py\"", weight: 2}},
	core.LanguageJavaScript: {{substr: "    at ", weight: 1}, {substr: "node_modules", weight: 2}, {substr: ".js:", weight: 2}},
	core.LanguageTypeScript: {{substr: "    at ", weight: 1}, {substr: ".ts:", weight: 3}, {substr: ".tsx:", weight: 3}},
	core.LanguageGo:         {{substr: "goroutine ", weight: 5}, {substr: ".go:", weight: 2}, {substr: "panic:", weight: 3}},
	core.LanguageRust:       {{substr: "panicked at", weight: 5}, {substr: ".rs:", weight: 2}, {substr: "RUST_BACKTRACE", weight: 3}},
	core.LanguageJava:       {{substr: "Exception in thread", weight: 4}, {substr: ".java:", weight: 3}, {substr: "\tat ", weight: 1}},
}
