// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tracepatterns

import (
	"strconv"
	"strings"

	"github.com/aleutianai/romadebug/services/trace/core"
)

// DetectLanguage scores rawLog against every language's indicator set and
// returns the highest-scoring language, or core.LanguageUnknown if no
// indicator matched.
func DetectLanguage(rawLog string) core.Language {
	best := core.LanguageUnknown
	bestScore := 0
	for lang, indicators := range languageIndicators {
		score := 0
		for _, ind := range indicators {
			if ind.re != nil {
				if ind.re.MatchString(rawLog) {
					score += ind.weight
				}
				continue
			}
			if strings.Contains(rawLog, ind.substr) {
				score += ind.weight
			}
		}
		if score > bestScore {
			bestScore = score
			best = lang
		}
	}
	return best
}

// Parse detects rawLog's language (unless lang is already known) and
// extracts its stack frames and error type/message, normalized to
// oldest-caller-first ordering.
func Parse(rawLog string, lang core.Language) *core.ParsedTraceback {
	if lang == "" || lang == core.LanguageUnknown {
		lang = DetectLanguage(rawLog)
	}

	result := &core.ParsedTraceback{Language: lang, RawText: rawLog}

	if errType, msg, ok := extractErrorInfo(rawLog, lang); ok {
		result.ErrorType = errType
		result.ErrorMessage = msg
	}

	result.Frames = extractFrames(rawLog, lang)
	if needsReversal(lang) {
		reverseFrames(result.Frames)
	}
	return result
}

// needsReversal reports whether a language's native frame order lists the
// crash site first (innermost-first) and therefore must be reversed to
// reach this program's oldest-caller-first convention.
func needsReversal(lang core.Language) bool {
	switch lang {
	case core.LanguageJavaScript, core.LanguageTypeScript, core.LanguageJava, core.LanguageRust, core.LanguageGo:
		return true
	default:
		return false
	}
}

func reverseFrames(frames []core.Frame) {
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
}

func extractErrorInfo(rawLog string, lang core.Language) (errType, message string, ok bool) {
	re, exists := errorTypePatterns[lang]
	if !exists {
		return "", "", false
	}
	matches := re.FindAllStringSubmatch(rawLog, -1)
	if len(matches) == 0 {
		return "", "", false
	}
	last := matches[len(matches)-1]
	if len(last) >= 3 {
		return last[1], strings.TrimSpace(last[2]), true
	}
	if len(last) == 2 {
		return "panic", strings.TrimSpace(last[1]), true
	}
	return "", "", false
}

func extractFrames(rawLog string, lang core.Language) []core.Frame {
	patterns, ok := tracebackPatterns[lang]
	if !ok {
		return nil
	}

	var frames []core.Frame
	var prevNonTabLine string
	lines := strings.Split(rawLog, "\n")
	for _, line := range lines {
		for _, fp := range patterns {
			m := fp.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			frame := core.Frame{RawText: strings.TrimSpace(line)}
			if fp.fileGroup > 0 && fp.fileGroup < len(m) {
				frame.FilePath = m[fp.fileGroup]
			}
			if fp.lineGroup > 0 && fp.lineGroup < len(m) {
				frame.Line, _ = strconv.Atoi(m[fp.lineGroup])
			}
			if fp.colGroup > 0 && fp.colGroup < len(m) {
				frame.Column, _ = strconv.Atoi(m[fp.colGroup])
			}
			if fp.symbolGroup > 0 && fp.symbolGroup < len(m) {
				frame.Symbol = m[fp.symbolGroup]
			}
			if fp.symbolFromPrecedingLine && frame.Symbol == "" {
				frame.Symbol = symbolFromPrecedingLine(prevNonTabLine)
			}
			if frame.FilePath != "" || frame.Symbol != "" {
				frames = append(frames, frame)
			}
			break
		}
		if !strings.HasPrefix(line, "\t") {
			prevNonTabLine = line
		}
	}
	return frames
}

// symbolFromPrecedingLine extracts the call-site symbol off a Go
// goroutine dump's call line, e.g. "main.processData(...)" -> "main.processData".
func symbolFromPrecedingLine(line string) string {
	line = strings.TrimSpace(line)
	if idx := strings.Index(line, "("); idx >= 0 {
		line = line[:idx]
	}
	return line
}
