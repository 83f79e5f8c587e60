// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/aleutianai/romadebug/services/trace/core"
)

// Analysis is the result of classifying an error message that had no
// usable traceback frames, plus the project files judged relevant to it.
type Analysis struct {
	Category        string // e.g. "http_404", "python_import"
	ErrorType       string // coarse bucket: "http", "import", "runtime", "syntax", "database", "config", "connection", "filesystem", "unknown"
	Message         string
	Language        core.Language // best-guess language, "" if undetermined
	AffectedRoutes  []string
	Keywords        []string
	RelevantFiles   []string
	Confidence      float64
}

type categoryPattern struct {
	re         *regexp.Regexp
	confidence float64
}

var errorPatterns = map[string][]categoryPattern{
	"http_404":     {{regexp.MustCompile(`(?i)cannot\s+(?:get|post|put|delete|patch)\s+[/\w]+`), 0.9}, {regexp.MustCompile(`(?i)404\s+(?:not\s+found|\(not\s+found\))`), 0.95}, {regexp.MustCompile(`(?i)route\s+not\s+found`), 0.9}},
	"http_500":     {{regexp.MustCompile(`(?i)500\s+internal\s+server\s+error`), 0.95}, {regexp.MustCompile(`(?i)internal\s+server\s+error`), 0.8}},
	"http_400":     {{regexp.MustCompile(`(?i)400\s+bad\s+request`), 0.95}, {regexp.MustCompile(`(?i)bad\s+request`), 0.7}},
	"http_401":     {{regexp.MustCompile(`(?i)401\s+unauthorized`), 0.95}, {regexp.MustCompile(`(?i)not\s+authenticated`), 0.8}},
	"http_403":     {{regexp.MustCompile(`(?i)403\s+forbidden`), 0.95}, {regexp.MustCompile(`(?i)permission\s+denied`), 0.8}},
	"static_file":  {{regexp.MustCompile(`(?i)enoent.*index\.html`), 0.95}, {regexp.MustCompile(`(?i)static\s+file\s+not\s+found`), 0.9}},
	"file_not_found": {{regexp.MustCompile(`(?i)enoent`), 0.9}, {regexp.MustCompile(`(?i)no\s+such\s+file\s+or\s+directory`), 0.95}},

	"python_import":    {{regexp.MustCompile(`(?i)modulenotfounderror`), 0.95}, {regexp.MustCompile(`(?i)no\s+module\s+named`), 0.95}, {regexp.MustCompile(`(?i)cannot\s+import\s+name`), 0.9}},
	"python_attribute": {{regexp.MustCompile(`(?i)attributeerror`), 0.95}, {regexp.MustCompile(`(?i)has\s+no\s+attribute`), 0.9}},
	"python_type":      {{regexp.MustCompile(`(?i)typeerror`), 0.95}},
	"python_value":     {{regexp.MustCompile(`(?i)valueerror`), 0.95}},
	"python_key":       {{regexp.MustCompile(`(?i)keyerror`), 0.95}},
	"python_index":     {{regexp.MustCompile(`(?i)indexerror`), 0.95}, {regexp.MustCompile(`(?i)list\s+index\s+out\s+of\s+range`), 0.95}},
	"python_name":      {{regexp.MustCompile(`(?i)nameerror`), 0.95}},
	"python_syntax":    {{regexp.MustCompile(`(?i)syntaxerror`), 0.95}},

	"js_reference": {{regexp.MustCompile(`(?i)referenceerror`), 0.95}, {regexp.MustCompile(`(?i)is\s+not\s+defined`), 0.8}},
	"js_type":      {{regexp.MustCompile(`(?i)cannot\s+read\s+propert`), 0.9}, {regexp.MustCompile(`(?i)is\s+not\s+a\s+function`), 0.9}},
	"js_syntax":    {{regexp.MustCompile(`(?i)unexpected\s+token`), 0.85}},
	"js_module":    {{regexp.MustCompile(`(?i)cannot\s+find\s+module`), 0.95}, {regexp.MustCompile(`(?i)module\s+not\s+found`), 0.9}},

	"go_panic": {{regexp.MustCompile(`panic:`), 0.95}, {regexp.MustCompile(`(?i)runtime\s+error:`), 0.9}},
	"go_nil":   {{regexp.MustCompile(`(?i)nil\s+pointer`), 0.95}, {regexp.MustCompile(`(?i)invalid\s+memory\s+address`), 0.9}},

	"rust_panic": {{regexp.MustCompile(`(?i)thread\s+.*\s+panicked`), 0.95}},

	"database":   {{regexp.MustCompile(`(?i)database\s+error`), 0.85}, {regexp.MustCompile(`(?i)sql\s+error`), 0.9}},
	"config":     {{regexp.MustCompile(`(?i)missing\s+(?:env|environment)\s+variable`), 0.9}, {regexp.MustCompile(`(?i)api\s*key\s+(?:not\s+(?:set|found|valid)|invalid)`), 0.9}},
	"connection": {{regexp.MustCompile(`(?i)connection\s+refused`), 0.9}, {regexp.MustCompile(`(?i)connection\s+timed?\s*out`), 0.9}},
}

var categoryToType = map[string]string{
	"http_404": "http", "http_500": "http", "http_400": "http", "http_401": "http", "http_403": "http",
	"static_file": "static", "file_not_found": "filesystem",
	"python_import": "import", "python_attribute": "runtime", "python_type": "runtime", "python_value": "runtime",
	"python_key": "runtime", "python_index": "runtime", "python_name": "runtime", "python_syntax": "syntax",
	"js_reference": "runtime", "js_type": "runtime", "js_syntax": "syntax", "js_module": "import",
	"go_panic": "runtime", "go_nil": "runtime", "rust_panic": "runtime",
	"database": "database", "config": "config", "connection": "connection",
}

var categoryToLanguage = map[string]core.Language{
	"python_import": core.LanguagePython, "python_attribute": core.LanguagePython, "python_type": core.LanguagePython,
	"python_value": core.LanguagePython, "python_key": core.LanguagePython, "python_index": core.LanguagePython,
	"python_name": core.LanguagePython, "python_syntax": core.LanguagePython,
	"js_reference": core.LanguageJavaScript, "js_type": core.LanguageJavaScript, "js_syntax": core.LanguageJavaScript, "js_module": core.LanguageJavaScript,
	"go_panic": core.LanguageGo, "go_nil": core.LanguageGo,
	"rust_panic": core.LanguageRust,
}

var ignoreKeywords = map[string]struct{}{
	"error": {}, "exception": {}, "failed": {}, "cannot": {}, "could": {}, "not": {},
	"the": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"at": {}, "in": {}, "on": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "from": {},
	"get": {}, "post": {}, "put": {}, "delete": {}, "http": {}, "https": {},
}

var (
	filenamePattern   = regexp.MustCompile(`(?i)[\w\-./]+\.(?:py|js|ts|go|rs|java|jsx|tsx)`)
	routePattern      = regexp.MustCompile(`/[\w\-/]+`)
	camelCasePattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?:[A-Z][a-z]+)+\b`)
	snakeCasePattern  = regexp.MustCompile(`\b[a-z]+(?:_[a-z]+)+\b`)
	quotedLitPattern  = regexp.MustCompile(`['"]([^'"]+)['"]`)

	// symbolDefPattern picks out a defined name across the languages this
	// program supports: Python/Go "def"/"func", JS "function", Java/Go
	// "class"/method signatures with an access modifier.
	symbolDefPattern = regexp.MustCompile(`(?m)^\s*(?:def|func|function|class|public|private|protected|static)[\w<>\[\]\s]*?([A-Za-z_]\w*)\s*[(:{]`)
)

// relevanceContentScanBytes caps how much of each candidate file is read
// when scoring content/symbol keyword matches -- the first few kilobytes,
// not the whole file.
const relevanceContentScanBytes = 8 * 1024

// Analyze classifies message into an error category/type, extracts
// keywords and HTTP routes, and -- if scanner is non-nil -- scores the
// project's files for relevance.
func Analyze(message string, scanner *Scanner) Analysis {
	lower := strings.ToLower(message)
	category, confidence := detectCategory(lower)

	a := Analysis{
		Category:   category,
		ErrorType:  categoryToType[category],
		Message:    truncate(message, 500),
		Language:   categoryToLanguage[category],
		Confidence: confidence,
	}
	if category == "" {
		a.ErrorType = "unknown"
	}

	a.AffectedRoutes = extractRoutes(message)
	keywords := extractKeywords(message)
	a.Keywords = sortedSlice(keywords)

	if scanner != nil {
		descriptor := scanner.Scan()
		a.RelevantFiles = scoreRelevance(descriptor, keywords, message, 5)
		if a.Language == "" {
			a.Language = dominantDescriptorLanguage(descriptor)
		}
	}
	return a
}

func detectCategory(lowerMessage string) (string, float64) {
	var best string
	var bestScore float64
	for category, patterns := range errorPatterns {
		for _, p := range patterns {
			if p.re.MatchString(lowerMessage) && p.confidence > bestScore {
				best = category
				bestScore = p.confidence
			}
		}
	}
	return best, bestScore
}

func extractRoutes(message string) []string {
	matches := routePattern.FindAllString(message, -1)
	seen := make(map[string]struct{})
	var out []string
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func extractKeywords(message string) map[string]struct{} {
	keywords := make(map[string]struct{})

	for _, m := range filenamePattern.FindAllString(message, -1) {
		keywords[strings.ToLower(m)] = struct{}{}
	}
	for _, route := range routePattern.FindAllString(message, -1) {
		for _, part := range strings.Split(strings.Trim(route, "/"), "/") {
			if len(part) > 2 {
				keywords[strings.ToLower(part)] = struct{}{}
			}
		}
	}
	for _, m := range camelCasePattern.FindAllString(message, -1) {
		keywords[strings.ToLower(m)] = struct{}{}
	}
	for _, m := range snakeCasePattern.FindAllString(message, -1) {
		keywords[m] = struct{}{}
	}
	for _, m := range quotedLitPattern.FindAllStringSubmatch(message, -1) {
		q := strings.ToLower(m[1])
		if len(q) > 2 && !strings.HasPrefix(q, "http") {
			keywords[q] = struct{}{}
		}
	}
	for kw := range ignoreKeywords {
		delete(keywords, kw)
	}
	return keywords
}

func scoreRelevance(descriptor *core.ProjectDescriptor, keywords map[string]struct{}, message string, limit int) []string {
	type scored struct {
		path  string
		score float64
	}
	lowerMsg := strings.ToLower(message)
	entrySet := make(map[string]struct{}, len(descriptor.EntryPoints))
	for _, e := range descriptor.EntryPoints {
		entrySet[e] = struct{}{}
	}

	var candidates []scored
	for _, path := range descriptor.SourceFiles {
		pathLower := strings.ToLower(path)
		fileLower := strings.ToLower(filepath.Base(path))
		var score float64

		if _, isEntry := entrySet[path]; isEntry {
			score += 2.0
		}
		for kw := range keywords {
			if strings.Contains(fileLower, kw) {
				score += 3.0
			} else if strings.Contains(pathLower, kw) {
				score += 1.5
			}
		}
		if len(keywords) > 0 {
			contentMatch, symbolMatch := fileContentSignals(filepath.Join(descriptor.RootPath, path), keywords)
			if symbolMatch {
				score += 2.5
			}
			if contentMatch {
				score += 1.0
			}
		}
		if strings.Contains(lowerMsg, "cannot get") || strings.Contains(lowerMsg, "404") {
			for _, hint := range []string{"route", "app", "server", "index", "view", "controller"} {
				if strings.Contains(fileLower, hint) {
					score += 2.0
					break
				}
			}
		}
		if strings.Contains(lowerMsg, "api") && strings.Contains(pathLower, "api") {
			score += 2.0
		}
		if score > 0 {
			candidates = append(candidates, scored{path: path, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.path
	}
	return out
}

// fileContentSignals reports whether the first relevanceContentScanBytes
// of absPath contain any keyword verbatim (contentMatch), and whether any
// defined symbol name in that same excerpt matches a keyword
// (symbolMatch). Both are false if the file can't be opened or is empty.
func fileContentSignals(absPath string, keywords map[string]struct{}) (contentMatch, symbolMatch bool) {
	f, err := os.Open(absPath)
	if err != nil {
		return false, false
	}
	defer f.Close()

	buf := make([]byte, relevanceContentScanBytes)
	n, readErr := io.ReadFull(f, buf)
	if n == 0 && readErr != nil {
		return false, false
	}
	content := strings.ToLower(string(buf[:n]))

	for kw := range keywords {
		if strings.Contains(content, kw) {
			contentMatch = true
			break
		}
	}
	for _, m := range symbolDefPattern.FindAllStringSubmatch(content, -1) {
		if _, ok := keywords[strings.ToLower(m[1])]; ok {
			symbolMatch = true
			break
		}
	}
	return contentMatch, symbolMatch
}

func dominantDescriptorLanguage(descriptor *core.ProjectDescriptor) core.Language {
	switch descriptor.ProjectType {
	case "python", "flask", "fastapi", "django":
		return core.LanguagePython
	case "javascript", "express", "react", "vue":
		return core.LanguageJavaScript
	case "typescript":
		return core.LanguageTypeScript
	case "go", "gin":
		return core.LanguageGo
	case "rust", "actix":
		return core.LanguageRust
	case "java", "spring":
		return core.LanguageJava
	default:
		return core.LanguageUnknown
	}
}

func sortedSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
