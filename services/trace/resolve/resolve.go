// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve turns a textual import (as extracted by services/trace/ast)
// into a concrete on-disk file, per language-specific conventions.
package resolve

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aleutianai/romadebug/services/trace/ast"
	"github.com/aleutianai/romadebug/services/trace/core"
)

// resolution is one cached lookup: the winning path (empty if unresolved)
// and how many candidate files matched, so confidenceFor can tell "the
// only file that could be it" from "one of several".
type resolution struct {
	path  string
	count int
}

// Resolver resolves imports against one project root. It caches lookups
// for the lifetime of one analysis; it is not meant to outlive it.
type Resolver struct {
	root      string
	goModPath string // module path from go.mod, empty if none found
	goModDir  string
	mu        sync.Mutex
	cache     map[string]resolution // "lang\x00text\x00sourceFile" -> resolution
}

// New builds a Resolver rooted at projectRoot. It eagerly looks for a
// go.mod so Go import resolution can match module-relative paths.
func New(projectRoot string) *Resolver {
	r := &Resolver{root: projectRoot, cache: make(map[string]resolution)}
	r.goModDir, r.goModPath = findGoModule(projectRoot)
	return r
}

// Resolve fills in imp.ResolvedFile and imp.Confidence in place, given the
// language of the file the import was extracted from.
func (r *Resolver) Resolve(lang core.Language, imp *ast.Import) {
	key := string(lang) + "\x00" + imp.Text + "\x00" + imp.SourceFile
	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		r.mu.Unlock()
		imp.ResolvedFile = cached.path
		imp.Confidence = confidenceFor(cached.path, cached.count)
		return
	}
	r.mu.Unlock()

	var resolved string
	var count int
	switch lang {
	case core.LanguagePython:
		resolved, count = r.resolvePython(imp)
	case core.LanguageJavaScript, core.LanguageTypeScript:
		resolved, count = r.resolveJSFamily(imp)
	case core.LanguageGo:
		resolved, count = r.resolveGo(imp)
	case core.LanguageRust:
		resolved, count = r.resolveRust(imp)
	case core.LanguageJava:
		resolved, count = r.resolveJava(imp)
	}

	r.mu.Lock()
	r.cache[key] = resolution{path: resolved, count: count}
	r.mu.Unlock()

	imp.ResolvedFile = resolved
	imp.Confidence = confidenceFor(resolved, count)
}

// confidenceFor classifies a resolution per candidate count: certain when
// exactly one candidate file existed, heuristic when one was chosen among
// several, unresolved when none matched.
func confidenceFor(resolved string, count int) ast.ImportConfidence {
	if resolved == "" {
		return ast.ImportUnresolved
	}
	if count == 1 {
		return ast.ImportCertain
	}
	return ast.ImportHeuristic
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// resolvePython handles both relative ("from . import x", "from .foo import y")
// and absolute ("import a.b.c") imports, probing common source roots.
func (r *Resolver) resolvePython(imp *ast.Import) (string, int) {
	sourceDir := filepath.Dir(imp.SourceFile)
	text := imp.Text

	if imp.IsRelative || strings.HasPrefix(text, ".") {
		dots := 0
		for dots < len(text) && text[dots] == '.' {
			dots++
		}
		base := sourceDir
		for i := 1; i < dots; i++ {
			base = filepath.Dir(base)
		}
		rest := strings.TrimPrefix(text[dots:], ".")
		return r.probePythonModule(base, rest)
	}

	searchDirs := []string{r.root, filepath.Join(r.root, "src"), filepath.Join(r.root, "lib"), filepath.Join(r.root, "app")}
	var resolved string
	count := 0
	for _, dir := range searchDirs {
		p, n := r.probePythonModule(dir, text)
		count += n
		if resolved == "" {
			resolved = p
		}
	}
	return resolved, count
}

// probePythonModule enumerates every candidate file this dotted path
// could refer to under base and reports how many actually exist, so the
// caller can tell a unique match from one of several.
func (r *Resolver) probePythonModule(base, dotted string) (string, int) {
	if dotted == "" {
		if fileExists(filepath.Join(base, "__init__.py")) {
			return filepath.Join(base, "__init__.py"), 1
		}
		return "", 0
	}
	parts := strings.Split(dotted, ".")
	asFile := filepath.Join(base, filepath.Join(parts...)) + ".py"
	asPkg := filepath.Join(base, filepath.Join(parts...), "__init__.py")

	var resolved string
	count := 0
	if fileExists(asFile) {
		count++
		resolved = asFile
	}
	if fileExists(asPkg) {
		count++
		if resolved == "" {
			resolved = asPkg
		}
	}
	return resolved, count
}

// resolveJSFamily probes extension candidates and index-file fallback for
// relative/absolute-path imports; bare specifiers are treated as npm
// packages and left unresolved.
func (r *Resolver) resolveJSFamily(imp *ast.Import) (string, int) {
	if !imp.IsRelative {
		return "", 0
	}
	sourceDir := filepath.Dir(imp.SourceFile)
	base := filepath.Join(sourceDir, imp.Text)

	var resolved string
	count := 0
	exts := []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ""}
	for _, ext := range exts {
		candidate := base + ext
		if fileExists(candidate) {
			count++
			if resolved == "" {
				resolved = candidate
			}
		}
	}
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		candidate := filepath.Join(base, "index"+ext)
		if fileExists(candidate) {
			count++
			if resolved == "" {
				resolved = candidate
			}
		}
	}
	return resolved, count
}

// resolveGo matches an import path against the project's go.mod module
// path, falling back to a directory-based guess for imports the module
// doesn't own (returns "" -- external packages are not investigated).
func (r *Resolver) resolveGo(imp *ast.Import) (string, int) {
	if r.goModPath == "" {
		return "", 0
	}
	if !strings.HasPrefix(imp.Text, r.goModPath) {
		return "", 0
	}
	rel := strings.TrimPrefix(imp.Text, r.goModPath)
	rel = strings.TrimPrefix(rel, "/")
	dir := filepath.Join(r.goModDir, filepath.FromSlash(rel))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0
	}
	var resolved string
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") && !strings.HasSuffix(e.Name(), "_test.go") {
			count++
			if resolved == "" {
				resolved = filepath.Join(dir, e.Name())
			}
		}
	}
	return resolved, count
}

// resolveRust applies the common `src/a/b.rs` or `src/a/mod.rs` heuristic
// for a `crate::a::b` path relative to the project's src/ directory.
func (r *Resolver) resolveRust(imp *ast.Import) (string, int) {
	text := strings.TrimPrefix(imp.Text, "crate::")
	text = strings.TrimPrefix(text, "self::")
	text = strings.TrimPrefix(text, "super::")
	if text == "" {
		return "", 0
	}
	parts := strings.Split(text, "::")
	srcRoot := filepath.Join(r.root, "src")
	asFile := filepath.Join(srcRoot, filepath.Join(parts...)) + ".rs"
	asMod := filepath.Join(srcRoot, filepath.Join(parts...), "mod.rs")

	var resolved string
	count := 0
	if fileExists(asFile) {
		count++
		resolved = asFile
	}
	if fileExists(asMod) {
		count++
		if resolved == "" {
			resolved = asMod
		}
	}
	return resolved, count
}

// resolveJava probes classpath-style roots (src/main/java, src) for the
// dotted package/class name converted to a slash path.
func (r *Resolver) resolveJava(imp *ast.Import) (string, int) {
	if imp.Text == "" {
		return "", 0
	}
	relPath := strings.ReplaceAll(imp.Text, ".", string(filepath.Separator)) + ".java"
	roots := []string{
		filepath.Join(r.root, "src", "main", "java"),
		filepath.Join(r.root, "src"),
		r.root,
	}
	var resolved string
	count := 0
	for _, root := range roots {
		candidate := filepath.Join(root, relPath)
		if fileExists(candidate) {
			count++
			if resolved == "" {
				resolved = candidate
			}
		}
	}
	return resolved, count
}

func findGoModule(root string) (dir, modulePath string) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return root, strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}
	return "", ""
}
