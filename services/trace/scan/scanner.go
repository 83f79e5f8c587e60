// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scan walks a project directory to build a ProjectDescriptor
// (type, frameworks, entry points, source files) and scores files for
// relevance to an error message when no usable traceback is available.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	gitignore "github.com/sabhiram/go-gitignore"
	"gopkg.in/yaml.v3"

	"github.com/aleutianai/romadebug/services/trace/core"
)

// DefaultMaxFiles caps how many source files one Scan call will enumerate,
// protecting against runaway walks of enormous repositories.
const DefaultMaxFiles = 1000

// skipDirs are never descended into regardless of .gitignore contents.
var skipDirs = map[string]struct{}{
	"node_modules": {}, "__pycache__": {}, ".git": {}, ".svn": {}, ".hg": {},
	"venv": {}, "env": {}, ".venv": {}, "dist": {}, "build": {}, "target": {},
	".idea": {}, ".vscode": {}, "coverage": {}, ".pytest_cache": {}, ".mypy_cache": {},
}

// configFiles are recognized project-configuration markers; present but
// not classified as a source file of any language.
var configFiles = map[string]struct{}{
	"package.json": {}, "requirements.txt": {}, "setup.py": {}, "pyproject.toml": {},
	"Pipfile": {}, "go.mod": {}, "Cargo.toml": {}, "pom.xml": {}, "build.gradle": {},
	".env": {}, "docker-compose.yml": {}, "Dockerfile": {},
}

// entryPointPatterns lists well-known entry-point filenames per language.
var entryPointPatterns = map[core.Language][]string{
	core.LanguagePython:     {"main.py", "app.py", "server.py", "run.py", "wsgi.py", "asgi.py", "manage.py", "__main__.py"},
	core.LanguageJavaScript: {"index.js", "app.js", "server.js", "main.js"},
	core.LanguageTypeScript: {"index.ts", "app.ts", "server.ts", "main.ts"},
	core.LanguageGo:         {"main.go"},
	core.LanguageRust:       {"main.rs", "lib.rs"},
	core.LanguageJava:       {"Main.java", "App.java", "Application.java"},
}

type frameworkPattern struct {
	re   *regexp.Regexp
	lang core.Language
}

var frameworkPatterns = map[string][]frameworkPattern{
	"flask":   {{regexp.MustCompile(`(?i)from\s+flask\s+import`), core.LanguagePython}, {regexp.MustCompile(`(?i)Flask\s*\(`), core.LanguagePython}},
	"fastapi": {{regexp.MustCompile(`(?i)from\s+fastapi\s+import`), core.LanguagePython}, {regexp.MustCompile(`(?i)FastAPI\s*\(`), core.LanguagePython}},
	"django":  {{regexp.MustCompile(`(?i)from\s+django`), core.LanguagePython}, {regexp.MustCompile(`DJANGO_SETTINGS_MODULE`), core.LanguagePython}},
	"express": {{regexp.MustCompile(`require\(\s*['"]express['"]\s*\)`), core.LanguageJavaScript}, {regexp.MustCompile(`express\s*\(\s*\)`), core.LanguageJavaScript}},
	"react":   {{regexp.MustCompile(`from\s+['"]react['"]`), core.LanguageJavaScript}, {regexp.MustCompile(`React\.createElement`), core.LanguageJavaScript}},
	"vue":     {{regexp.MustCompile(`from\s+['"]vue['"]`), core.LanguageJavaScript}, {regexp.MustCompile(`createApp`), core.LanguageJavaScript}},
	"gin":     {{regexp.MustCompile(`github\.com/gin-gonic/gin`), core.LanguageGo}},
	"actix":   {{regexp.MustCompile(`actix_web`), core.LanguageRust}},
	"spring":  {{regexp.MustCompile(`org\.springframework`), core.LanguageJava}, {regexp.MustCompile(`@SpringBootApplication`), core.LanguageJava}},
}

// projectTypePriority resolves ties when multiple frameworks are detected
// (e.g. a Flask app that also imports a React frontend bundle).
var projectTypePriority = []string{"flask", "fastapi", "django", "express", "gin", "actix", "spring", "react", "vue"}

// Scanner walks one project root and classifies what it finds.
type Scanner struct {
	root     string
	maxFiles int
	ignore   *gitignore.GitIgnore
}

// New builds a Scanner rooted at projectRoot. It loads a top-level
// .gitignore if present; its absence is not an error.
func New(projectRoot string) *Scanner {
	s := &Scanner{root: projectRoot, maxFiles: DefaultMaxFiles}
	if ig, err := gitignore.CompileIgnoreFile(filepath.Join(projectRoot, ".gitignore")); err == nil {
		s.ignore = ig
	}
	return s
}

// WithMaxFiles overrides DefaultMaxFiles.
func (s *Scanner) WithMaxFiles(n int) *Scanner {
	s.maxFiles = n
	return s
}

// fileRecord is an internal per-file record kept during the walk; exported
// callers only see the flattened ProjectDescriptor.
type fileRecord struct {
	relPath  string
	lang     core.Language
	isEntry  bool
}

// Scan walks the project root and returns a ProjectDescriptor. It never
// returns an error: an unreadable directory is simply skipped.
func (s *Scanner) Scan() *core.ProjectDescriptor {
	var files []fileRecord
	langCounts := make(map[core.Language]int)
	frameworks := make(map[string]struct{})

	count := 0
	_ = filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		name := info.Name()

		if info.IsDir() {
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") || s.ignored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if count >= s.maxFiles {
			return nil
		}
		if s.ignored(rel) {
			return nil
		}
		if _, isConfig := configFiles[name]; isConfig {
			return nil
		}

		lang := core.FromExtension(name)
		if lang == core.LanguageUnknown {
			return nil
		}

		fr := fileRecord{relPath: rel, lang: lang, isEntry: isEntryPoint(rel, lang)}
		files = append(files, fr)
		langCounts[lang]++
		count++
		return nil
	})

	var entryPoints, sourceFiles []string
	for _, f := range files {
		sourceFiles = append(sourceFiles, f.relPath)
		if f.isEntry {
			entryPoints = append(entryPoints, f.relPath)
		}
	}

	s.detectFrameworks(append(append([]fileRecord{}, entryFiles(files)...), headFiles(files, 50)...), frameworks)
	s.detectFrameworksFromPyProject(frameworks)
	s.detectFrameworksFromDockerCompose(frameworks)

	primary := dominantLanguage(langCounts)
	projectType := determineProjectType(frameworks, primary)

	sort.Strings(entryPoints)
	sort.Strings(sourceFiles)

	return &core.ProjectDescriptor{
		RootPath:    s.root,
		ProjectType: projectType,
		Frameworks:  sortedKeys(frameworks),
		EntryPoints: entryPoints,
		SourceFiles: sourceFiles,
	}
}

func (s *Scanner) ignored(rel string) bool {
	return s.ignore != nil && s.ignore.MatchesPath(rel)
}

func entryFiles(files []fileRecord) []fileRecord {
	var out []fileRecord
	for _, f := range files {
		if f.isEntry {
			out = append(out, f)
		}
	}
	return out
}

func headFiles(files []fileRecord, n int) []fileRecord {
	if len(files) <= n {
		return files
	}
	return files[:n]
}

func isEntryPoint(relPath string, lang core.Language) bool {
	base := filepath.Base(relPath)
	for _, pattern := range entryPointPatterns[lang] {
		if strings.EqualFold(base, pattern) {
			return true
		}
	}
	if lang == core.LanguageGo && strings.HasPrefix(filepath.ToSlash(relPath), "cmd/") && strings.HasSuffix(relPath, ".go") {
		return true
	}
	return false
}

func (s *Scanner) detectFrameworks(candidates []fileRecord, frameworks map[string]struct{}) {
	seen := make(map[string]struct{})
	for _, f := range candidates {
		if _, dup := seen[f.relPath]; dup {
			continue
		}
		seen[f.relPath] = struct{}{}

		data, err := os.ReadFile(filepath.Join(s.root, f.relPath))
		if err != nil {
			continue
		}
		content := string(data)
		if len(content) > 10240 {
			content = content[:10240]
		}

		for name, patterns := range frameworkPatterns {
			for _, p := range patterns {
				if p.lang == f.lang && p.re.MatchString(content) {
					frameworks[name] = struct{}{}
				}
			}
		}
	}
}

// pyProjectDoc captures just enough of pyproject.toml's shape to read
// declared dependency names from either PEP 621 or Poetry-style sections.
type pyProjectDoc struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]toml.Primitive `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

var pyProjectFrameworkNames = map[string]string{
	"flask": "flask", "fastapi": "fastapi", "django": "django",
}

// detectFrameworksFromPyProject parses the project root's pyproject.toml,
// if present, and adds a framework hit for each known web framework named
// among its declared dependencies. A real parse catches dependency specs
// a substring scan of the raw file would miss (extras, version markers).
func (s *Scanner) detectFrameworksFromPyProject(frameworks map[string]struct{}) {
	path := filepath.Join(s.root, "pyproject.toml")
	var doc pyProjectDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return
	}

	for _, dep := range doc.Project.Dependencies {
		parts := strings.FieldsFunc(dep, func(r rune) bool {
			return r == '=' || r == '<' || r == '>' || r == '!' || r == '~' || r == '[' || r == ' '
		})
		if len(parts) == 0 {
			continue
		}
		if fw, ok := pyProjectFrameworkNames[strings.ToLower(parts[0])]; ok {
			frameworks[fw] = struct{}{}
		}
	}
	for dep := range doc.Tool.Poetry.Dependencies {
		name := strings.ToLower(dep)
		if fw, ok := pyProjectFrameworkNames[name]; ok {
			frameworks[fw] = struct{}{}
		}
	}
}

// dockerComposeDoc captures just enough of docker-compose.yml's shape to
// read each service's image name.
type dockerComposeDoc struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

var composeImageFrameworkNames = map[string]string{
	"redis": "redis", "postgres": "postgres", "mysql": "mysql",
	"mongo": "mongodb", "rabbitmq": "rabbitmq", "nginx": "nginx",
}

// detectFrameworksFromDockerCompose parses the project root's
// docker-compose.yml, if present, and adds a framework hit for each known
// infrastructure dependency named among its services' images.
func (s *Scanner) detectFrameworksFromDockerCompose(frameworks map[string]struct{}) {
	var doc dockerComposeDoc
	for _, name := range []string{"docker-compose.yml", "docker-compose.yaml"} {
		data, err := os.ReadFile(filepath.Join(s.root, name))
		if err != nil {
			continue
		}
		if yaml.Unmarshal(data, &doc) != nil {
			continue
		}
		break
	}

	for _, svc := range doc.Services {
		image := strings.ToLower(svc.Image)
		for key, fw := range composeImageFrameworkNames {
			if strings.Contains(image, key) {
				frameworks[fw] = struct{}{}
			}
		}
	}
}

func dominantLanguage(counts map[core.Language]int) core.Language {
	best := core.LanguageUnknown
	bestCount := 0
	for lang, n := range counts {
		if n > bestCount {
			bestCount = n
			best = lang
		}
	}
	return best
}

func determineProjectType(frameworks map[string]struct{}, primary core.Language) string {
	for _, name := range projectTypePriority {
		if _, ok := frameworks[name]; ok {
			return name
		}
	}
	switch primary {
	case core.LanguagePython:
		return "python"
	case core.LanguageJavaScript:
		return "javascript"
	case core.LanguageTypeScript:
		return "typescript"
	case core.LanguageGo:
		return "go"
	case core.LanguageRust:
		return "rust"
	case core.LanguageJava:
		return "java"
	default:
		return "unknown"
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GenerateFileTree renders a visual tree of the project, skipping
// .gitignore'd and hidden entries, capped at maxDepth directories deep
// and maxPerDir entries per directory.
func (s *Scanner) GenerateFileTree(maxDepth, maxPerDir int) string {
	var lines []string
	lines = append(lines, filepath.Base(s.root)+"/")
	s.buildTree(s.root, "", &lines, 0, maxDepth, maxPerDir)
	return strings.Join(lines, "\n")
}

func (s *Scanner) buildTree(dir, prefix string, lines *[]string, depth, maxDepth, maxPerDir int) {
	if depth >= maxDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var kept []os.DirEntry
	for _, e := range entries {
		name := e.Name()
		rel, _ := filepath.Rel(s.root, filepath.Join(dir, name))
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			if _, skip := skipDirs[name]; skip {
				continue
			}
		}
		if s.ignored(rel) {
			continue
		}
		kept = append(kept, e)
	}

	truncated := 0
	if len(kept) > maxPerDir {
		truncated = len(kept) - maxPerDir
		kept = kept[:maxPerDir]
	}

	for i, e := range kept {
		last := i == len(kept)-1 && truncated == 0
		connector, childPrefix := "├── ", prefix+"│   "
		if last {
			connector, childPrefix = "└── ", prefix+"    "
		}
		if e.IsDir() {
			*lines = append(*lines, prefix+connector+e.Name()+"/")
			s.buildTree(filepath.Join(dir, e.Name()), childPrefix, lines, depth+1, maxDepth, maxPerDir)
		} else {
			*lines = append(*lines, prefix+connector+e.Name())
		}
	}
	if truncated > 0 {
		*lines = append(*lines, fmt.Sprintf("%s└── ... (%d more items)", prefix, truncated))
	}
}
