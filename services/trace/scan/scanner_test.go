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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScanFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanner_DetectsFlaskProjectAndEntryPoint(t *testing.T) {
	root := t.TempDir()
	writeScanFile(t, root, "app.py", "from flask import Flask\napp = Flask(__name__)\n")
	writeScanFile(t, root, "models/user.py", "class User:\n    pass\n")

	descriptor := New(root).Scan()
	assert.Equal(t, "flask", descriptor.ProjectType)
	assert.Contains(t, descriptor.Frameworks, "flask")
	assert.Contains(t, descriptor.EntryPoints, "app.py")
	assert.Contains(t, descriptor.SourceFiles, "models/user.py")
}

func TestScanner_SkipsGitignoredAndVendorDirs(t *testing.T) {
	root := t.TempDir()
	writeScanFile(t, root, ".gitignore", "build/\nsecrets.go\n")
	writeScanFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeScanFile(t, root, "build/generated.go", "package build\n")
	writeScanFile(t, root, "secrets.go", "package main\n")
	writeScanFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")

	descriptor := New(root).Scan()
	assert.Contains(t, descriptor.SourceFiles, "main.go")
	assert.NotContains(t, descriptor.SourceFiles, "build/generated.go")
	assert.NotContains(t, descriptor.SourceFiles, "secrets.go")
	assert.NotContains(t, descriptor.SourceFiles, "node_modules/pkg/index.js")
}

func TestScanner_PyProjectTomlDependencyDetectsFramework(t *testing.T) {
	root := t.TempDir()
	writeScanFile(t, root, "pyproject.toml", "[project]\ndependencies = [\"fastapi>=0.100\", \"uvicorn\"]\n")
	writeScanFile(t, root, "main.py", "def handler():\n    pass\n")

	descriptor := New(root).Scan()
	assert.Contains(t, descriptor.Frameworks, "fastapi")
}

func TestScanner_GenerateFileTree(t *testing.T) {
	root := t.TempDir()
	writeScanFile(t, root, "main.go", "package main\n")
	writeScanFile(t, root, "pkg/util.go", "package pkg\n")

	tree := New(root).GenerateFileTree(4, 20)
	assert.Contains(t, tree, "main.go")
	assert.Contains(t, tree, "pkg/")
}
