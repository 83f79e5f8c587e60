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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutianai/romadebug/services/trace/core"
)

const pythonTraceback = `Traceback (most recent call last):
  File "app/main.py", line 10, in run
    handler.dispatch(event)
  File "app/handler.py", line 42, in dispatch
    return self.items[idx]
IndexError: list index out of range`

func TestDetectLanguage_Python(t *testing.T) {
	assert.Equal(t, core.LanguagePython, DetectLanguage(pythonTraceback))
}

func TestParse_PythonFramesOldestCallerFirst(t *testing.T) {
	result := Parse(pythonTraceback, "")
	require.Len(t, result.Frames, 2)
	assert.Equal(t, "app/main.py", result.Frames[0].FilePath)
	assert.Equal(t, "app/handler.py", result.Frames[1].FilePath)
	assert.Equal(t, 42, result.Frames[1].Line)
	assert.Equal(t, "IndexError", result.ErrorType)
	assert.Equal(t, "list index out of range", result.ErrorMessage)
}

const goPanic = `panic: runtime error: index out of range [3] with length 3

goroutine 1 [running]:
main.process(...)
	/app/main.go:15 +0x1b
main.main()
	/app/cmd/root.go:8 +0x20`

func TestParse_GoPanicFramesReversedToOldestFirst(t *testing.T) {
	result := Parse(goPanic, "")
	require.Equal(t, core.LanguageGo, result.Language)
	require.Len(t, result.Frames, 2)
	// Go's goroutine dump prints the crash site first and main last; this
	// program normalizes to oldest-caller-first, so root.go (main) comes
	// before main.go (the deepest frame).
	assert.Equal(t, "/app/cmd/root.go", result.Frames[0].FilePath)
	assert.Equal(t, "main.main", result.Frames[0].Symbol)
	assert.Equal(t, "/app/main.go", result.Frames[1].FilePath)
	assert.Equal(t, "main.process", result.Frames[1].Symbol)
	assert.Equal(t, "runtime error: index out of range [3] with length 3", result.ErrorMessage)
}

const jsStack = `TypeError: Cannot read properties of undefined (reading 'name')
    at Object.render (/app/src/widget.js:12:15)
    at Server.handle (/app/src/server.js:30:5)`

func TestParse_JavaScriptFramesReversedToOldestFirst(t *testing.T) {
	result := Parse(jsStack, "")
	require.Equal(t, core.LanguageJavaScript, result.Language)
	require.Len(t, result.Frames, 2)
	assert.Equal(t, "/app/src/server.js", result.Frames[0].FilePath)
	assert.Equal(t, "/app/src/widget.js", result.Frames[1].FilePath)
	assert.Equal(t, "TypeError", result.ErrorType)
}

func TestDetectLanguage_Unknown(t *testing.T) {
	assert.Equal(t, core.LanguageUnknown, DetectLanguage("something went wrong somewhere"))
}
