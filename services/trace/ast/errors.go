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

import "errors"

var (
	// ErrFileTooLarge is returned when a parser's max file size is exceeded.
	ErrFileTooLarge = errors.New("file exceeds parser size limit")

	// ErrInvalidContent is returned when source content is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")

	// ErrUnsupportedLanguage is returned by the registry when no parser
	// claims a given language or file extension.
	ErrUnsupportedLanguage = errors.New("no parser registered for language")
)

// WarnFileSize is the size in bytes above which a parser logs a warning
// before attempting to parse (files above this are slow, not necessarily
// rejected -- rejection happens at maxFileSize).
const WarnFileSize = 1 << 20 // 1MB
