// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package romaerrors defines the sentinel error taxonomy surfaced to CLI
// and HTTP callers, so the boundary layer can map a failure to an exit
// code or status code with errors.Is/errors.As instead of string
// matching.
package romaerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap these with fmt.Errorf("...: %w", Err...) to add
// request-specific detail while keeping errors.Is matching intact.
var (
	ErrLogEmpty           = errors.New("romaerrors: log is empty")
	ErrLanguageUnknown    = errors.New("romaerrors: no traceback pattern matched")
	ErrParseFailed        = errors.New("romaerrors: parse failed")
	ErrPathEscape         = errors.New("romaerrors: patch path escapes project root")
	ErrSizeCapExceeded    = errors.New("romaerrors: size cap exceeded")
	ErrUpstreamRateLimited = errors.New("romaerrors: upstream rate limited")
	ErrUpstreamExhausted  = errors.New("romaerrors: upstream exhausted")
	ErrModelOutputInvalid = errors.New("romaerrors: model output invalid")
	ErrWriteFailed        = errors.New("romaerrors: write failed")
)

// Kind is the taxonomy tag used in HTTP error bodies and CLI exit
// messages.
type Kind string

const (
	KindLogEmpty           Kind = "log_empty"
	KindLanguageUnknown    Kind = "language_unknown"
	KindParseFailed        Kind = "parse_failed"
	KindPathEscape         Kind = "path_escape"
	KindSizeCapExceeded    Kind = "size_cap_exceeded"
	KindUpstreamRateLimited Kind = "upstream_rate_limited"
	KindUpstreamExhausted  Kind = "upstream_exhausted"
	KindModelOutputInvalid Kind = "model_output_invalid"
	KindWriteFailed        Kind = "write_failed"
)

var sentinelToKind = map[error]Kind{
	ErrLogEmpty:            KindLogEmpty,
	ErrLanguageUnknown:     KindLanguageUnknown,
	ErrParseFailed:         KindParseFailed,
	ErrPathEscape:          KindPathEscape,
	ErrSizeCapExceeded:     KindSizeCapExceeded,
	ErrUpstreamRateLimited: KindUpstreamRateLimited,
	ErrUpstreamExhausted:   KindUpstreamExhausted,
	ErrModelOutputInvalid:  KindModelOutputInvalid,
	ErrWriteFailed:         KindWriteFailed,
}

// KindOf classifies err against the known sentinels, returning "" if err
// matches none of them (an unclassified internal error).
func KindOf(err error) Kind {
	for sentinel, kind := range sentinelToKind {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}

// WithPath wraps a sentinel with the offending file path for logging and
// error bodies, preserving errors.Is against the sentinel.
func WithPath(sentinel error, path string) error {
	return fmt.Errorf("%w: %s", sentinel, path)
}
