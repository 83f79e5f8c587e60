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

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("romadebug/trace/ast")

// startParseSpan opens a tracing span around one Parser.Parse call.
func startParseSpan(ctx context.Context, language, filePath string, size int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ast.parse",
		trace.WithAttributes(
			attribute.String("language", language),
			attribute.String("file_path", filePath),
			attribute.Int("size_bytes", size),
		),
	)
}

// setParseSpanResult annotates a parse span with the outcome.
func setParseSpanResult(span trace.Span, symbolCount, importCount int) {
	span.SetAttributes(
		attribute.Int("symbols_extracted", symbolCount),
		attribute.Int("imports_extracted", importCount),
	)
}

// recordParseMetrics logs a structured summary of one parse attempt.
func recordParseMetrics(ctx context.Context, language string, elapsed time.Duration, symbolCount int, ok bool) {
	slog.Debug("parse completed",
		slog.String("language", language),
		slog.Duration("elapsed", elapsed),
		slog.Int("symbols", symbolCount),
		slog.Bool("ok", ok),
	)
}
