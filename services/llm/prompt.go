// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"fmt"
	"strings"

	"github.com/aleutianai/romadebug/services/trace/core"
)

// SystemPrompt is sent ahead of every user prompt. It fixes the strict
// JSON output contract the normalizer expects back.
const SystemPrompt = `You are a code repair engine with deep project understanding.

CRITICAL RULES:
1. Return ONLY valid JSON. No markdown. No explanations outside JSON.
2. "full_code_block" must contain the COMPLETE corrected code for the function, class, or file segment, ready to replace the original.
3. Do not include line numbers or ">>" markers in the code.
4. Preserve all imports and dependencies already present in the context shown.
5. Only set "filepath" to a path shown in the ERROR LOG or CALL CHAIN sections. Never invent or guess a path.
6. Set "root_cause_file" only when the bug genuinely originates in a different file than "filepath"; omit it otherwise.

OUTPUT FORMAT (strict JSON):
{
  "filepath": "path/to/file.ext or null",
  "full_code_block": "complete corrected code",
  "explanation": "brief explanation of what was fixed and why",
  "root_cause_file": "path/to/other/file.ext (optional)",
  "root_cause_explanation": "why the bug originates there (optional)",
  "additional_fixes": [{"filepath": "...", "full_code_block": "...", "explanation": "..."}]
}`

// correctivePrompt is appended as a follow-up system message on the one
// allowed retry after a malformed response.
const correctivePrompt = `Your previous response could not be parsed as JSON. Return ONLY the JSON object described above. No markdown fences, no commentary before or after.`

// Budgets bounds how many characters each labeled prompt section may
// contribute before truncation kicks in.
type Budgets struct {
	ErrorLog          int
	ProjectDescriptor int
	CallChain         int
	UpstreamContext   int
}

// DefaultBudgets matches what the teacher's prompt builder used for a
// single-shot fixer call: generous enough for real stack traces without
// risking the model's context window.
func DefaultBudgets() Budgets {
	return Budgets{
		ErrorLog:          4000,
		ProjectDescriptor: 2000,
		CallChain:         6000,
		UpstreamContext:   4000,
	}
}

// UpstreamExcerpt is one file's relevant symbol excerpt shown in the
// UPSTREAM CONTEXT section.
type UpstreamExcerpt struct {
	FilePath string
	Excerpt  string
}

// BuildInput is everything the prompt builder needs to render one
// analysis request.
type BuildInput struct {
	ErrorLog    string
	Descriptor  *core.ProjectDescriptor
	FileTree    string
	CallChain   []core.CallChainEntry
	Upstream    []UpstreamExcerpt
}

// Build renders the labeled, budgeted user prompt. SystemPrompt must be
// sent as a separate leading message (or prepended by the caller); Build
// only produces the user-turn content.
func Build(in BuildInput, budgets Budgets) string {
	var b strings.Builder

	b.WriteString("## ERROR LOG\n")
	b.WriteString(truncateSection(in.ErrorLog, budgets.ErrorLog))
	b.WriteString("\n\n")

	b.WriteString("## PROJECT DESCRIPTOR\n")
	b.WriteString(truncateSection(renderDescriptor(in.Descriptor, in.FileTree), budgets.ProjectDescriptor))
	b.WriteString("\n\n")

	b.WriteString("## CALL CHAIN\n")
	b.WriteString(truncateSection(renderCallChain(in.CallChain), budgets.CallChain))
	b.WriteString("\n\n")

	b.WriteString("## UPSTREAM CONTEXT\n")
	b.WriteString(truncateSection(renderUpstream(in.Upstream), budgets.UpstreamContext))
	b.WriteString("\n\n")

	b.WriteString("## INSTRUCTIONS\n")
	b.WriteString("Analyze the error above using the call chain and upstream context. Return the corrected code as JSON per the output format. If the error has no specific file path in its traceback, set \"filepath\" to null and give general advice in \"explanation\".")

	return b.String()
}

func renderDescriptor(d *core.ProjectDescriptor, fileTree string) string {
	if d == nil {
		return "(no project descriptor available)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Project type: %s\n", orPlaceholder(d.ProjectType, "unknown"))
	if len(d.Frameworks) > 0 {
		fmt.Fprintf(&b, "Frameworks: %s\n", strings.Join(d.Frameworks, ", "))
	}
	if len(d.EntryPoints) > 0 {
		fmt.Fprintf(&b, "Entry points: %s\n", strings.Join(d.EntryPoints, ", "))
	}
	if fileTree != "" {
		b.WriteString("\nFile tree:\n")
		b.WriteString(fileTree)
	}
	return b.String()
}

func renderCallChain(entries []core.CallChainEntry) string {
	if len(entries) == 0 {
		return "(no call chain resolved)"
	}
	var b strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&b, "%d. %s:%d", i+1, entry.Frame.FilePath, entry.Frame.Line)
		if entry.Symbol != nil {
			fmt.Fprintf(&b, " in %s %q", entry.Symbol.Kind, entry.Symbol.Name)
		} else if entry.Frame.Symbol != "" {
			fmt.Fprintf(&b, " in %q", entry.Frame.Symbol)
		}
		b.WriteString("\n")
		if entry.Symbol != nil && entry.Symbol.Source != "" {
			b.WriteString("```\n")
			b.WriteString(entry.Symbol.Source)
			b.WriteString("\n```\n")
		} else if entry.Frame.RawText != "" {
			fmt.Fprintf(&b, "    %s\n", entry.Frame.RawText)
		}
	}
	return b.String()
}

func renderUpstream(excerpts []UpstreamExcerpt) string {
	if len(excerpts) == 0 {
		return "(no upstream context)"
	}
	var b strings.Builder
	for _, ex := range excerpts {
		fmt.Fprintf(&b, "### %s\n```\n%s\n```\n", ex.FilePath, ex.Excerpt)
	}
	return b.String()
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// truncateSection clips s to at most limit characters, appending an
// ellipsis and the dropped-line count when it does.
func truncateSection(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := s[:limit]
	droppedLines := strings.Count(s[limit:], "\n")
	return fmt.Sprintf("%s\n…[truncated, %d more lines]", cut, droppedLines)
}
