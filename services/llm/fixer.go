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
	"context"
	"errors"

	"github.com/aleutianai/romadebug/services/trace/core"
)

// Fixer ties the prompt builder, LLM client, and response normalizer
// into one call: build the prompt, invoke the model, normalize the
// result, and retry once with a corrective message if the first
// response didn't parse.
type Fixer struct {
	client  *Client
	budgets Budgets
}

// NewFixer builds a Fixer around an already-configured Client.
func NewFixer(client *Client) *Fixer {
	return &Fixer{client: client, budgets: DefaultBudgets()}
}

// WithBudgets overrides the default section character budgets.
func (f *Fixer) WithBudgets(b Budgets) *Fixer {
	f.budgets = b
	return f
}

// Fix runs one full analysis round trip. projectRoot strips returned
// paths down to project-relative form.
func (f *Fixer) Fix(ctx context.Context, in BuildInput, projectRoot string) (core.FixProposal, error) {
	userPrompt := Build(in, f.budgets)
	fullPrompt := SystemPrompt + "\n\n" + userPrompt

	raw, err := f.client.Complete(ctx, fullPrompt)
	if err != nil {
		return core.FixProposal{}, err
	}

	proposal, err := Normalize(raw, projectRoot)
	if err == nil {
		return proposal, nil
	}
	if !errors.Is(err, ErrModelOutputInvalid) {
		return core.FixProposal{}, err
	}

	retryPrompt := fullPrompt + "\n\n" + correctivePrompt
	raw, err = f.client.Complete(ctx, retryPrompt)
	if err != nil {
		return core.FixProposal{}, err
	}
	return Normalize(raw, projectRoot)
}
