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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixer_SucceedsOnFirstWellFormedResponse(t *testing.T) {
	transport := &fakeTransport{script: map[string]func() (string, error){
		"m1/key1": func() (string, error) {
			return `{"filepath": "main.py", "full_code_block": "pass", "explanation": "fixed"}`, nil
		},
	}}
	client := NewClient([]string{"key1"}, WithTransport(transport), WithModels([]string{"m1"}), WithTimeout(2*time.Second))
	fixer := NewFixer(client)

	proposal, err := fixer.Fix(context.Background(), BuildInput{ErrorLog: "boom"}, "")
	require.NoError(t, err)
	assert.Equal(t, "main.py", proposal.FilePath)
}

func TestFixer_RetriesOnceAfterMalformedResponse(t *testing.T) {
	calls := 0
	transport := &fakeTransport{script: map[string]func() (string, error){
		"m1/key1": func() (string, error) {
			calls++
			if calls == 1 {
				return "not json at all, sorry", nil
			}
			return `{"filepath": "main.py", "full_code_block": "pass", "explanation": "fixed"}`, nil
		},
	}}
	client := NewClient([]string{"key1"}, WithTransport(transport), WithModels([]string{"m1"}), WithTimeout(2*time.Second))
	fixer := NewFixer(client)

	proposal, err := fixer.Fix(context.Background(), BuildInput{ErrorLog: "boom"}, "")
	require.NoError(t, err)
	assert.Equal(t, "main.py", proposal.FilePath)
	assert.Equal(t, 2, calls)
}

func TestFixer_SurfacesModelOutputInvalidAfterSecondFailure(t *testing.T) {
	transport := &fakeTransport{script: map[string]func() (string, error){
		"m1/key1": func() (string, error) { return "still not json", nil },
	}}
	client := NewClient([]string{"key1"}, WithTransport(transport), WithModels([]string{"m1"}), WithTimeout(2*time.Second))
	fixer := NewFixer(client)

	_, err := fixer.Fix(context.Background(), BuildInput{ErrorLog: "boom"}, "")
	assert.ErrorIs(t, err, ErrModelOutputInvalid)
}
