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
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport scripts a sequence of responses per (model, key) call,
// recording every call it receives for assertions.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []string // "model/key"
	script  map[string]func() (string, error)
	fallbackErr error
}

func (f *fakeTransport) Complete(ctx context.Context, model, apiKey, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, model+"/"+apiKey)
	f.mu.Unlock()

	if fn, ok := f.script[model+"/"+apiKey]; ok {
		return fn()
	}
	if f.fallbackErr != nil {
		return "", f.fallbackErr
	}
	return "", &classifiedError{httpStatus: http.StatusInternalServerError, message: "no script entry"}
}

func quickClient(t *testing.T, transport *fakeTransport, models []string) *Client {
	t.Helper()
	return NewClient([]string{"key1", "key2"}, WithTransport(transport), WithModels(models), WithTimeout(2*time.Second))
}

func TestClient_SucceedsOnFirstKey(t *testing.T) {
	transport := &fakeTransport{script: map[string]func() (string, error){
		"m1/key1": func() (string, error) { return `{"ok":true}`, nil },
	}}
	c := quickClient(t, transport, []string{"m1"})

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestClient_QuarantinesKeyOn401AndRotates(t *testing.T) {
	transport := &fakeTransport{script: map[string]func() (string, error){
		"m1/key1": func() (string, error) { return "", &classifiedError{httpStatus: http.StatusUnauthorized} },
		"m1/key2": func() (string, error) { return "result", nil },
	}}
	c := quickClient(t, transport, []string{"m1"})

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "result", out)

	c.mu.Lock()
	quarantined := c.quarantined["m1"]["key1"]
	c.mu.Unlock()
	assert.True(t, quarantined)
}

func TestClient_AdvancesModelOnQuotaError(t *testing.T) {
	transport := &fakeTransport{script: map[string]func() (string, error){
		"m1/key1": func() (string, error) { return "", &classifiedError{httpStatus: http.StatusTooManyRequests} },
		"m1/key2": func() (string, error) { return "", &classifiedError{httpStatus: http.StatusTooManyRequests} },
		"m2/key1": func() (string, error) { return "from-m2", nil },
	}}
	c := quickClient(t, transport, []string{"m1", "m2"})

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "from-m2", out)

	// Both m1 keys must have been tried (quarantined) before the client
	// gave up on m1 and advanced to m2.
	assert.Contains(t, transport.calls, "m1/key1")
	assert.Contains(t, transport.calls, "m1/key2")

	c.mu.Lock()
	quarantinedKey1 := c.quarantined["m1"]["key1"]
	quarantinedKey2 := c.quarantined["m1"]["key2"]
	c.mu.Unlock()
	assert.True(t, quarantinedKey1)
	assert.True(t, quarantinedKey2)
}

func TestClient_RetriesNextKeyOnQuotaErrorSameModel(t *testing.T) {
	transport := &fakeTransport{script: map[string]func() (string, error){
		"m1/key1": func() (string, error) { return "", &classifiedError{httpStatus: http.StatusTooManyRequests} },
		"m1/key2": func() (string, error) { return "succeeded-on-key2", nil },
	}}
	c := quickClient(t, transport, []string{"m1"})

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "succeeded-on-key2", out)

	c.mu.Lock()
	quarantined := c.quarantined["m1"]["key1"]
	c.mu.Unlock()
	assert.True(t, quarantined)
}

func TestClient_ExhaustedWhenAllKeyModelPairsFail(t *testing.T) {
	transport := &fakeTransport{fallbackErr: &classifiedError{httpStatus: http.StatusBadRequest}}
	c := quickClient(t, transport, []string{"m1"})

	_, err := c.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrUpstreamExhausted)
}

func TestClient_RetriesTransientServerErrorBeforeGivingUp(t *testing.T) {
	attempts := 0
	transport := &fakeTransport{script: map[string]func() (string, error){
		"m1/key1": func() (string, error) {
			attempts++
			if attempts < 2 {
				return "", &classifiedError{httpStatus: http.StatusServiceUnavailable}
			}
			return "recovered", nil
		},
	}}
	c := NewClient([]string{"key1"}, WithTransport(transport), WithModels([]string{"m1"}), WithTimeout(5*time.Second))

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.GreaterOrEqual(t, attempts, 2)
}
