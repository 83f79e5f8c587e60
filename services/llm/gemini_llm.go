// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm talks to Gemini, rotating across a pool of API keys and a
// priority-ordered list of models, with quota-aware quarantine, retry
// backoff, and a per-(key,model) local rate limiter.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aleutianai/romadebug/services/trace/romaerrors"
)

// ErrUpstreamExhausted is returned when every (key, model) pair has failed
// for the current request.
var ErrUpstreamExhausted = romaerrors.ErrUpstreamExhausted

// DefaultModels is the model fallthrough order used when configuration
// supplies none.
var DefaultModels = []string{"gemini-3-flash-preview", "gemini-2.5-flash", "gemini-2.5-flash-lite"}

// Retry/backoff tuning, shared across every (key, model) attempt.
const (
	DefaultTimeout      = 60 * time.Second
	backoffBase         = 500 * time.Millisecond
	backoffFactor       = 2
	backoffCap          = 8 * time.Second
	maxAttemptsPerPair  = 3
	perKeyModelRateRPS  = 1 // local throttle, ahead of the real upstream limiter
	perKeyModelBurst    = 2
)

// Transport performs one model completion call. The default implementation
// talks to the Gemini REST API; tests substitute a fake.
type Transport interface {
	Complete(ctx context.Context, model, apiKey, prompt string) (string, error)
}

// Client rotates across API keys and models to satisfy Complete calls.
// Safe for concurrent use.
type Client struct {
	transport Transport
	keys      []string
	models    []string
	timeout   time.Duration

	mu          sync.Mutex
	nextKeyIdx  int
	quarantined map[string]map[string]bool // model -> key -> quarantined
	limiters    map[string]*rate.Limiter   // "key\x00model" -> limiter
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithModels overrides DefaultModels.
func WithModels(models []string) Option {
	return func(c *Client) {
		if len(models) > 0 {
			c.models = models
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport swaps the default Gemini REST transport for a fake, for
// testing key rotation and quota fallthrough without a network call.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// NewClient builds a Client rotating across keys, trying models in the
// order given (or DefaultModels if none supplied).
func NewClient(keys []string, opts ...Option) *Client {
	c := &Client{
		keys:        keys,
		models:      DefaultModels,
		timeout:     DefaultTimeout,
		quarantined: make(map[string]map[string]bool),
		limiters:    make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewGeminiTransport()
	}
	return c
}

// Complete sends prompt and returns the raw model text, trying each model
// in priority order and rotating through keys within a model, quarantining
// keys that fail with auth/quota errors (401/403/429) for the rest of the
// process and continuing with the remaining keys, and advancing to the
// next model once every key is quarantined or a model-not-found error is
// hit.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if len(c.keys) == 0 {
		return "", fmt.Errorf("llm: no API keys configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	for _, model := range c.models {
		keys := c.availableKeys(model)
		advanceModel := false
		for _, key := range keys {
			text, outcome := c.tryKeyModel(ctx, model, key, prompt)
			switch outcome {
			case outcomeSuccess:
				return text, nil
			case outcomeQuarantine:
				c.quarantine(model, key)
			case outcomeAdvanceModel:
				advanceModel = true
			case outcomeRetryNextKey:
				// fall through to the next key in rotation
			}
			if advanceModel {
				break
			}
		}
	}
	return "", ErrUpstreamExhausted
}

type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeQuarantine
	outcomeAdvanceModel
	outcomeRetryNextKey
)

// tryKeyModel runs the retry-with-backoff loop for one (model, key) pair,
// throttled by a local token bucket ahead of the real upstream limiter.
// It classifies the final error into what the caller should do next:
// quarantine the key (401/403/429), advance past this model (model not
// found), retry the same key after a 5xx backoff, or move to the next
// key for anything else.
func (c *Client) tryKeyModel(ctx context.Context, model, key, prompt string) (string, attemptOutcome) {
	limiter := c.limiterFor(key, model)
	delay := backoffBase
	var lastErr error

	for attempt := 1; attempt <= maxAttemptsPerPair; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return "", outcomeRetryNextKey
		}

		text, err := c.transport.Complete(ctx, model, key, prompt)
		if err == nil {
			return text, outcomeSuccess
		}
		lastErr = err

		var ce *classifiedError
		if errors.As(err, &ce) {
			switch {
			case ce.httpStatus == http.StatusUnauthorized || ce.httpStatus == http.StatusForbidden || ce.httpStatus == http.StatusTooManyRequests:
				return "", outcomeQuarantine
			case ce.httpStatus == http.StatusNotFound:
				return "", outcomeAdvanceModel
			case ce.httpStatus >= 500:
				// transient: retry with backoff, same key
			default:
				return "", outcomeRetryNextKey
			}
		}

		if attempt < maxAttemptsPerPair {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", outcomeRetryNextKey
			}
			delay *= backoffFactor
			if delay > backoffCap {
				delay = backoffCap
			}
		}
	}
	slog.Warn("llm: attempts exhausted for key/model", slog.String("model", model), slog.Any("err", lastErr))
	return "", outcomeRetryNextKey
}

func (c *Client) limiterFor(key, model string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key + "\x00" + model
	if l, ok := c.limiters[k]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(perKeyModelRateRPS), perKeyModelBurst)
	c.limiters[k] = l
	return l
}

func (c *Client) quarantine(model, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quarantined[model] == nil {
		c.quarantined[model] = make(map[string]bool)
	}
	c.quarantined[model][key] = true
}

// availableKeys returns keys not quarantined for model, round-robin
// rotated from the client's current position.
func (c *Client) availableKeys(model string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.keys)
	ordered := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (c.nextKeyIdx + i) % n
		key := c.keys[idx]
		if c.quarantined[model] != nil && c.quarantined[model][key] {
			continue
		}
		ordered = append(ordered, key)
	}
	c.nextKeyIdx = (c.nextKeyIdx + 1) % n
	return ordered
}

// --- Gemini REST transport ---

// geminiTransport is the default Transport, talking to the Gemini
// generateContent REST endpoint.
type geminiTransport struct {
	httpClient *http.Client
	baseURL    string
}

// NewGeminiTransport builds the default REST Transport.
func NewGeminiTransport() Transport {
	return &geminiTransport{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// classifiedError wraps an upstream failure with the retry semantics it
// maps to: quarantine the key, advance to the next model, or just retry.
type classifiedError struct {
	httpStatus int
	message    string
}

func (e *classifiedError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.httpStatus, SafeLogString(e.message))
}

func (t *geminiTransport) Complete(ctx context.Context, model, apiKey, prompt string) (string, error) {
	reqPayload := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}}
	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("gemini: marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", t.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("gemini: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	slog.Debug("gemini request", slog.String("model", model))

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &classifiedError{httpStatus: resp.StatusCode, message: string(bodyBytes)}
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("gemini: parsing response JSON: %w", err)
	}
	if apiResp.Error != nil {
		return "", &classifiedError{httpStatus: apiResp.Error.Code, message: apiResp.Error.Message}
	}
	if len(apiResp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: returned no candidates")
	}

	var textParts []string
	for _, part := range apiResp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
	}
	result := strings.Join(textParts, "")
	if result == "" {
		return "", fmt.Errorf("gemini: returned empty text content")
	}
	return result, nil
}
