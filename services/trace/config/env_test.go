// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearRomaEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"GEMINI_API_KEY", "GEMINI_API_KEY2", "GEMINI_API_KEY3", "GEMINI_API_KEYS",
		"ROMA_MODELS", "GEMINI_MODELS", "ROMA_ALLOW_PROJECT_ROOT", "ROMA_ALLOWED_ORIGINS",
		"ROMA_ALLOWED_ORIGIN_REGEX", "ROMA_API_KEY", "ROMA_MAX_LOG_BYTES", "ROMA_MAX_PATCH_BYTES",
		"ROMA_MAX_REPO_FILES", "ROMA_MAX_REPO_BYTES",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_GathersEnumeratedAndPooledKeysWithoutDuplicates(t *testing.T) {
	clearRomaEnv(t)
	t.Setenv("GEMINI_API_KEY", "k1")
	t.Setenv("GEMINI_API_KEY2", "k2")
	t.Setenv("GEMINI_API_KEYS", "k2,k3")

	cfg := Load()
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.GeminiAPIKeys)
	assert.True(t, cfg.APIKeyConfigured())
}

func TestLoad_StopsEnumerationAtFirstGap(t *testing.T) {
	clearRomaEnv(t)
	t.Setenv("GEMINI_API_KEY2", "k2")
	t.Setenv("GEMINI_API_KEY3", "k3") // key2 is set but key2 gap test needs key1 absent; enumeration starts at 2

	cfg := Load()
	assert.Equal(t, []string{"k2", "k3"}, cfg.GeminiAPIKeys)
}

func TestLoad_PrefersRomaModelsOverGeminiModels(t *testing.T) {
	clearRomaEnv(t)
	t.Setenv("ROMA_MODELS", "a,b")
	t.Setenv("GEMINI_MODELS", "c,d")

	cfg := Load()
	assert.Equal(t, []string{"a", "b"}, cfg.Models)
}

func TestLoad_DefaultsAllowProjectRootTrue(t *testing.T) {
	clearRomaEnv(t)
	cfg := Load()
	assert.True(t, cfg.AllowProjectRoot)
}

func TestLoad_BooleanEnvDisablesProjectRoot(t *testing.T) {
	clearRomaEnv(t)
	t.Setenv("ROMA_ALLOW_PROJECT_ROOT", "false")
	cfg := Load()
	assert.False(t, cfg.AllowProjectRoot)
}

func TestLoad_SizeCapsFallBackToDefaultsOnInvalidValue(t *testing.T) {
	clearRomaEnv(t)
	t.Setenv("ROMA_MAX_LOG_BYTES", "not-a-number")
	cfg := Load()
	assert.Equal(t, DefaultMaxLogBytes, cfg.MaxLogBytes)
}

func TestConfig_RequireAPIKeyReflectsWhetherSet(t *testing.T) {
	clearRomaEnv(t)
	assert.False(t, Load().RequireAPIKey())

	t.Setenv("ROMA_API_KEY", "secret")
	assert.True(t, Load().RequireAPIKey())
}
