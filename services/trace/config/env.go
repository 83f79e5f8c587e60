// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config reads the environment variables that tune the server
// and CLI at startup: LLM credentials and model list, CORS and auth
// policy, and input size caps.
package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxLogBytes   = 200 * 1024
	DefaultMaxPatchBytes = 200 * 1024
	DefaultMaxRepoFiles  = 2000
	DefaultMaxRepoBytes  = 50 * 1024 * 1024
)

// Config is the fully resolved set of environment-driven settings for
// one process lifetime.
type Config struct {
	GeminiAPIKeys []string
	Models        []string

	AllowProjectRoot   bool
	AllowedOrigins     []string
	AllowedOriginRegex *regexp.Regexp

	APIKey string // if non-empty, X-ROMA-API-KEY must match

	MaxLogBytes   int
	MaxPatchBytes int
	MaxRepoFiles  int
	MaxRepoBytes  int
}

// Load reads Config from the process environment.
func Load() Config {
	return Config{
		GeminiAPIKeys: geminiAPIKeys(),
		Models:        commaList(firstNonEmpty(os.Getenv("ROMA_MODELS"), os.Getenv("GEMINI_MODELS"))),

		AllowProjectRoot:   boolEnv("ROMA_ALLOW_PROJECT_ROOT", true),
		AllowedOrigins:     commaList(os.Getenv("ROMA_ALLOWED_ORIGINS")),
		AllowedOriginRegex: regexEnv("ROMA_ALLOWED_ORIGIN_REGEX"),

		APIKey: os.Getenv("ROMA_API_KEY"),

		MaxLogBytes:   intEnv("ROMA_MAX_LOG_BYTES", DefaultMaxLogBytes),
		MaxPatchBytes: intEnv("ROMA_MAX_PATCH_BYTES", DefaultMaxPatchBytes),
		MaxRepoFiles:  intEnv("ROMA_MAX_REPO_FILES", DefaultMaxRepoFiles),
		MaxRepoBytes:  intEnv("ROMA_MAX_REPO_BYTES", DefaultMaxRepoBytes),
	}
}

// fileOverrides is the shape of an optional YAML config file passed via
// --config. Its values sit below environment variables: an env var that
// is already set always wins over the same field in the file.
type fileOverrides struct {
	Models        []string `yaml:"models"`
	MaxLogBytes   int      `yaml:"max_log_bytes"`
	MaxPatchBytes int      `yaml:"max_patch_bytes"`
	MaxRepoFiles  int      `yaml:"max_repo_files"`
	MaxRepoBytes  int      `yaml:"max_repo_bytes"`
}

// LoadWithFile behaves like Load, then layers in defaults from an
// optional YAML file for whichever fields the environment left unset.
// An empty path, or a file that can't be read or parsed, is ignored and
// LoadWithFile falls back to Load's environment-only result.
func LoadWithFile(path string) Config {
	cfg := Load()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return cfg
	}

	if len(cfg.Models) == 0 && len(overrides.Models) > 0 {
		cfg.Models = overrides.Models
	}
	if os.Getenv("ROMA_MAX_LOG_BYTES") == "" && overrides.MaxLogBytes > 0 {
		cfg.MaxLogBytes = overrides.MaxLogBytes
	}
	if os.Getenv("ROMA_MAX_PATCH_BYTES") == "" && overrides.MaxPatchBytes > 0 {
		cfg.MaxPatchBytes = overrides.MaxPatchBytes
	}
	if os.Getenv("ROMA_MAX_REPO_FILES") == "" && overrides.MaxRepoFiles > 0 {
		cfg.MaxRepoFiles = overrides.MaxRepoFiles
	}
	if os.Getenv("ROMA_MAX_REPO_BYTES") == "" && overrides.MaxRepoBytes > 0 {
		cfg.MaxRepoBytes = overrides.MaxRepoBytes
	}
	return cfg
}

// APIKeyConfigured reports whether at least one Gemini key is present,
// for the /health endpoint's api_key_configured field.
func (c Config) APIKeyConfigured() bool {
	return len(c.GeminiAPIKeys) > 0
}

// RequireAPIKey reports whether incoming requests must present the
// X-ROMA-API-KEY header.
func (c Config) RequireAPIKey() bool {
	return c.APIKey != ""
}

// geminiAPIKeys gathers GEMINI_API_KEY, GEMINI_API_KEY2..N (until a gap),
// and a comma-separated GEMINI_API_KEYS pool, deduplicated in the order
// first seen.
func geminiAPIKeys() []string {
	seen := make(map[string]struct{})
	var keys []string

	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	add(os.Getenv("GEMINI_API_KEY"))
	for i := 2; ; i++ {
		v := os.Getenv("GEMINI_API_KEY" + strconv.Itoa(i))
		if v == "" {
			break
		}
		add(v)
	}
	for _, k := range commaList(os.Getenv("GEMINI_API_KEYS")) {
		add(k)
	}
	return keys
}

func commaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func boolEnv(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func intEnv(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func regexEnv(name string) *regexp.Regexp {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	re, err := regexp.Compile(v)
	if err != nil {
		return nil
	}
	return re
}
