// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the insight service configuration from an optional
// YAML file overlaid with environment variables. Environment always wins
// over the file; defaults fill whatever neither provides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultListenAddr            = ":8089"
	DefaultMaxIterations         = 4
	DefaultMaxCandidateQueries   = 3
	DefaultSchemaCacheTTL        = 2 * time.Hour
	DefaultPromptCacheCapacity   = 100
	DefaultResponseCacheCapacity = 50
	DefaultQueryTimeout          = 30 * time.Second
	DefaultRunTimeout            = 5 * time.Minute
	DefaultLLMTimeout            = 90 * time.Second
	DefaultContextMaxBytes       = 24000
	DefaultModel                 = "gpt-4o-mini"
)

// Duration is a time.Duration that unmarshals from YAML strings like "2h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full service configuration.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string `yaml:"listen_addr"`

	// DatabaseURL is the PostgreSQL DSN.
	DatabaseURL string `yaml:"database_url"`

	// APIKey guards the query endpoints when non-empty.
	APIKey string `yaml:"api_key"`

	// Model is the language model identifier.
	Model string `yaml:"model"`

	// SystemPrompt overrides the model's system role text.
	SystemPrompt string `yaml:"system_prompt"`

	MaxIterations         int      `yaml:"max_iterations"`
	MaxCandidateQueries   int      `yaml:"max_candidate_queries"`
	SchemaCacheTTL        Duration `yaml:"schema_cache_ttl"`
	PromptCacheCapacity   int      `yaml:"prompt_cache_capacity"`
	ResponseCacheCapacity int      `yaml:"response_cache_capacity"`
	QueryTimeout          Duration `yaml:"query_timeout"`
	RunTimeout            Duration `yaml:"run_timeout"`
	LLMTimeout            Duration `yaml:"llm_timeout"`
	ContextMaxBytes       int      `yaml:"context_max_bytes"`

	// CachingEnabled sets the cache layer's initial state.
	CachingEnabled *bool `yaml:"caching_enabled"`
}

// Load reads configuration from path (may be empty for env-and-defaults
// only), applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config.
func (c *Config) applyEnv() {
	setString(&c.ListenAddr, "INSIGHT_LISTEN_ADDR")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.APIKey, "INSIGHT_API_KEY")
	setString(&c.Model, "OPENAI_MODEL")
	setString(&c.SystemPrompt, "INSIGHT_SYSTEM_PROMPT")

	setInt(&c.MaxIterations, "MAX_ITERATIONS")
	setInt(&c.MaxCandidateQueries, "MAX_CANDIDATE_QUERIES")
	setInt(&c.PromptCacheCapacity, "PROMPT_CACHE_CAPACITY")
	setInt(&c.ResponseCacheCapacity, "RESPONSE_CACHE_CAPACITY")
	setInt(&c.ContextMaxBytes, "INSIGHT_CONTEXT_MAX_BYTES")

	setDuration(&c.SchemaCacheTTL, "SCHEMA_CACHE_TTL")
	setDuration(&c.QueryTimeout, "QUERY_TIMEOUT")
	setDuration(&c.RunTimeout, "RUN_TIMEOUT")
	setDuration(&c.LLMTimeout, "LLM_TIMEOUT")

	if v := os.Getenv("CACHING_ENABLED"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.CachingEnabled = &parsed
		}
	}
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxCandidateQueries <= 0 {
		c.MaxCandidateQueries = DefaultMaxCandidateQueries
	}
	if c.SchemaCacheTTL <= 0 {
		c.SchemaCacheTTL = Duration(DefaultSchemaCacheTTL)
	}
	if c.PromptCacheCapacity <= 0 {
		c.PromptCacheCapacity = DefaultPromptCacheCapacity
	}
	if c.ResponseCacheCapacity <= 0 {
		c.ResponseCacheCapacity = DefaultResponseCacheCapacity
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = Duration(DefaultQueryTimeout)
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = Duration(DefaultRunTimeout)
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = Duration(DefaultLLMTimeout)
	}
	if c.ContextMaxBytes <= 0 {
		c.ContextMaxBytes = DefaultContextMaxBytes
	}
	if c.CachingEnabled == nil {
		enabled := true
		c.CachingEnabled = &enabled
	}
}

// validate rejects configurations the service cannot run with.
func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (set DATABASE_URL)")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = Duration(parsed)
		}
	}
}
