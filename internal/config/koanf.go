// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/colligo/config.yaml",
	"/etc/colligo/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8274,
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/colligo.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Ephemeral: EphemeralConfig{
			Driver:        "redis",
			RedisAddr:     "127.0.0.1:6379",
			RedisPassword: "",
			RedisDB:       0,
			BadgerPath:    "/data/ephemeral",
		},
		Resolver: ResolverConfig{
			URL:     "",
			Timeout: 3 * time.Second,
		},
		Feed: FeedConfig{
			SampleSize:        10,
			TopPostsPerAuthor: 5,
			CacheTTL:          10 * time.Minute,
			AuthorCacheTTL:    20 * time.Minute,
			DefaultPageSize:   10,
			MaxPageSize:       50,
		},
		Reconcile: ReconcileConfig{
			Interval: time.Minute,
		},
		Security: SecurityConfig{
			AuthMode:  "jwt",
			JWTSecret: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are skipped so random environment noise cannot leak
// into the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Ephemeral store
		"ephemeral_driver": "ephemeral.driver",
		"redis_addr":       "ephemeral.redis_addr",
		"redis_password":   "ephemeral.redis_password",
		"redis_db":         "ephemeral.redis_db",
		"badger_path":      "ephemeral.badger_path",

		// Candidate resolver
		"resolver_url":     "resolver.url",
		"resolver_timeout": "resolver.timeout",

		// Feed assembly
		"feed_sample_size":          "feed.sample_size",
		"feed_top_posts_per_author": "feed.top_posts_per_author",
		"feed_cache_ttl":            "feed.cache_ttl",
		"feed_author_cache_ttl":     "feed.author_cache_ttl",
		"feed_default_page_size":    "feed.default_page_size",
		"feed_max_page_size":        "feed.max_page_size",

		// Reconciler
		"reconcile_interval": "reconcile.interval",

		// Security
		"auth_mode":  "security.auth_mode",
		"jwt_secret": "security.jwt_secret",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
