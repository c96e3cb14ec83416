// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package config loads and validates the Colligo configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest wins):
//   - Environment variables (see envTransformFunc for the mapping)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Ephemeral EphemeralConfig `koanf:"ephemeral"`
	Resolver  ResolverConfig  `koanf:"resolver"`
	Feed      FeedConfig      `koanf:"feed"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings for the durable engagement store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads sets DuckDB's thread count; 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// EphemeralConfig selects and configures the shared ephemeral store backing
// the like membership sets and the feed cache.
//
// Driver "redis" is the production default: like sets and cached feeds must
// be shared across service instances. Driver "badger" persists to
// local disk for single-node deployments; "memory" is for development and
// tests only.
type EphemeralConfig struct {
	Driver        string `koanf:"driver"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	BadgerPath    string `koanf:"badger_path"`
}

// ResolverConfig configures the external candidate-user resolver.
//
// The resolver is best-effort: calls carry Timeout and failures degrade to
// an empty candidate list, so an empty URL simply yields empty feeds.
type ResolverConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// FeedConfig tunes feed assembly and pagination.
type FeedConfig struct {
	// SampleSize bounds each of the two candidate pools (followed and
	// random public authors) requested from the resolver per assembly.
	SampleSize int `koanf:"sample_size"`
	// TopPostsPerAuthor bounds the per-candidate post fetch; assembly never
	// scans an author's full history.
	TopPostsPerAuthor int           `koanf:"top_posts_per_author"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	AuthorCacheTTL    time.Duration `koanf:"author_cache_ttl"`
	DefaultPageSize   int           `koanf:"default_page_size"`
	MaxPageSize       int           `koanf:"max_page_size"`
}

// ReconcileConfig tunes the scheduled like reconciler.
type ReconcileConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// SecurityConfig holds authentication settings.
//
// AuthMode "jwt" validates Authorization bearer tokens issued by the external
// identity service (shared HS256 secret). AuthMode "none" disables
// authentication and is for development only.
type SecurityConfig struct {
	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ephemeralDrivers lists the supported ephemeral store drivers.
var ephemeralDrivers = map[string]bool{
	"redis":  true,
	"badger": true,
	"memory": true,
}

// Validate checks the configuration for invalid or inconsistent settings.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if !ephemeralDrivers[c.Ephemeral.Driver] {
		return fmt.Errorf("ephemeral.driver must be one of redis, badger, memory; got %q", c.Ephemeral.Driver)
	}
	if c.Ephemeral.Driver == "redis" && c.Ephemeral.RedisAddr == "" {
		return fmt.Errorf("ephemeral.redis_addr is required when ephemeral.driver is redis")
	}
	if c.Ephemeral.Driver == "badger" && c.Ephemeral.BadgerPath == "" {
		return fmt.Errorf("ephemeral.badger_path is required when ephemeral.driver is badger")
	}

	if c.Resolver.Timeout <= 0 {
		return fmt.Errorf("resolver.timeout must be positive, got %s", c.Resolver.Timeout)
	}

	if c.Feed.SampleSize < 1 {
		return fmt.Errorf("feed.sample_size must be at least 1, got %d", c.Feed.SampleSize)
	}
	if c.Feed.TopPostsPerAuthor < 1 {
		return fmt.Errorf("feed.top_posts_per_author must be at least 1, got %d", c.Feed.TopPostsPerAuthor)
	}
	if c.Feed.CacheTTL <= 0 {
		return fmt.Errorf("feed.cache_ttl must be positive, got %s", c.Feed.CacheTTL)
	}
	if c.Feed.DefaultPageSize < 1 || c.Feed.MaxPageSize < c.Feed.DefaultPageSize {
		return fmt.Errorf("feed page sizes invalid: default %d, max %d", c.Feed.DefaultPageSize, c.Feed.MaxPageSize)
	}

	if c.Reconcile.Interval <= 0 {
		return fmt.Errorf("reconcile.interval must be positive, got %s", c.Reconcile.Interval)
	}

	switch c.Security.AuthMode {
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters when auth_mode is jwt")
		}
	case "none":
		// Development mode, no credential required.
	default:
		return fmt.Errorf("security.auth_mode must be jwt or none, got %q", c.Security.AuthMode)
	}

	return nil
}
