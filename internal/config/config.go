// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package config loads and validates service configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an
// optional YAML file, then environment variables. Later layers win.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Backend  BackendConfig  `koanf:"backend"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout bounds request read/write and graceful shutdown.
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment"`
}

// Backend modes.
const (
	BackendModeREST   = "rest"
	BackendModeSQLite = "sqlite"
)

// BackendConfig configures the data/auth collaborator.
//
// In "rest" mode the service talks to a hosted PostgREST/GoTrue backend
// at URL using APIKey. In "sqlite" mode an embedded database at Path
// provides the same collaborator surface, signing its own access tokens
// with JWTSecret.
type BackendConfig struct {
	Mode    string        `koanf:"mode"`
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	Path      string `koanf:"path"`
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL bounds the lifetime of access tokens minted in sqlite mode.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// AdminEmail/AdminPassword bootstrap an admin account in sqlite mode
	// when both are set.
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`

	// BreakerDisabled turns off the circuit breaker around the REST client.
	BreakerDisabled bool `koanf:"breaker_disabled"`

	// RequestsPerSecond throttles outbound calls in "rest" mode.
	// Zero disables throttling.
	RequestsPerSecond int `koanf:"requests_per_second"`
}

// Session store kinds.
const (
	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

// SecurityConfig configures sessions and request throttling.
type SecurityConfig struct {
	// SessionTimeout is how long a signed-in session lives.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// SessionStore is "memory" or "badger".
	SessionStore string `koanf:"session_store"`

	// SessionStorePath is the Badger directory when SessionStore is "badger".
	SessionStorePath string `koanf:"session_store_path"`

	// CookieName carries the opaque session ID.
	CookieName string `koanf:"cookie_name"`

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool `koanf:"cookie_secure"`

	// LoginRateLimit caps sign-in attempts per client per LoginRateWindow.
	LoginRateLimit  int           `koanf:"login_rate_limit"`
	LoginRateWindow time.Duration `koanf:"login_rate_window"`

	// CORSOrigins lists allowed origins. "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the host:port the server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the service runs with production checks.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks the configuration for inconsistencies that would only
// surface later at request time.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}

	switch c.Backend.Mode {
	case BackendModeREST:
		if c.Backend.URL == "" {
			return fmt.Errorf("backend.url is required in rest mode")
		}
		u, err := url.Parse(c.Backend.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("backend.url %q is not a valid URL", c.Backend.URL)
		}
		if c.Backend.APIKey == "" {
			return fmt.Errorf("backend.api_key is required in rest mode")
		}
	case BackendModeSQLite:
		if c.Backend.Path == "" {
			return fmt.Errorf("backend.path is required in sqlite mode")
		}
		if c.Backend.JWTSecret == "" {
			return fmt.Errorf("backend.jwt_secret is required in sqlite mode")
		}
		if c.Server.IsProduction() && len(c.Backend.JWTSecret) < 32 {
			return fmt.Errorf("backend.jwt_secret must be at least 32 bytes in production")
		}
	default:
		return fmt.Errorf("backend.mode %q is not one of rest, sqlite", c.Backend.Mode)
	}

	switch c.Security.SessionStore {
	case SessionStoreMemory:
	case SessionStoreBadger:
		if c.Security.SessionStorePath == "" {
			return fmt.Errorf("security.session_store_path is required for the badger store")
		}
	default:
		return fmt.Errorf("security.session_store %q is not one of memory, badger", c.Security.SessionStore)
	}

	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("security.session_timeout must be positive")
	}
	if c.Security.CookieName == "" {
		return fmt.Errorf("security.cookie_name must not be empty")
	}
	if c.Security.LoginRateLimit < 1 {
		return fmt.Errorf("security.login_rate_limit must be at least 1")
	}

	return nil
}
