// Reelist - Movie Review Platform
// Copyright 2026 Reelist Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelist/reelist

// Package config provides layered configuration for Reelist using Koanf v2.
//
// Precedence: environment variables > YAML config file > built-in defaults.
package config

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config is the root configuration for the Reelist server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Lockout  LockoutConfig  `koanf:"lockout"`
	Threat   ThreatConfig   `koanf:"threat"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production". Production enforces
	// secure cookies and refuses to start without an explicit JWT secret.
	Environment string `koanf:"environment"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs API bearer tokens. Minimum 32 characters.
	// Rotating the secret invalidates every outstanding token; this is
	// the only revocation mechanism the stateless scheme has.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the bearer token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// SessionTTL is the admin session lifetime.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// AdminUsername/AdminPassword seed the admin account at startup.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`
	AdminEmail    string `koanf:"admin_email"`

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int `koanf:"bcrypt_cost"`

	// MinPasswordLength is the minimum accepted password length for new
	// credentials.
	MinPasswordLength int `koanf:"min_password_length"`

	// RateLimitReqs/RateLimitWindow throttle the auth endpoints per IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`

	// SessionStore selects the session backend: "memory" or "badger".
	SessionStore string `koanf:"session_store"`
	// DataPath is the BadgerDB directory (sessions + lockout counters).
	DataPath string `koanf:"data_path"`

	// SessionCookieName is the admin session cookie name.
	SessionCookieName string `koanf:"session_cookie_name"`
	// CookieSecure sets the Secure flag on session cookies.
	CookieSecure bool `koanf:"cookie_secure"`

	// StoreTimeout bounds each session/lockout store round-trip. Store
	// errors or timeouts fail closed (treated as locked/unauthenticated).
	StoreTimeout time.Duration `koanf:"store_timeout"`
}

// LockoutConfig holds brute-force lockout settings.
type LockoutConfig struct {
	// MaxAttempts is the number of failed attempts before lockout.
	MaxAttempts int `koanf:"max_attempts"`

	// Window is the sliding span in which failures accumulate and the
	// duration of the lockout once triggered.
	Window time.Duration `koanf:"window"`

	// Enabled controls whether lockout is active.
	Enabled bool `koanf:"enabled"`
}

// ThreatConfig holds content-threat filter settings.
type ThreatConfig struct {
	// Enabled controls whether free-text inputs are screened.
	Enabled bool `koanf:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8264,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			TokenTTL:          2 * time.Hour,
			SessionTTL:        12 * time.Hour,
			AdminUsername:     "",
			AdminPassword:     "",
			AdminEmail:        "",
			BcryptCost:        12,
			MinPasswordLength: 10,
			RateLimitReqs:     30,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
			SessionStore:      "memory",
			DataPath:          "/data/reelist",
			SessionCookieName: "reelist_session",
			CookieSecure:      true,
			StoreTimeout:      500 * time.Millisecond,
		},
		Lockout: LockoutConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			Enabled:     true,
		},
		Threat: ThreatConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values that would leave the trust
// boundary in an unsafe state.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters (got %d)", len(c.Security.JWTSecret))
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("security.token_ttl must be positive")
	}
	if c.Security.SessionTTL <= 0 {
		return fmt.Errorf("security.session_ttl must be positive")
	}
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("security.bcrypt_cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Security.BcryptCost)
	}
	if c.Security.MinPasswordLength < 10 {
		return fmt.Errorf("security.min_password_length must be at least 10, got %d",
			c.Security.MinPasswordLength)
	}
	if c.Security.SessionStore != "memory" && c.Security.SessionStore != "badger" {
		return fmt.Errorf("security.session_store must be \"memory\" or \"badger\", got %q",
			c.Security.SessionStore)
	}
	if c.Security.SessionStore == "badger" && c.Security.DataPath == "" {
		return fmt.Errorf("security.data_path is required when session_store=badger")
	}
	if c.Security.StoreTimeout <= 0 {
		return fmt.Errorf("security.store_timeout must be positive")
	}

	if c.Lockout.MaxAttempts < 1 {
		return fmt.Errorf("lockout.max_attempts must be at least 1, got %d", c.Lockout.MaxAttempts)
	}
	if c.Lockout.Window <= 0 {
		return fmt.Errorf("lockout.window must be positive")
	}

	if c.Security.AdminUsername != "" && len(c.Security.AdminPassword) < c.Security.MinPasswordLength {
		return fmt.Errorf("security.admin_password must be at least %d characters",
			c.Security.MinPasswordLength)
	}

	return nil
}
