// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for server, reaper, and migrate.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "propertydesk-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "propertydesk-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// AccessTokenTTL is the access token lifetime (e.g. "15m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// RefreshTokenTTL is the refresh token lifetime (e.g. "168h").
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`
	// SessionIdleTimeout is the max gap between authenticated requests before forced end (e.g. "30m").
	SessionIdleTimeout string `mapstructure:"SESSION_IDLE_TIMEOUT"`
	// SessionAbsoluteTimeout is the max session age regardless of activity (e.g. "12h").
	SessionAbsoluteTimeout string `mapstructure:"SESSION_ABSOLUTE_TIMEOUT"`
	// MaxSessionsPerUser caps concurrent active sessions per user; the oldest is evicted on overflow.
	MaxSessionsPerUser int `mapstructure:"MAX_SESSIONS_PER_USER"`
	// ReaperInterval is the delay between reaper runs (e.g. "1h").
	ReaperInterval string `mapstructure:"REAPER_INTERVAL"`
	// BlacklistGrace is how long expired sessions and blacklist entries are kept past expiry before physical deletion (e.g. "1h").
	BlacklistGrace string `mapstructure:"BLACKLIST_GRACE"`
	// SessionRetention is how long invalidated sessions are kept for audit before deletion (e.g. "24h").
	SessionRetention string `mapstructure:"SESSION_RETENTION"`
	// AuditRetentionDays is how many days audit log rows are kept (e.g. 90).
	AuditRetentionDays int `mapstructure:"AUDIT_RETENTION_DAYS"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// OTLPEndpoint is the OTLP collector endpoint for traces/metrics/logs; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production"). Controls the Secure flag on the refresh cookie.
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "propertydesk-auth")
	v.SetDefault("JWT_AUDIENCE", "propertydesk-api")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h") // 7d
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	v.SetDefault("SESSION_ABSOLUTE_TIMEOUT", "12h")
	v.SetDefault("MAX_SESSIONS_PER_USER", 3)
	v.SetDefault("REAPER_INTERVAL", "1h")
	v.SetDefault("BLACKLIST_GRACE", "1h")
	v.SetDefault("SESSION_RETENTION", "24h")
	v.SetDefault("AUDIT_RETENTION_DAYS", 90)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "development")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.MaxSessionsPerUser <= 0 {
		return nil, errors.New("config: MAX_SESSIONS_PER_USER must be positive")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// AccessTTL parses AccessTokenTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.AccessTokenTTL, 15*time.Minute)
}

// RefreshTTL parses RefreshTokenTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.RefreshTokenTTL, 168*time.Hour)
}

// IdleTimeout parses SessionIdleTimeout as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) IdleTimeout() time.Duration {
	return durationOr(c.SessionIdleTimeout, 30*time.Minute)
}

// AbsoluteTimeout parses SessionAbsoluteTimeout as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) AbsoluteTimeout() time.Duration {
	return durationOr(c.SessionAbsoluteTimeout, 12*time.Hour)
}

// ReaperTick parses ReaperInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) ReaperTick() time.Duration {
	return durationOr(c.ReaperInterval, time.Hour)
}

// Grace parses BlacklistGrace as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) Grace() time.Duration {
	return durationOr(c.BlacklistGrace, time.Hour)
}

// Retention parses SessionRetention as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) Retention() time.Duration {
	return durationOr(c.SessionRetention, 24*time.Hour)
}

// AuditRetention returns the audit retention horizon as a duration. Returns 90 days if unset or invalid.
func (c *Config) AuditRetention() time.Duration {
	days := c.AuditRetentionDays
	if days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}
