// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionTimeoutMinutes is the sliding inactivity timeout in minutes (default 60).
	// Any gap in activity longer than this revokes the session on the next request.
	SessionTimeoutMinutes int `mapstructure:"SESSION_TIMEOUT_MINUTES"`
	// EnforceEmailVerification rejects bootstrap for identities whose email the
	// provider has not verified.
	EnforceEmailVerification bool `mapstructure:"ENFORCE_EMAIL_VERIFICATION"`
	// RevokedRetentionDays is how long revoked sessions are kept before the
	// reaper purges them (default 7).
	RevokedRetentionDays int `mapstructure:"REVOKED_RETENTION_DAYS"`
	// SessionHistoryLimit caps how many sessions per account the reaper keeps,
	// most recent first (default 100).
	SessionHistoryLimit int `mapstructure:"SESSION_HISTORY_LIMIT"`
	// SessionCookie is the name of the HttpOnly cookie carrying the session id.
	SessionCookie string `mapstructure:"SESSION_COOKIE"`
	// IDTokenCookie is the name of the cookie the identity-provider callback
	// stores the ID token in; bootstrap reads it.
	IDTokenCookie string `mapstructure:"ID_TOKEN_COOKIE"`
	// Env is the application environment (e.g. "development", "production").
	// Controls the Secure flag on the session cookie.
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317).
	// Empty disables telemetry providers (no-op).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// EventsKafkaBrokers is a comma-separated list of Kafka broker addresses.
	// When set, security events (revocations, conflicts, overrides) are emitted.
	EventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for security events.
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
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
	v.SetDefault("SESSION_TIMEOUT_MINUTES", 60)
	v.SetDefault("ENFORCE_EMAIL_VERIFICATION", false)
	v.SetDefault("REVOKED_RETENTION_DAYS", 7)
	v.SetDefault("SESSION_HISTORY_LIMIT", 100)
	v.SetDefault("SESSION_COOKIE", "app_session_id")
	v.SetDefault("ID_TOKEN_COOKIE", "idp_id_token")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "session-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "session-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.SessionTimeoutMinutes <= 0 {
		return nil, errors.New("config: SESSION_TIMEOUT_MINUTES must be positive")
	}
	if cfg.RevokedRetentionDays <= 0 {
		return nil, errors.New("config: REVOKED_RETENTION_DAYS must be positive")
	}
	if cfg.SessionHistoryLimit <= 0 {
		return nil, errors.New("config: SESSION_HISTORY_LIMIT must be positive")
	}
	if cfg.SessionCookie == "" || cfg.IDTokenCookie == "" {
		return nil, errors.New("config: SESSION_COOKIE and ID_TOKEN_COOKIE must be set")
	}

	return &cfg, nil
}

// SessionTimeout returns the sliding inactivity timeout as a time.Duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

// RevokedRetention returns the revoked-session retention window as a time.Duration.
func (c *Config) RevokedRetention() time.Duration {
	return time.Duration(c.RevokedRetentionDays) * 24 * time.Hour
}

// SecureCookies reports whether session cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return c.Env == "production"
}

// EventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event emission is enabled (non-empty list) and to create the producer.
func (c *Config) EventsKafkaBrokersList() []string {
	if c == nil || c.EventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.EventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
