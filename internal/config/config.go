// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "beacon-attendance-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "beacon-attendance-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OrgCodes maps organization slugs to beacon org codes, as "slug:code" pairs
	// separated by commas (e.g. "acm:1,ieee:2,robotics:3"). The table is assigned
	// out of band; a slug missing from it resolves to code 0 ("do not trust").
	OrgCodes string `mapstructure:"ORG_CODES"`
	// SessionMaxTTLSeconds caps createSession TTLs. Default 86400 (one day).
	SessionMaxTTLSeconds int `mapstructure:"SESSION_MAX_TTL_SECONDS"`
	// DetectCooldown is how long an unresolved beacon sighting is cached before
	// being dropped (e.g. "90s"). Must cover the worst-case org-context load time;
	// too short a window silently drops valid beacons seen before the org is known.
	DetectCooldown string `mapstructure:"DETECT_COOLDOWN"`

	// Telemetry (optional). When Kafka brokers are set, the server emits events to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of broker addresses.
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317). Empty disables OTel export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
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
	v.SetDefault("JWT_ISSUER", "beacon-attendance-auth")
	v.SetDefault("JWT_AUDIENCE", "beacon-attendance-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("ORG_CODES", "")
	v.SetDefault("SESSION_MAX_TTL_SECONDS", 86400)
	v.SetDefault("DETECT_COOLDOWN", "90s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "attendance-telemetry")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "attendance-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.SessionMaxTTLSeconds <= 0 || cfg.SessionMaxTTLSeconds > 86400 {
		return nil, errors.New("config: SESSION_MAX_TTL_SECONDS must be in (0, 86400]")
	}

	if _, err := cfg.OrgCodeTable(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// DetectCooldownDuration parses DetectCooldown. Returns 90s if unset or invalid.
func (c *Config) DetectCooldownDuration() time.Duration {
	d, err := time.ParseDuration(c.DetectCooldown)
	if err != nil || d <= 0 {
		return 90 * time.Second
	}
	return d
}

// OrgCodeTable parses ORG_CODES into a slug → code map. Codes must be positive
// 16-bit integers; 0 is reserved for unknown organizations and may not be assigned.
func (c *Config) OrgCodeTable() (map[string]uint16, error) {
	table := make(map[string]uint16)
	if c == nil || strings.TrimSpace(c.OrgCodes) == "" {
		return table, nil
	}
	for _, pair := range strings.Split(c.OrgCodes, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		slug, codeStr, ok := strings.Cut(pair, ":")
		slug = strings.TrimSpace(slug)
		codeStr = strings.TrimSpace(codeStr)
		if !ok || slug == "" || codeStr == "" {
			return nil, fmt.Errorf("config: ORG_CODES entry %q must be slug:code", pair)
		}
		code, err := strconv.ParseUint(codeStr, 10, 16)
		if err != nil || code == 0 {
			return nil, fmt.Errorf("config: ORG_CODES entry %q has invalid code (must be 1–65535)", pair)
		}
		if _, dup := table[slug]; dup {
			return nil, fmt.Errorf("config: ORG_CODES has duplicate slug %q", slug)
		}
		table[slug] = uint16(code)
	}
	return table, nil
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
