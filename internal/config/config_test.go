package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "beacon-attendance-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "beacon-attendance-auth")
	}
	if cfg.JWTAudience != "beacon-attendance-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "beacon-attendance-api")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.SessionMaxTTLSeconds != 86400 {
		t.Errorf("SessionMaxTTLSeconds = %d, want 86400", cfg.SessionMaxTTLSeconds)
	}
	if cfg.TelemetryKafkaTopic != "attendance-telemetry" {
		t.Errorf("TelemetryKafkaTopic = %q, want default", cfg.TelemetryKafkaTopic)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("SESSION_MAX_TTL_SECONDS", "3600")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.SessionMaxTTLSeconds != 3600 {
		t.Errorf("SessionMaxTTLSeconds = %d, want 3600", cfg.SessionMaxTTLSeconds)
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail with BCRYPT_COST out of range")
	}
}

func TestLoad_InvalidSessionMaxTTL(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("SESSION_MAX_TTL_SECONDS", "90000")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when SESSION_MAX_TTL_SECONDS exceeds 86400")
	}
}

func TestAccessTTL(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "30m"}
	if got := cfg.AccessTTL(); got != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", got)
	}
	cfg = &Config{JWTAccessTTL: "garbage"}
	if got := cfg.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL fallback = %v, want 15m", got)
	}
}

func TestDetectCooldownDuration(t *testing.T) {
	cfg := &Config{DetectCooldown: "2m"}
	if got := cfg.DetectCooldownDuration(); got != 2*time.Minute {
		t.Errorf("DetectCooldownDuration = %v, want 2m", got)
	}
	cfg = &Config{DetectCooldown: "-5s"}
	if got := cfg.DetectCooldownDuration(); got != 90*time.Second {
		t.Errorf("DetectCooldownDuration fallback = %v, want 90s", got)
	}
}

func TestOrgCodeTable(t *testing.T) {
	cfg := &Config{OrgCodes: "acm:1, ieee:2 ,robotics:3"}
	table, err := cfg.OrgCodeTable()
	if err != nil {
		t.Fatalf("OrgCodeTable: %v", err)
	}
	want := map[string]uint16{"acm": 1, "ieee": 2, "robotics": 3}
	for slug, code := range want {
		if table[slug] != code {
			t.Errorf("table[%q] = %d, want %d", slug, table[slug], code)
		}
	}
}

func TestOrgCodeTable_Empty(t *testing.T) {
	cfg := &Config{OrgCodes: ""}
	table, err := cfg.OrgCodeTable()
	if err != nil {
		t.Fatalf("OrgCodeTable: %v", err)
	}
	if len(table) != 0 {
		t.Errorf("table has %d entries, want 0", len(table))
	}
}

func TestOrgCodeTable_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		codes string
	}{
		{"missing code", "acm"},
		{"zero code", "acm:0"},
		{"negative code", "acm:-1"},
		{"too large", "acm:70000"},
		{"not a number", "acm:one"},
		{"duplicate slug", "acm:1,acm:2"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{OrgCodes: tc.codes}
			if _, err := cfg.OrgCodeTable(); err == nil {
				t.Errorf("OrgCodeTable(%q) should fail", tc.codes)
			}
		})
	}
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	cfg := &Config{TelemetryKafkaBrokers: "localhost:9092, kafka2:9092 ,"}
	got := cfg.TelemetryKafkaBrokersList()
	if len(got) != 2 {
		t.Fatalf("brokers = %v, want 2 entries", got)
	}
	if got[0] != "localhost:9092" || got[1] != "kafka2:9092" {
		t.Errorf("brokers = %v", got)
	}

	cfg = &Config{}
	if got := cfg.TelemetryKafkaBrokersList(); got != nil {
		t.Errorf("empty brokers = %v, want nil", got)
	}
}
