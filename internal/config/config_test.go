package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if cfg.OTPTTL != 10*time.Minute {
		t.Fatalf("expected 10m otp ttl, got %s", cfg.OTPTTL)
	}
	if cfg.ShutdownPeriod != 10*time.Second {
		t.Fatalf("expected 10s shutdown, got %s", cfg.ShutdownPeriod)
	}
	if cfg.SMTP.Enabled() || cfg.Twilio.Enabled() {
		t.Fatalf("expected notification channels disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_FROM_NUMBER", "+15005550006")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.Address())
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lowercased log level, got %s", cfg.LogLevel)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("expected 3s shutdown, got %s", cfg.ShutdownPeriod)
	}
	if !cfg.SMTP.Enabled() || cfg.SMTP.Port != 587 {
		t.Fatalf("unexpected smtp config: %+v", cfg.SMTP)
	}
	if !cfg.Twilio.Enabled() {
		t.Fatalf("expected twilio enabled")
	}
}

func TestLoadRejectsMissingOrShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing secret")
	}

	t.Setenv("JWT_SECRET", "short")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "at least") {
		t.Fatalf("expected length error, got %v", err)
	}
}

func TestLoadRequiresBackendsOutsideDev(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected database error, got %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/farmlink")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "REDIS_URL") {
		t.Fatalf("expected redis error, got %v", err)
	}

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadInvalidShutdownSeconds(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid shutdown seconds")
	}
}

func TestLoadRejectsNonPositiveTimeouts(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CREDIT_SCORE_TIMEOUT", "0s")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CREDIT_SCORE_TIMEOUT") {
		t.Fatalf("expected credit score timeout error, got %v", err)
	}

	t.Setenv("CREDIT_SCORE_TIMEOUT", "5s")
	t.Setenv("OTP_DISPATCH_TIMEOUT", "-1s")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "OTP_DISPATCH_TIMEOUT") {
		t.Fatalf("expected dispatch timeout error, got %v", err)
	}
}
