package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	shutdownSecondsEnvVar = "SHUTDOWN_TIMEOUT_SECONDS"
	minSecretLength       = 32
)

// SMTPConfig holds outbound email settings. An empty Host disables the SMTP channel.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"no-reply@farmlink.local"`
}

// Enabled reports whether enough settings are present to deliver email.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// TwilioConfig holds SMS settings. Missing credentials disable the SMS channel.
type TwilioConfig struct {
	AccountSID string `env:"ACCOUNT_SID"`
	AuthToken  string `env:"AUTH_TOKEN"`
	FromNumber string `env:"FROM_NUMBER"`
}

// Enabled reports whether enough settings are present to deliver SMS.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"FarmLink"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"json"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"10h"`

	OTPTTL             time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPDispatchTimeout time.Duration `env:"OTP_DISPATCH_TIMEOUT" envDefault:"10s"`

	LoginAttemptsPerMinute int `env:"LOGIN_ATTEMPTS_PER_MINUTE" envDefault:"5"`
	OTPAttemptsPerMinute   int `env:"OTP_ATTEMPTS_PER_MINUTE" envDefault:"5"`

	CORSAllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173"`

	SMTP   SMTPConfig   `envPrefix:"SMTP_"`
	Twilio TwilioConfig `envPrefix:"TWILIO_"`

	CreditScoreURL     string        `env:"CREDIT_SCORE_URL" envDefault:"https://creditscoreprediction-2ccj.onrender.com/predict"`
	CreditScoreTimeout time.Duration `env:"CREDIT_SCORE_TIMEOUT" envDefault:"15s"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	if c.CreditScoreTimeout <= 0 {
		return fmt.Errorf("CREDIT_SCORE_TIMEOUT must be positive")
	}
	if c.OTPDispatchTimeout <= 0 {
		return fmt.Errorf("OTP_DISPATCH_TIMEOUT must be positive")
	}
	if !c.IsDev() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
		}
	}
	return nil
}

// IsDev reports whether the application runs in a local development mode.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
