// Package config loads coachdesk settings from defaults, an optional YAML
// file and COACHDESK_* environment variables, in that order of priority.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names before they are mapped to config keys.
// COACHDESK_EMAIL__RESEND_KEY maps to email.resend_key.
const EnvPrefix = "COACHDESK_"

// PathEnvVar overrides the config file location.
const PathEnvVar = "COACHDESK_CONFIG"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{"config.yaml", "config.yml", "/etc/coachdesk/config.yaml"}

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ErrServerConfiguration marks missing or invalid required configuration.
var ErrServerConfiguration = errors.New("server configuration error")

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Email      EmailConfig      `koanf:"email"`
	Invitation InvitationConfig `koanf:"invitation"`
	Outbox     OutboxConfig     `koanf:"outbox"`
	Breaker    BreakerConfig    `koanf:"breaker"`
	Logging    LoggingConfig    `koanf:"logging"`
	Admin      AdminConfig      `koanf:"admin"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr               string        `koanf:"addr" validate:"required"`
	Env                string        `koanf:"env" validate:"oneof=development production test"`
	CSRFKey            string        `koanf:"csrf_key" validate:"omitempty,hexadecimal,len=64"`
	TrustedOrigins     []string      `koanf:"trusted_origins"`
	RateLimitPerSecond int           `koanf:"rate_limit_per_second" validate:"gte=1"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path        string `koanf:"path" validate:"required"`
	SlowQueryMs int    `koanf:"slow_query_ms" validate:"gte=1"`
	MaxOpenConn int    `koanf:"max_open_conns" validate:"gte=1"`
}

// EmailConfig holds outbound email settings.
type EmailConfig struct {
	ResendKey  string `koanf:"resend_key"`
	From       string `koanf:"from" validate:"required"`
	ReplyTo    string `koanf:"reply_to" validate:"omitempty,email"`
	AppBaseURL string `koanf:"app_base_url" validate:"required,url"`
}

// InvitationConfig holds invitation lifetime and sweep settings.
type InvitationConfig struct {
	TTL           time.Duration `koanf:"ttl" validate:"gt=0"`
	SweepSchedule string        `koanf:"sweep_schedule" validate:"required"`
}

// OutboxConfig holds outbox worker settings.
type OutboxConfig struct {
	Interval    time.Duration `koanf:"interval" validate:"gt=0"`
	BatchSize   int           `koanf:"batch_size" validate:"gte=1,lte=500"`
	MaxAttempts int           `koanf:"max_attempts" validate:"gte=1"`
}

// BreakerConfig tunes the circuit breaker in front of the email provider.
type BreakerConfig struct {
	MaxFailures uint32        `koanf:"max_failures" validate:"gte=1"`
	OpenTimeout time.Duration `koanf:"open_timeout" validate:"gt=0"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// AdminConfig seeds the first admin account and, outside production, demo accounts.
type AdminConfig struct {
	Email    string `koanf:"email" validate:"omitempty,email"`
	Password string `koanf:"password"`
	SeedDemo bool   `koanf:"seed_demo"`
}

// Default returns the configuration used before any file or environment overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:               ":8080",
			Env:                EnvDevelopment,
			TrustedOrigins:     []string{"localhost:8080", "127.0.0.1:8080"},
			RateLimitPerSecond: 10,
			ShutdownTimeout:    10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        "coachdesk.db",
			SlowQueryMs: 50,
			MaxOpenConn: 25,
		},
		Email: EmailConfig{
			From:       "Coachdesk <noreply@coachdesk.app>",
			AppBaseURL: "http://localhost:8080",
		},
		Invitation: InvitationConfig{
			TTL:           7 * 24 * time.Hour,
			SweepSchedule: "@every 15m",
		},
		Outbox: OutboxConfig{
			Interval:    time.Minute,
			BatchSize:   10,
			MaxAttempts: 5,
		},
		Breaker: BreakerConfig{
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration. A .env file in the working directory is applied to the
// process environment first when present.
// PRE: none
// POST: Returns a validated Config or an error wrapping ErrServerConfiguration
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	// Comma-separated lists arrive from env as a single string.
	if raw := k.String("server.trusted_origins"); raw != "" && !strings.HasPrefix(raw, "[") {
		_ = k.Set("server.trusted_origins", splitList(raw))
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and production-only requirements.
// PRE: none
// POST: Returns nil or an error wrapping ErrServerConfiguration
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrServerConfiguration, err)
	}
	if c.IsProduction() {
		if c.Server.CSRFKey == "" {
			return fmt.Errorf("%w: server.csrf_key is required in production", ErrServerConfiguration)
		}
		if c.Email.ResendKey == "" {
			return fmt.Errorf("%w: email.resend_key is required in production", ErrServerConfiguration)
		}
		if c.Admin.SeedDemo {
			return fmt.Errorf("%w: admin.seed_demo is not allowed in production", ErrServerConfiguration)
		}
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// CSRFKeyBytes decodes the hex CSRF key. An empty key yields nil.
func (c Config) CSRFKeyBytes() ([]byte, error) {
	if c.Server.CSRFKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Server.CSRFKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("%w: server.csrf_key must be 64 hex characters", ErrServerConfiguration)
	}
	return key, nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKey maps COACHDESK_SERVER__RATE_LIMIT_PER_SECOND to server.rate_limit_per_second.
func envKey(name string) string {
	if name == PathEnvVar {
		return ""
	}
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(name, "__", ".")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
