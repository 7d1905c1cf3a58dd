// Package config loads server settings from CLUBHOUSE_* environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "CLUBHOUSE_"

// Config holds settings read once at startup.
type Config struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	DBPath          string        `env:"DB_PATH" envDefault:"clubhouse.db"`
	Env             string        `env:"ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT"` // json or text; json in production when unset
	CSRFKeyHex      string        `env:"CSRF_KEY"`
	SecureCookies   bool          `env:"SECURE_COOKIES"`
	TrustedOrigins  []string      `env:"TRUSTED_ORIGINS" envSeparator:","`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	RateLimit       float64       `env:"RATE_LIMIT" envDefault:"10"`
	RateBurst       int           `env:"RATE_BURST" envDefault:"20"`
	SlowRequest     time.Duration `env:"SLOW_REQUEST" envDefault:"200ms"`
	SlowQuery       time.Duration `env:"SLOW_QUERY" envDefault:"100ms"`
	Timezone        string        `env:"TIMEZONE" envDefault:"UTC"`
	AdminEmail      string        `env:"ADMIN_EMAIL"`
	AdminPassword   string        `env:"ADMIN_PASSWORD"`
	ResendKey       string        `env:"RESEND_KEY"`
	EmailFrom       string        `env:"EMAIL_FROM" envDefault:"Clubhouse <noreply@clubhouse.local>"`
	EmailReplyTo    string        `env:"EMAIL_REPLY_TO"`
	OutboxWorker    bool          `env:"OUTBOX_WORKER" envDefault:"true"`
	OutboxInterval  time.Duration `env:"OUTBOX_INTERVAL" envDefault:"1m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	csrfKey  []byte
	location *time.Location
}

// Load reads an optional dotenv file, then the environment.
// Variables already set in the environment win over the file.
// PRE: dotenv may name a missing file
// POST: the returned Config passed Validate
func Load(dotenv string) (Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	return FromEnv()
}

// FromEnv parses the environment without touching dotenv files.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings and derives the CSRF key and location.
// Outside production a missing CSRF key is replaced by a random one.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogFormat {
	case "":
		c.LogFormat = "text"
		if c.IsProduction() {
			c.LogFormat = "json"
		}
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("%sLOG_FORMAT must be json or text, got %q", Prefix, c.LogFormat))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch {
	case c.CSRFKeyHex != "":
		key, err := hex.DecodeString(c.CSRFKeyHex)
		if err != nil || len(key) != 32 {
			errs = append(errs, fmt.Errorf("%sCSRF_KEY must be 64 hex characters", Prefix))
		}
		c.csrfKey = key
	case c.IsProduction():
		errs = append(errs, fmt.Errorf("%sCSRF_KEY is required in production", Prefix))
	default:
		c.csrfKey = make([]byte, 32)
		if _, err := rand.Read(c.csrfKey); err != nil {
			errs = append(errs, fmt.Errorf("generate csrf key: %w", err))
		}
		slog.Warn("config_event", "event", "csrf_key_generated", "env", c.Env)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("%sTIMEZONE: %w", Prefix, err))
	}
	c.location = loc

	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		errs = append(errs, fmt.Errorf("%sRATE_LIMIT and %sRATE_BURST must be positive", Prefix, Prefix))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%sSESSION_TTL must be positive", Prefix))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, fmt.Errorf("%sADMIN_EMAIL and %sADMIN_PASSWORD must be set together", Prefix, Prefix))
	}
	if c.IsProduction() && !c.SecureCookies {
		slog.Warn("config_event", "event", "insecure_cookies_in_production")
	}
	return errors.Join(errs...)
}

// IsProduction reports whether CLUBHOUSE_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// CSRFKey returns the 32-byte CSRF authentication key.
func (c Config) CSRFKey() []byte {
	return c.csrfKey
}

// Location returns the club clock used for check-in timing.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%sLOG_LEVEL: %w", Prefix, err)
	}
	return level, nil
}
