package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	NotifierPostgres = "postgres"
	NotifierRedis    = "redis"
)

type Config struct {
	ServerAddr     string        `env:"ROOMBOARD_ADDR" envDefault:"localhost:8000"`
	DatabaseDSN    string        `env:"ROOMBOARD_DATABASE_DSN"`
	SigningSecret  string        `env:"ROOMBOARD_SIGNING_KEY"`
	SigningKey     []byte        `env:"-"`
	SessionTTL     time.Duration `env:"ROOMBOARD_SESSION_TTL" envDefault:"24h"`
	AllowedOrigins []string      `env:"ROOMBOARD_ALLOWED_ORIGINS" envSeparator:","`
	AdminEmails    []string      `env:"ROOMBOARD_ADMIN_EMAILS" envSeparator:","`
	Games          []string      `env:"ROOMBOARD_GAMES" envSeparator:"," envDefault:"freefire,bgmi"`

	Notifier           string `env:"ROOMBOARD_NOTIFIER" envDefault:"postgres"`
	RedisAddr          string `env:"ROOMBOARD_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisChannelPrefix string `env:"ROOMBOARD_REDIS_CHANNEL_PREFIX" envDefault:"roomboard:"`

	LogLevel  string `env:"ROOMBOARD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ROOMBOARD_LOG_FORMAT" envDefault:"json"`
}

// Load reads envFile, if it exists, into the process environment and then
// parses the ROOMBOARD_* variables. Variables already set take precedence
// over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &cfg, nil
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("signing secret is empty")
	}
	return key, nil
}

// Validate checks required settings and decodes the signing key.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.SigningSecret == "" {
		return fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(c.SigningSecret)
	if err != nil {
		return fmt.Errorf("decode signing secret: %w", err)
	}
	c.SigningKey = signingKey

	switch c.Notifier {
	case NotifierPostgres:
	case NotifierRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty when notifier is %q", NotifierRedis)
		}
	default:
		return fmt.Errorf("unknown notifier %q", c.Notifier)
	}

	if len(c.Games) == 0 {
		return fmt.Errorf("at least one game is required")
	}

	c.AdminEmails = normalizeEmails(c.AdminEmails)
	return nil
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}
