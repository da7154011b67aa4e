package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	// TokenSecret signs the session capability tokens.
	TokenSecret string        `envconfig:"TOKEN_SECRET" required:"true"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"8h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// Login attempts per username, token-bucket shaped.
	LoginRate  float64 `envconfig:"LOGIN_RATE" default:"5"`
	LoginBurst int     `envconfig:"LOGIN_BURST" default:"10"`

	MigrationsFile string `envconfig:"MIGRATIONS_FILE" default:"db/migrations/001_init.sql"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
