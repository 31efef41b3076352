package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// StorePath is the sqlite file backing the client-local store.
	StorePath string `env:"STORE_PATH" envDefault:"orderflow.db"`

	// PreviewDeadline is how long a customer has to react to a preview
	// before it is treated as approved.
	PreviewDeadline time.Duration `env:"PREVIEW_DEADLINE" envDefault:"48h"`

	// PreviewPollInterval is the deadline scheduler's scan period.
	PreviewPollInterval time.Duration `env:"PREVIEW_POLL_INTERVAL" envDefault:"5m"`

	// CaptureURL is the payment-capture coordinator endpoint. Empty means
	// captures are logged instead of sent.
	CaptureURL string `env:"CAPTURE_URL"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
