package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"vanish"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"vanish_dev_password"`
	DBName     string `envconfig:"DB_NAME" default:"vanish"`
	JWTSecret  string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`

	// MessageTTL is how long a message stays visible. SweepInterval bounds
	// how long an expired message can linger in storage after a restart.
	MessageTTL    time.Duration `envconfig:"MESSAGE_TTL" default:"1h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`

	// RevealBlockReason controls whether a sender is told that the
	// recipient blocked them, or just that delivery failed.
	RevealBlockReason bool `envconfig:"REVEAL_BLOCK_REASON" default:"true"`

	Debug bool `envconfig:"DEBUG" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
