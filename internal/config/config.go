package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	ServerAddr          string        `env:"ADDR" envDefault:":5000"`
	StoreDriver         string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseDSN         string        `env:"DATABASE_DSN" envDefault:"host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"`
	MongoURI            string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase       string        `env:"MONGO_DATABASE" envDefault:"vicharmanthan"`
	JWTSecret           string        `env:"JWT_SECRET"`
	AllowedOrigins      []string      `env:"CLIENT_URL" envSeparator:"," envDefault:"http://localhost:3000"`
	RedisAddr           string        `env:"REDIS_ADDR"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`
	PresenceTTL         time.Duration `env:"PRESENCE_TTL" envDefault:"2m"`
	NatsURL             string        `env:"NATS_URL"`
	NotificationSubject string        `env:"NATS_NOTIFICATION_SUBJECT" envDefault:"notifications.created"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	SendQueueSize       int           `env:"SEND_QUEUE_SIZE" envDefault:"256"`

	// SigningKey is the decoded JWTSecret, populated by Validate.
	SigningKey []byte `env:"-"`
}

// FromEnv loads configuration from environment variables, applying defaults.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

// Validate checks the settings required to serve and decodes the signing secret.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("database DSN cannot be empty")
		}
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("mongo URI and database cannot be empty")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(c.JWTSecret)
	if err != nil {
		return fmt.Errorf("decode signing secret: %w", err)
	}
	c.SigningKey = signingKey

	if c.SendQueueSize <= 0 {
		return fmt.Errorf("send queue size must be positive")
	}

	if c.RedisAddr != "" && c.PresenceTTL <= 0 {
		return fmt.Errorf("presence TTL must be positive when redis is enabled")
	}

	return nil
}
