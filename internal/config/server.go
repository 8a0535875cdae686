package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	// PostgresDSN and RedisAddr are optional; without them games live in memory
	// and broadcasts stay in this process.
	PostgresDSN string `env:"POSTGRES_DSN"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"REDIS_KEY_PREFIX" envDefault:"card-parlor"`
	SnapshotTTL   time.Duration `env:"SNAPSHOT_CACHE_TTL" envDefault:"10m"`

	SubscriberBuffer int           `env:"SUBSCRIBER_BUFFER" envDefault:"64"`
	HeartbeatEvery   time.Duration `env:"STREAM_HEARTBEAT" envDefault:"15s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
