package config

import "github.com/caarlos0/env/v11"

// TestConfig points integration tests at real backing services. Tests that
// need one skip when it is empty.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN"`
	TestRedisAddr   string `env:"TEST_REDIS_ADDR"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
