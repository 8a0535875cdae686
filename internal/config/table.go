package config

import (
	"card-parlor/internal/game"

	"github.com/caarlos0/env/v11"
)

// TableConfig holds the stakes new games get unless the creator overrides them.
type TableConfig struct {
	SmallBlind    int64 `env:"SMALL_BLIND" envDefault:"10"`
	BigBlind      int64 `env:"BIG_BLIND" envDefault:"20"`
	StartingChips int64 `env:"STARTING_CHIPS" envDefault:"1000"`
}

func LoadTable() (TableConfig, error) {
	var cfg TableConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Game().Validate()
}

func (c TableConfig) Game() game.Config {
	return game.Config{SmallBlind: c.SmallBlind, BigBlind: c.BigBlind, StartingChips: c.StartingChips}
}
