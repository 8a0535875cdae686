package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Server ServerConfig
	Table  TableConfig
	Log    LogConfig
}

// LoadApp reads the process environment, after filling gaps from an optional
// .env file in the working directory.
func LoadApp() (AppConfig, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return AppConfig{}, err
	}
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	tableCfg, err := LoadTable()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Table:  tableCfg,
		Log:    logCfg,
	}, nil
}

// LoadDotEnv never overrides variables that are already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
