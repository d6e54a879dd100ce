// Package config loads process defaults from the environment. Command-line
// flags take these as their defaults and override them.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Serve holds the environment defaults of `persongraph serve`.
type Serve struct {
	Addr         string `env:"PERSONGRAPH_ADDR" envDefault:":4000"`
	StoreURL     string `env:"PERSONGRAPH_STORE_URL" envDefault:"http://localhost:3000"`
	ReadPolicy   string `env:"PERSONGRAPH_STORE_READ_POLICY" envDefault:"fail-open"`
	LogMode      string `env:"PERSONGRAPH_LOG_MODE" envDefault:"dev"`
	OTelEndpoint string `env:"PERSONGRAPH_OTEL_ENDPOINT"`
}

// RecordStore holds the environment defaults of the dev record store.
type RecordStore struct {
	Addr        string `env:"RECORDSTORE_ADDR" envDefault:":3000"`
	Seed        string `env:"RECORDSTORE_SEED"`
	UniqueNames bool   `env:"RECORDSTORE_UNIQUE_NAMES" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadServe() (Serve, error) {
	var cfg Serve
	err := ParseEnv(&cfg)
	return cfg, err
}

func LoadRecordStore() (RecordStore, error) {
	var cfg RecordStore
	err := ParseEnv(&cfg)
	return cfg, err
}
