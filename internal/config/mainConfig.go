// Package config main config
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v7"
	"github.com/joho/godotenv"
)

// storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// quote sources
const (
	QuoteSim   = "sim"
	QuoteRedis = "redis"
	QuoteGRPC  = "grpc"
)

// MainConfig with init data
type MainConfig struct {
	PostgresPort     string `env:"POSTGRES_PORT,notEmpty" envDefault:"5432"`
	PostgresHost     string `env:"POSTGRES_HOST,notEmpty" envDefault:"localhost"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,notEmpty" envDefault:"postgres"`
	PostgresUser     string `env:"POSTGRES_USER,notEmpty" envDefault:"postgres"`
	PostgresDB       string `env:"POSTGRES_DB,notEmpty" envDefault:"postgres"`
	Storage          string `env:"STORAGE,notEmpty" envDefault:"postgres"`

	Port string `env:"PORT,notEmpty" envDefault:"5000"`
	Host string `env:"HOST,notEmpty" envDefault:"localhost"`

	QuoteSource   string `env:"QUOTE_SOURCE,notEmpty" envDefault:"sim"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	PriceServicePort string `env:"PRICE_SERVICE_PORT,notEmpty" envDefault:"4000"`
	PriceServiceHost string `env:"PRICE_SERVICE_HOST,notEmpty" envDefault:"localhost"`

	NatsURL string `env:"NATS_URL"`

	InstrumentsFile string `env:"INSTRUMENTS_FILE"`

	QuoteTimeout time.Duration `env:"QUOTE_TIMEOUT" envDefault:"2s"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	LockTimeout  time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`
	MarkInterval time.Duration `env:"MARK_INTERVAL" envDefault:"1s"`
	SimInterval  time.Duration `env:"SIM_INTERVAL" envDefault:"500ms"`
	SimSeed      uint64        `env:"SIM_SEED" envDefault:"0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// NewMainConfig parsing config from environment, a .env file is loaded first when present
func NewMainConfig() (*MainConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config - NewMainConfig - Load: %w", err)
	}

	mainConfig := &MainConfig{}

	err := env.Parse(mainConfig)
	if err != nil {
		return nil, fmt.Errorf("config - NewMainConfig - Parse: %w", err)
	}
	if err = mainConfig.validate(); err != nil {
		return nil, fmt.Errorf("config - NewMainConfig - validate: %w", err)
	}

	return mainConfig, nil
}

// PostgresURL connection string
func (c *MainConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

// PriceServiceAddr grpc target of the price service
func (c *MainConfig) PriceServiceAddr() string {
	return fmt.Sprintf("%s:%s", c.PriceServiceHost, c.PriceServicePort)
}

func (c *MainConfig) validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	switch c.QuoteSource {
	case QuoteSim, QuoteRedis, QuoteGRPC:
	default:
		return fmt.Errorf("unknown QUOTE_SOURCE %q", c.QuoteSource)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	for name, d := range map[string]time.Duration{
		"QUOTE_TIMEOUT": c.QuoteTimeout,
		"STORE_TIMEOUT": c.StoreTimeout,
		"LOCK_TIMEOUT":  c.LockTimeout,
		"MARK_INTERVAL": c.MarkInterval,
		"SIM_INTERVAL":  c.SimInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
