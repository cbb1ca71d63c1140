package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level erpledger.yaml configuration.
type Config struct {
	Tenant   string         `yaml:"tenant" env:"ERPLEDGER_TENANT" env-default:"default"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Events   EventsConfig   `yaml:"events"`
	Cache    CacheConfig    `yaml:"cache"`
	Autopost AutopostConfig `yaml:"autopost"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig selects the store. For sqlite only Name is used; an empty
// Name means a private in-memory database.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"ERPLEDGER_DATABASE_DRIVER" env-default:"sqlite"`
	Name     string `yaml:"name" env:"ERPLEDGER_DATABASE_NAME" env-default:"erpledger.db"`
	Host     string `yaml:"host,omitempty" env:"ERPLEDGER_DATABASE_HOST" env-default:"localhost"`
	Port     string `yaml:"port,omitempty" env:"ERPLEDGER_DATABASE_PORT" env-default:"5432"`
	Username string `yaml:"username,omitempty" env:"ERPLEDGER_DATABASE_USERNAME" env-default:"postgres"`
	Password string `yaml:"password,omitempty" env:"ERPLEDGER_DATABASE_PASSWORD"`
	SSLMode  string `yaml:"sslmode,omitempty" env:"ERPLEDGER_DATABASE_SSLMODE" env-default:"disable"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"ERPLEDGER_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"ERPLEDGER_LOG_FORMAT" env-default:"console"` // console | json
}

// EventsConfig controls journal.posted notifications. An empty AMQPURL logs
// events instead of publishing them.
type EventsConfig struct {
	AMQPURL        string        `yaml:"amqp_url,omitempty" env:"ERPLEDGER_AMQP_URL"`
	Exchange       string        `yaml:"exchange" env:"ERPLEDGER_EVENTS_EXCHANGE" env-default:"erp_events"`
	BufferSize     int           `yaml:"buffer_size" env:"ERPLEDGER_EVENTS_BUFFER" env-default:"1024"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"ERPLEDGER_EVENTS_TIMEOUT" env-default:"5s"`
}

// CacheConfig controls the chart-of-accounts tree cache.
type CacheConfig struct {
	TreeTTL  time.Duration `yaml:"tree_ttl" env:"ERPLEDGER_CACHE_TREE_TTL" env-default:"1h"`
	TreeSize int           `yaml:"tree_size" env:"ERPLEDGER_CACHE_TREE_SIZE" env-default:"256"`
}

// MetricsConfig controls the Prometheus endpoint served by long-running
// commands. An empty ListenAddr serves nothing.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr,omitempty" env:"ERPLEDGER_METRICS_ADDR"`
	Path       string `yaml:"path" env:"ERPLEDGER_METRICS_PATH" env-default:"/metrics"`
}

// AutopostConfig maps inventory movements to GL accounts.
type AutopostConfig struct {
	InventoryAccount   string `yaml:"inventory_account" env-default:"1130"`
	GRNClearingAccount string `yaml:"grn_clearing_account" env-default:"2100"`
	COGSAccount        string `yaml:"cogs_account" env-default:"5100"`
	UnitCost           string `yaml:"unit_cost" env-default:"10"`
	Queue              string `yaml:"queue" env-default:"finance_posting_queue"`
}

// Load reads an erpledger.yaml file and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return &cfg, nil
}

// LoadEnv builds a Config from defaults and environment variables only.
func LoadEnv() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return &cfg, nil
}

// LoadOrEnv loads path when it exists and falls back to LoadEnv otherwise.
func LoadOrEnv(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return LoadEnv()
	}
	return Load(path)
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(tenant, dbName string) *Config {
	return &Config{
		Tenant: tenant,
		Database: DatabaseConfig{
			Driver: "sqlite",
			Name:   dbName,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Events: EventsConfig{
			Exchange:       "erp_events",
			BufferSize:     1024,
			PublishTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			TreeTTL:  time.Hour,
			TreeSize: 256,
		},
		Autopost: AutopostConfig{
			InventoryAccount:   "1130",
			GRNClearingAccount: "2100",
			COGSAccount:        "5100",
			UnitCost:           "10",
			Queue:              "finance_posting_queue",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}
