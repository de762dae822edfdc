// Package config provides loader configuration read from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all loader configuration.
// Values come from an optional YAML file (CONFIG_FILE) and environment variables;
// environment variables always win. Secrets only come from the environment.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Watch    WatchConfig    `yaml:"watch"`
	Loader   LoaderConfig   `yaml:"loader"`
	Log      LogConfig      `yaml:"log"`
	Status   StatusConfig   `yaml:"status"`
	S3       S3Config       `yaml:"s3"`
}

// DatabaseConfig holds connection settings for the sales database.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DB_DRIVER" env-default:"mysql"` // mysql, postgres or sqlite
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"0"` // 0 = driver default
	User            string        `yaml:"user" env:"DB_USER" env-default:"root"`
	Password        string        `yaml:"-" env:"DB_PASSWORD"`
	Name            string        `yaml:"name" env:"DB_NAME" env-default:"vendas"`
	SSLMode         string        `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"disable"`
	Debug           bool          `yaml:"debug" env:"DB_DEBUG" env-default:"false"`
	ConnectAttempts uint64        `yaml:"connect_attempts" env:"DB_CONNECT_ATTEMPTS" env-default:"5"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"30s"`
}

// WatchConfig holds polling-mode settings.
type WatchConfig struct {
	Dir             string        `yaml:"dir" env:"WATCH_DIR" env-default:"./bucket-trusted"`
	ProcessedSubdir string        `yaml:"processed_subdir" env:"WATCH_PROCESSED_SUBDIR" env-default:"processados"`
	FailedSubdir    string        `yaml:"failed_subdir" env:"WATCH_FAILED_SUBDIR" env-default:"falhas"`
	PollInterval    time.Duration `yaml:"poll_interval" env:"WATCH_POLL_INTERVAL" env-default:"10s"`
	Suffix          string        `yaml:"suffix" env:"WATCH_SUFFIX" env-default:".csv"`
	// MaxAttempts caps consecutive failed ticks per file before it is moved to
	// FailedSubdir. Zero keeps failed files in place forever.
	MaxAttempts int `yaml:"max_attempts" env:"WATCH_MAX_ATTEMPTS" env-default:"0"`
}

// JunctionPolicy selects what happens when a product-characteristic junction is missing.
type JunctionPolicy string

const (
	// JunctionProvision inserts the missing junction row and continues.
	JunctionProvision JunctionPolicy = "provision"
	// JunctionStrict fails the file, matching the legacy loader.
	JunctionStrict JunctionPolicy = "strict"
)

// HeaderDedup selects the key used to collapse rows into Saida headers.
type HeaderDedup string

const (
	// DedupTuple keys headers on (order number, date, price, discount).
	DedupTuple HeaderDedup = "tuple"
	// DedupOrder keys headers on the order number alone.
	DedupOrder HeaderDedup = "order"
)

// LoaderConfig holds pipeline behaviour toggles and the fixed codes stamped on headers.
type LoaderConfig struct {
	JunctionPolicy    JunctionPolicy `yaml:"junction_policy" env:"JUNCTION_POLICY" env-default:"provision"`
	HeaderDedup       HeaderDedup    `yaml:"header_dedup" env:"HEADER_DEDUP" env-default:"tuple"`
	CompanyID         uint           `yaml:"company_id" env:"FIXED_COMPANY_ID" env-default:"1"`
	SaleTypeID        uint           `yaml:"sale_type_id" env:"FIXED_SALE_TYPE_ID" env-default:"1"`
	StatusID          uint           `yaml:"status_id" env:"FIXED_STATUS_ID" env-default:"1"`
	DefaultQuantity   int            `yaml:"default_quantity" env:"DEFAULT_QUANTITY" env-default:"1"`
	Encoding          string         `yaml:"encoding" env:"CSV_ENCODING" env-default:"utf-8"` // utf-8 or latin1
	ReferenceCacheTTL time.Duration  `yaml:"reference_cache_ttl" env:"REFERENCE_CACHE_TTL" env-default:"5m"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"` // json or console
}

// StatusConfig holds the optional status HTTP server settings.
type StatusConfig struct {
	Addr string `yaml:"addr" env:"STATUS_ADDR" env-default:""` // empty disables the server
}

// S3Config holds event-mode settings.
type S3Config struct {
	Region string `yaml:"region" env:"AWS_REGION" env-default:""`
}

// ProcessedDir returns the directory successfully loaded files are moved to.
func (w WatchConfig) ProcessedDir() string {
	return filepath.Join(w.Dir, w.ProcessedSubdir)
}

// FailedDir returns the dead-letter directory.
func (w WatchConfig) FailedDir() string {
	return filepath.Join(w.Dir, w.FailedSubdir)
}

// DSN returns the driver-specific connection string.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		port := d.Port
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "sqlite":
		return d.Name
	default:
		port := d.Port
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=Local",
			d.User, d.Password, d.Host, port, d.Name,
		)
	}
}

// Load reads configuration from CONFIG_FILE (if set) and the environment, then validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum-like fields and numeric bounds.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: must be mysql, postgres or sqlite", c.Database.Driver)
	}
	switch c.Loader.JunctionPolicy {
	case JunctionProvision, JunctionStrict:
	default:
		return fmt.Errorf("invalid JUNCTION_POLICY %q: must be provision or strict", c.Loader.JunctionPolicy)
	}
	switch c.Loader.HeaderDedup {
	case DedupTuple, DedupOrder:
	default:
		return fmt.Errorf("invalid HEADER_DEDUP %q: must be tuple or order", c.Loader.HeaderDedup)
	}
	switch strings.ToLower(c.Loader.Encoding) {
	case "utf-8", "utf8", "latin1", "iso-8859-1":
	default:
		return fmt.Errorf("invalid CSV_ENCODING %q: must be utf-8 or latin1", c.Loader.Encoding)
	}
	if c.Loader.DefaultQuantity < 1 {
		return fmt.Errorf("DEFAULT_QUANTITY must be at least 1, got %d", c.Loader.DefaultQuantity)
	}
	if c.Watch.PollInterval <= 0 {
		return fmt.Errorf("WATCH_POLL_INTERVAL must be positive, got %s", c.Watch.PollInterval)
	}
	if c.Watch.MaxAttempts < 0 {
		return fmt.Errorf("WATCH_MAX_ATTEMPTS must not be negative, got %d", c.Watch.MaxAttempts)
	}
	return nil
}
