// Package config loads the configuration of the pgfluent command.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent/catalog"
	"github.com/pgfluent/pgfluent/pgcodec"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration. It is loaded from YAML and can be
// overridden by PGFLUENT_* environment variables and command line flags.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig selects the server and the driver used to run queries.
type DatabaseConfig struct {
	// URL is a connection string in URL or keyword/value form. Empty uses the
	// libpq environment variables (PGHOST, PGDATABASE, ...).
	URL string `yaml:"url"`

	// Driver runs queries with "pgx" (pgxpool) or "postgres" (lib/pq through
	// database/sql). The catalog is always read with pgx.
	Driver string `yaml:"driver"`
}

// CatalogConfig controls which types are loaded from the catalog.
type CatalogConfig struct {
	Schemas       []string `yaml:"schemas"`
	TableRowTypes bool     `yaml:"table_row_types"`
	Concurrency   int      `yaml:"concurrency"`

	// Naming is the default enum naming convention, "snake_pascal" or
	// "verbatim".
	Naming string `yaml:"naming"`

	// EnumNaming overrides Naming per enum type.
	EnumNaming map[string]string `yaml:"enum_naming"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Backend string `yaml:"backend"`
}

var (
	drivers  = []string{"pgx", "postgres"}
	backends = []string{"zap", "zerolog", "logrus", "kitlog", "log15"}
)

// Load reads the YAML file at path on top of the defaults. An empty path only
// applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "pgx",
		},
		Catalog: CatalogConfig{
			Concurrency: 1,
			Naming:      "snake_pascal",
		},
		Logging: LoggingConfig{
			Level:   "warn",
			Backend: "zap",
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PGFLUENT_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("PGFLUENT_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("PGFLUENT_SCHEMAS"); v != "" {
		cfg.Catalog.Schemas = strings.Split(v, ",")
	}
	if v := os.Getenv("PGFLUENT_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PGFLUENT_CONCURRENCY: %w", err)
		}
		cfg.Catalog.Concurrency = n
	}
	if v := os.Getenv("PGFLUENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PGFLUENT_LOG_BACKEND"); v != "" {
		cfg.Logging.Backend = v
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if !slices.Contains(drivers, c.Database.Driver) {
		errs = append(errs, fmt.Sprintf("database.driver must be one of %s", strings.Join(drivers, ", ")))
	}
	if c.Catalog.Concurrency < 1 {
		errs = append(errs, "catalog.concurrency must be at least 1")
	}
	if _, ok := pgcodec.NamingConventionByName(c.Catalog.Naming); !ok {
		errs = append(errs, fmt.Sprintf("catalog.naming: unknown naming convention %q", c.Catalog.Naming))
	}
	for typeName, naming := range c.Catalog.EnumNaming {
		if _, ok := pgcodec.NamingConventionByName(naming); !ok {
			errs = append(errs, fmt.Sprintf("catalog.enum_naming.%s: unknown naming convention %q", typeName, naming))
		}
	}
	if _, err := tracelog.LogLevelFromString(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level: %v", err))
	}
	if !slices.Contains(backends, c.Logging.Backend) {
		errs = append(errs, fmt.Sprintf("logging.backend must be one of %s", strings.Join(backends, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LogLevel returns the parsed logging level. The configuration must be valid.
func (c *Config) LogLevel() tracelog.LogLevel {
	level, err := tracelog.LogLevelFromString(c.Logging.Level)
	if err != nil {
		return tracelog.LogLevelWarn
	}
	return level
}

// CatalogOptions translates the catalog section into catalog.Load options.
func (c *Config) CatalogOptions() []catalog.Option {
	var opts []catalog.Option
	if len(c.Catalog.Schemas) > 0 {
		opts = append(opts, catalog.WithSchemas(c.Catalog.Schemas...))
	}
	if c.Catalog.TableRowTypes {
		opts = append(opts, catalog.WithTableRowTypes())
	}
	opts = append(opts, catalog.WithConcurrency(c.Catalog.Concurrency))
	if naming, ok := pgcodec.NamingConventionByName(c.Catalog.Naming); ok {
		opts = append(opts, catalog.WithDefaultNaming(naming))
	}
	for typeName, name := range c.Catalog.EnumNaming {
		if naming, ok := pgcodec.NamingConventionByName(name); ok {
			opts = append(opts, catalog.WithNaming(typeName, naming))
		}
	}
	return opts
}
