package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent"
	"github.com/pgfluent/pgfluent/catalog"
	"github.com/pgfluent/pgfluent/internal/config"
	"github.com/pgfluent/pgfluent/pgcodec"
	"github.com/spf13/cobra"

	_ "github.com/lib/pq"
)

var (
	configPath string
	dbURL      string
	driver     string
	logLevel   string
	logBackend string
	offline    bool

	cfg    *config.Config
	logger tracelog.Logger
)

var RootCmd = &cobra.Command{
	Use:   "pgfluent",
	Short: "PostgreSQL type registry and query tool",
	Long: `pgfluent reads the type catalog of a PostgreSQL database and uses it to
expand query parameters and decode results.

Commands:
  types    List the types of the registry
  decode   Decode a text literal of a type
  expand   Expand the parameters of a query
  query    Run a query and print the decoded rows

Use "pgfluent [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML configuration file (env: PGFLUENT_CONFIG)")
	RootCmd.PersistentFlags().StringVar(&dbURL, "url", "", "Connection string (env: PGFLUENT_DATABASE_URL, libpq PG* variables)")
	RootCmd.PersistentFlags().StringVar(&driver, "driver", "pgx", "Driver used to run queries: pgx or postgres (env: PGFLUENT_DRIVER)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: trace, debug, info, warn, error or none (env: PGFLUENT_LOG_LEVEL)")
	RootCmd.PersistentFlags().StringVar(&logBackend, "log-backend", "zap", "Logger: zap, zerolog, logrus, kitlog or log15 (env: PGFLUENT_LOG_BACKEND)")
	RootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use the builtin types instead of reading the catalog")

	RootCmd.AddCommand(TypesCmd)
	RootCmd.AddCommand(DecodeCmd)
	RootCmd.AddCommand(ExpandCmd)
	RootCmd.AddCommand(QueryCmd)
}

// setup loads the configuration. Flags that were set explicitly take
// precedence over the file and the environment.
func setup(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		path = os.Getenv("PGFLUENT_CONFIG")
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		loaded.Database.URL = dbURL
	}
	if flags.Changed("driver") {
		loaded.Database.Driver = driver
	}
	if flags.Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if flags.Changed("log-backend") {
		loaded.Logging.Backend = logBackend
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	l, err := newLogger(loaded.Logging.Backend, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg, logger = loaded, l
	return nil
}

// connect opens a pool that logs every query through the configured logger.
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   logger,
		LogLevel: cfg.LogLevel(),
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

// loadRegistry returns the builtin registry when offline and reads the catalog
// through pool otherwise.
func loadRegistry(ctx context.Context, pool *pgxpool.Pool) (*pgcodec.Registry, error) {
	if offline || pool == nil {
		return pgcodec.NewBuilder().WithBuiltins().Build()
	}

	opts := append(cfg.CatalogOptions(), catalog.WithLogger(logger, cfg.LogLevel()))
	return catalog.Load(ctx, pool, opts...)
}

// session is an open connection with its registry. close must be called when
// the command finishes.
type session struct {
	pool     *pgxpool.Pool
	sqlDB    *sql.DB
	registry *pgcodec.Registry
}

func openSession(ctx context.Context, needDB bool) (*session, error) {
	s := &session{}
	if needDB || !offline {
		pool, err := connect(ctx)
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}

	registry, err := loadRegistry(ctx, s.pool)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("loading type registry: %w", err)
	}
	s.registry = registry
	return s, nil
}

// db returns a pgfluent.DB using the configured driver.
func (s *session) db() (*pgfluent.DB, error) {
	opts := []pgfluent.Option{pgfluent.WithLogger(logger), pgfluent.WithLogLevel(cfg.LogLevel())}

	switch cfg.Database.Driver {
	case "postgres":
		sqlDB, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		s.sqlDB = sqlDB
		return pgfluent.New(pgfluent.SQL(sqlDB), s.registry, opts...), nil
	default:
		return pgfluent.New(pgfluent.Pgx(s.pool), s.registry, opts...), nil
	}
}

func (s *session) close() {
	if s.sqlDB != nil {
		s.sqlDB.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
