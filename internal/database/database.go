// Package database opens SQL connections for the database output and
// classifies driver errors.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/marulkan/fluent-bit/internal/logger"
)

// DriverPostgres is the default driver name.
const DriverPostgres = "postgres"

const defaultConnectTimeout = 10 * time.Second

// ErrMissingConnectionString is returned when neither a connection string
// nor a reference to one is configured.
var ErrMissingConnectionString = errors.New("connection string is required")

// Config describes a connection pool.
type Config struct {
	// ConnectionString is the DSN; ${VAR} references are expanded from the environment
	ConnectionString string
	// ConnectionStringRef names an environment variable holding the DSN
	ConnectionStringRef string
	// Driver defaults to DriverPostgres
	Driver string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectTimeout bounds the initial ping
	ConnectTimeout time.Duration
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envRef.FindStringSubmatch(m)[1])
	})
}

// ResolveConnectionString returns the DSN for cfg.
func ResolveConnectionString(cfg Config) (string, error) {
	dsn := cfg.ConnectionString
	if dsn == "" && cfg.ConnectionStringRef != "" {
		dsn = os.Getenv(cfg.ConnectionStringRef)
		if dsn == "" {
			return "", fmt.Errorf("%w: environment variable %s is empty", ErrMissingConnectionString, cfg.ConnectionStringRef)
		}
	}
	if dsn == "" {
		return "", ErrMissingConnectionString
	}
	return ExpandEnv(dsn), nil
}

// Open opens and pings a connection pool. It returns the driver name used.
func Open(cfg Config) (*sql.DB, string, error) {
	dsn, err := ResolveConnectionString(cfg)
	if err != nil {
		return nil, "", err
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, driver, NewConnectionError("opening database", err)
	}
	Configure(db, cfg)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, driver, ClassifyDatabaseError(err, "connect", "", 0)
	}

	logger.Debug("database connection opened",
		"driver", driver,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return db, driver, nil
}

// Configure applies the pool settings of cfg to db.
func Configure(db *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}
