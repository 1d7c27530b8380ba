package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/lib/pq"

	"github.com/Alijeyrad/carevisit_backend/config"
)

// Driver is the ent dialect driver the store runs on, plus the pool it owns
// for health checks.
type Driver struct {
	dialect.Driver
	DB *sql.DB
}

// NewDriver opens the main database from central config.
func NewDriver(cfg config.DatabaseConfig) (*Driver, error) {
	return NewDriverFromConfig(FromCentralConfig(cfg))
}

func NewDriverFromConfig(cfg Config) (*Driver, error) {
	db, err := openSQLDB(cfg)
	if err != nil {
		return nil, err
	}

	var drv dialect.Driver = entsql.OpenDB(dialect.Postgres, db)
	if cfg.EnableLogging {
		drv = &timedDriver{Driver: drv, threshold: cfg.SlowQueryThreshold()}
	}
	return &Driver{Driver: drv, DB: db}, nil
}

func openSQLDB(cfg Config) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	slog.Debug("database connection opened", "host", cfg.Host, "db", cfg.DBName)
	return conn, nil
}

// Ping checks if the database connection is alive
func (d *Driver) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}
