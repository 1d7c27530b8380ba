package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Alijeyrad/carevisit_backend/config"
)

// InitializeDatabases creates the databases listed in server.databases that do
// not exist yet. It connects to the maintenance 'postgres' database to do so.
func InitializeDatabases(ctx context.Context, cfg *config.Config) error {
	if len(cfg.Server.Databases) == 0 {
		return fmt.Errorf("no database names provided")
	}

	maintenance := FromCentralConfig(cfg.Database)
	maintenance.DBName = "postgres"

	conn, err := openSQLDB(maintenance)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer conn.Close()

	for _, name := range cfg.Server.Databases {
		created, err := createDatabaseIfNotExists(ctx, conn, name)
		if err != nil {
			return fmt.Errorf("failed to create database %q: %w", name, err)
		}
		if created {
			slog.Info("database created", "name", name)
		}
	}
	return nil
}

func createDatabaseIfNotExists(ctx context.Context, conn *sql.DB, name string) (bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return false, err
	}
	return true, nil
}
