package repo

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
)

const (
	tableFacilities   = "facilities"
	tableStaff        = "staff"
	tableClients      = "clients"
	tableServiceTypes = "service_types"
	tableSchedules    = "schedules"
)

// schemaStatements creates the tables in dependency order. Every statement is
// idempotent so Migrate can run on each start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS facilities (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		timezone   TEXT NOT NULL DEFAULT 'UTC',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS staff (
		id          UUID PRIMARY KEY,
		facility_id UUID NOT NULL REFERENCES facilities(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		role        TEXT NOT NULL DEFAULT 'caregiver',
		active      BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS staff_facility_idx ON staff (facility_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS staff_id_facility_key ON staff (id, facility_id)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id          UUID PRIMARY KEY,
		facility_id UUID NOT NULL REFERENCES facilities(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS clients_facility_idx ON clients (facility_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS clients_id_facility_key ON clients (id, facility_id)`,
	`CREATE TABLE IF NOT EXISTS service_types (
		id          UUID PRIMARY KEY,
		facility_id UUID NOT NULL REFERENCES facilities(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		category    TEXT NOT NULL DEFAULT '',
		color       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS service_types_id_facility_key ON service_types (id, facility_id)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		id              UUID PRIMARY KEY,
		facility_id     UUID NOT NULL REFERENCES facilities(id) ON DELETE CASCADE,
		recurrence_id   UUID,
		start_time      TIMESTAMPTZ NOT NULL,
		end_time        TIMESTAMPTZ NOT NULL,
		client_id       UUID NOT NULL,
		staff_id        UUID NOT NULL,
		service_type_id UUID,
		notes           TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (end_time > start_time),
		CONSTRAINT schedules_client_facility_fkey FOREIGN KEY (client_id, facility_id)
			REFERENCES clients (id, facility_id) ON DELETE CASCADE,
		CONSTRAINT schedules_staff_facility_fkey FOREIGN KEY (staff_id, facility_id)
			REFERENCES staff (id, facility_id) ON DELETE CASCADE,
		CONSTRAINT schedules_service_type_facility_fkey FOREIGN KEY (service_type_id, facility_id)
			REFERENCES service_types (id, facility_id) ON DELETE SET NULL (service_type_id)
	)`,
	// Tables created before references were facility scoped still carry the
	// single column keys.
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'schedules_client_facility_fkey') THEN
			ALTER TABLE schedules
				DROP CONSTRAINT IF EXISTS schedules_client_id_fkey,
				ADD CONSTRAINT schedules_client_facility_fkey FOREIGN KEY (client_id, facility_id)
					REFERENCES clients (id, facility_id) ON DELETE CASCADE;
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'schedules_staff_facility_fkey') THEN
			ALTER TABLE schedules
				DROP CONSTRAINT IF EXISTS schedules_staff_id_fkey,
				ADD CONSTRAINT schedules_staff_facility_fkey FOREIGN KEY (staff_id, facility_id)
					REFERENCES staff (id, facility_id) ON DELETE CASCADE;
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'schedules_service_type_facility_fkey') THEN
			ALTER TABLE schedules
				DROP CONSTRAINT IF EXISTS schedules_service_type_id_fkey,
				ADD CONSTRAINT schedules_service_type_facility_fkey FOREIGN KEY (service_type_id, facility_id)
					REFERENCES service_types (id, facility_id) ON DELETE SET NULL (service_type_id);
		END IF;
	END $$`,
	`CREATE INDEX IF NOT EXISTS schedules_facility_start_idx ON schedules (facility_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS schedules_recurrence_idx ON schedules (recurrence_id) WHERE recurrence_id IS NOT NULL`,
}

// Migrate creates any missing tables and indexes.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	for i, stmt := range schemaStatements {
		if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
			return rollback(tx, fmt.Errorf("migrate: statement %d: %w", i, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	slog.Info("database schema is up to date", "statements", len(schemaStatements))
	return nil
}
