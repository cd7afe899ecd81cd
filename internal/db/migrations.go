package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		vehicle_id UUID,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}'::jsonb,
		acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
		triggered_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	// One open alert per (vehicle, kind). The partial unique index turns the
	// old check-then-insert race into an insert-and-ignore-conflict.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_vehicle_kind
		ON alerts (vehicle_id, kind) WHERE NOT acknowledged AND vehicle_id IS NOT NULL;`,
	// Fleet-level alerts have no vehicle; dedup them on kind alone.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_fleet_kind
		ON alerts (kind) WHERE NOT acknowledged AND vehicle_id IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_acknowledged ON alerts (acknowledged);`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_triggered_at ON alerts (triggered_at);`,
	`CREATE TABLE IF NOT EXISTS monthly_reports (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		period TEXT NOT NULL UNIQUE,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'fuel_fills') THEN
			CREATE INDEX IF NOT EXISTS idx_fuel_fills_vehicle_filled
				ON fuel_fills (vehicle_id, filled_at DESC);
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'driver_assignments') THEN
			CREATE INDEX IF NOT EXISTS idx_driver_assignments_end_date
				ON driver_assignments (type, end_date);
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
