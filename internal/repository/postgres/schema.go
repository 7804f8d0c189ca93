package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS scenario_runs (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	status       TEXT NOT NULL,
	optimal      BOOLEAN NOT NULL,
	input_hash   TEXT NOT NULL,
	total_cost   DOUBLE PRECISION NOT NULL,
	runtime_ns   BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	report       JSONB,
	storage_keys TEXT[] NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_scenario_runs_created_at ON scenario_runs (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_scenario_runs_input_hash ON scenario_runs (input_hash);

CREATE TABLE IF NOT EXISTS scenario_transfers (
	run_id       UUID NOT NULL REFERENCES scenario_runs (id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	from_store   INTEGER NOT NULL,
	to_store     INTEGER NOT NULL,
	product_id   INTEGER NOT NULL,
	quantity     DOUBLE PRECISION NOT NULL,
	cost         DOUBLE PRECISION NOT NULL,
	reason_codes TEXT[] NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS scenario_manufacturing (
	run_id       UUID NOT NULL REFERENCES scenario_runs (id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	store_id     INTEGER NOT NULL,
	product_id   INTEGER NOT NULL,
	quantity     DOUBLE PRECISION NOT NULL,
	cost         DOUBLE PRECISION NOT NULL,
	reason_codes TEXT[] NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Migrate creates the scenario tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
