package repository

import (
	"context"

	"entgo.io/ent/dialect"

	"github.com/joseph-ayodele/leases-tracker/internal/common"
)

// Column types differ only where SQLite lacks a native type: ids, money,
// dates and timestamps are TEXT there and are converted by the scanners in
// scan.go.
var ddl = map[string][]string{
	dialect.Postgres: {
		`CREATE TABLE IF NOT EXISTS persons (
			id           UUID PRIMARY KEY,
			kind         TEXT NOT NULL,
			display_name TEXT NOT NULL,
			tax_id       TEXT UNIQUE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS contracts (
			id           UUID PRIMARY KEY,
			property_id  UUID NOT NULL,
			tenant_id    UUID NOT NULL REFERENCES persons(id),
			owner_id     UUID NOT NULL REFERENCES persons(id),
			start_date   DATE NOT NULL,
			end_date     DATE NOT NULL,
			monthly_rent NUMERIC(14,2) NOT NULL CHECK (monthly_rent > 0),
			currency     TEXT NOT NULL DEFAULT 'CLP',
			pay_day      SMALLINT NOT NULL CHECK (pay_day BETWEEN 1 AND 31),
			status       TEXT NOT NULL,
			notes        TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS charges (
			id              UUID PRIMARY KEY,
			contract_id     UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
			period          DATE NOT NULL,
			original_amount NUMERIC(14,2) NOT NULL,
			adjusted_amount NUMERIC(14,2),
			due_date        DATE NOT NULL,
			state           TEXT NOT NULL,
			paid_date       DATE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (contract_id, period)
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id          UUID PRIMARY KEY,
			charge_id   UUID NOT NULL REFERENCES charges(id) ON DELETE CASCADE,
			amount_paid NUMERIC(14,2) NOT NULL CHECK (amount_paid > 0),
			paid_date   DATE NOT NULL,
			method      TEXT NOT NULL DEFAULT '',
			reference   TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS payments_charge_id_idx ON payments (charge_id)`,
		`CREATE TABLE IF NOT EXISTS import_jobs (
			id          UUID PRIMARY KEY,
			filename    TEXT NOT NULL,
			format      TEXT NOT NULL,
			status      TEXT NOT NULL,
			fields      TEXT,
			contract_id UUID REFERENCES contracts(id) ON DELETE SET NULL,
			error       TEXT,
			started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			finished_at TIMESTAMPTZ
		)`,
	},
	dialect.SQLite: {
		`CREATE TABLE IF NOT EXISTS persons (
			id           TEXT PRIMARY KEY,
			kind         TEXT NOT NULL,
			display_name TEXT NOT NULL,
			tax_id       TEXT UNIQUE,
			created_at   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contracts (
			id           TEXT PRIMARY KEY,
			property_id  TEXT NOT NULL,
			tenant_id    TEXT NOT NULL REFERENCES persons(id),
			owner_id     TEXT NOT NULL REFERENCES persons(id),
			start_date   TEXT NOT NULL,
			end_date     TEXT NOT NULL,
			monthly_rent TEXT NOT NULL,
			currency     TEXT NOT NULL DEFAULT 'CLP',
			pay_day      INTEGER NOT NULL CHECK (pay_day BETWEEN 1 AND 31),
			status       TEXT NOT NULL,
			notes        TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS charges (
			id              TEXT PRIMARY KEY,
			contract_id     TEXT NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
			period          TEXT NOT NULL,
			original_amount TEXT NOT NULL,
			adjusted_amount TEXT,
			due_date        TEXT NOT NULL,
			state           TEXT NOT NULL,
			paid_date       TEXT,
			created_at      TEXT NOT NULL,
			UNIQUE (contract_id, period)
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id          TEXT PRIMARY KEY,
			charge_id   TEXT NOT NULL REFERENCES charges(id) ON DELETE CASCADE,
			amount_paid TEXT NOT NULL,
			paid_date   TEXT NOT NULL,
			method      TEXT NOT NULL DEFAULT '',
			reference   TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS payments_charge_id_idx ON payments (charge_id)`,
		`CREATE TABLE IF NOT EXISTS import_jobs (
			id          TEXT PRIMARY KEY,
			filename    TEXT NOT NULL,
			format      TEXT NOT NULL,
			status      TEXT NOT NULL,
			fields      TEXT,
			contract_id TEXT REFERENCES contracts(id) ON DELETE SET NULL,
			error       TEXT,
			started_at  TEXT NOT NULL,
			finished_at TEXT
		)`,
	},
}

// Migrate creates the tables that do not exist yet. It is safe to run on
// every start.
func (d *DB) Migrate(ctx context.Context) error {
	return d.inTx(ctx, "migrate", func(tx dialect.Tx) error {
		for _, stmt := range ddl[d.dialect] {
			if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
				d.logger.Error("db.migrate.failed", "error", err)
				return common.DatabaseError("migrate", err)
			}
		}
		d.logger.Info("db.migrate.ok", "dialect", d.dialect, "statements", len(ddl[d.dialect]))
		return nil
	})
}
