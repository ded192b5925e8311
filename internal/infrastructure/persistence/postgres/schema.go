package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS kiosk_screenshots (
	position    BIGSERIAL PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	data_url    TEXT NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL,
	host        TEXT NOT NULL,
	scheme      TEXT NOT NULL,
	resolution  TEXT NOT NULL,
	zoom        DOUBLE PRECISION NOT NULL,
	technique   TEXT NOT NULL,
	notes       JSONB NOT NULL DEFAULT '[]',
	width       INTEGER NOT NULL DEFAULT 0,
	height      INTEGER NOT NULL DEFAULT 0,
	object_key  TEXT,
	object_url  TEXT
);

CREATE TABLE IF NOT EXISTS kiosk_presets (
	position   BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	scheme     TEXT NOT NULL,
	host       TEXT NOT NULL,
	resolution TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate создает таблицы киоска, если их нет
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate postgres schema: %w", err)
	}
	return nil
}
