package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS institutions (
    id                  INTEGER PRIMARY KEY,
    name                TEXT NOT NULL,
    nit                 TEXT NOT NULL,
    main_representative TEXT NOT NULL,
    email               TEXT NOT NULL UNIQUE,
    password_hash       TEXT NOT NULL,
    phone               TEXT NOT NULL,
    address             TEXT NOT NULL,
    lat                 REAL NOT NULL,
    lng                 REAL NOT NULL,
    image_url           TEXT NOT NULL DEFAULT '',
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS benefactors (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL,
    phone      TEXT NOT NULL DEFAULT '',
    lat        REAL NOT NULL DEFAULT 0,
    lng        REAL NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS campaigns (
    id               INTEGER PRIMARY KEY,
    name             TEXT NOT NULL,
    requirement      TEXT NOT NULL,
    beneficiary_type TEXT NOT NULL,
    start_date       DATETIME NOT NULL,
    end_date         DATETIME NOT NULL,
    institution_id   INTEGER NOT NULL REFERENCES institutions(id),
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_campaigns_institution ON campaigns(institution_id);

CREATE TABLE IF NOT EXISTS campaign_images (
    id          INTEGER PRIMARY KEY,
    campaign_id INTEGER NOT NULL REFERENCES campaigns(id),
    position    INTEGER NOT NULL,
    image_url   TEXT NOT NULL,
    UNIQUE (campaign_id, position)
);

CREATE TABLE IF NOT EXISTS donations (
    id             INTEGER PRIMARY KEY,
    description    TEXT NOT NULL,
    quantity       INTEGER NOT NULL CHECK (quantity > 0),
    donation_date  DATETIME NOT NULL,
    status         TEXT NOT NULL DEFAULT 'to_collect' CHECK (status IN ('to_collect', 'on_the_way', 'received')),
    anonymous      INTEGER NOT NULL DEFAULT 0,
    campaign_id    INTEGER NOT NULL REFERENCES campaigns(id),
    benefactor_id  INTEGER NOT NULL REFERENCES benefactors(id),
    institution_id INTEGER NOT NULL REFERENCES institutions(id),
    mirror_id      TEXT NOT NULL UNIQUE,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_donations_institution ON donations(institution_id);

CREATE TRIGGER IF NOT EXISTS trg_donations_mirror_id_immutable
BEFORE UPDATE OF mirror_id ON donations
WHEN NEW.mirror_id IS NOT OLD.mirror_id
BEGIN
    SELECT RAISE(ABORT, 'donations.mirror_id is immutable');
END;

CREATE TABLE IF NOT EXISTS images (
    id         TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mirror_outbox (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    collection      TEXT NOT NULL,
    doc_id          TEXT NOT NULL,
    op              TEXT NOT NULL CHECK (op IN ('set', 'update', 'delete')),
    payload         TEXT NOT NULL,
    attempts        INTEGER NOT NULL DEFAULT 0,
    last_error      TEXT,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    next_attempt_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    delivered_at    DATETIME,
    dead            INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_outbox_pending
    ON mirror_outbox(next_attempt_at) WHERE delivered_at IS NULL AND dead = 0;
CREATE INDEX IF NOT EXISTS idx_outbox_doc
    ON mirror_outbox(collection, doc_id, id) WHERE delivered_at IS NULL AND dead = 0;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{}

// EnsureSchema creates all tables and indexes if they don't already exist and
// applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
