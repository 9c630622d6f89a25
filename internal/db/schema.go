package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    display_name  TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('admin', 'student')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id                    TEXT PRIMARY KEY,
    type                  TEXT NOT NULL CHECK (type IN ('lost', 'found')),
    category              TEXT NOT NULL,
    name                  TEXT NOT NULL,
    description           TEXT NOT NULL DEFAULT '',
    location              TEXT NOT NULL DEFAULT '',
    event_date            TEXT NOT NULL DEFAULT '',
    status                TEXT NOT NULL DEFAULT 'Open' CHECK (status IN ('Open', 'Claimed', 'Returned', 'Unclaimed')),
    priority              TEXT NOT NULL DEFAULT 'NORMAL' CHECK (priority IN ('NORMAL', 'HIGH', 'URGENT')),
    reported_by           TEXT NOT NULL DEFAULT '',
    reporter_id           INTEGER REFERENCES users(id),
    reported_at           DATETIME NOT NULL,
    returned_at           DATETIME,
    verification_question TEXT NOT NULL DEFAULT '',
    verification_answer   TEXT NOT NULL DEFAULT '',
    contact_preference    TEXT NOT NULL DEFAULT '',
    contact_info          TEXT NOT NULL DEFAULT '',
    storage_location      TEXT NOT NULL DEFAULT '',
    finder_contact        TEXT NOT NULL DEFAULT '',
    photo                 BLOB,
    photo_mime            TEXT,
    esc_24h               INTEGER NOT NULL DEFAULT 0,
    esc_72h               INTEGER NOT NULL DEFAULT 0,
    esc_7d                INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_items_type_status ON items(type, status);

CREATE TABLE IF NOT EXISTS item_matches (
    item_id   TEXT NOT NULL REFERENCES items(id),
    match_id  TEXT NOT NULL REFERENCES items(id),
    linked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (item_id, match_id)
);

CREATE TABLE IF NOT EXISTS claims (
    id                      TEXT PRIMARY KEY,
    item_id                 TEXT NOT NULL REFERENCES items(id),
    item_name               TEXT NOT NULL,
    claimant                TEXT NOT NULL,
    claimant_id             INTEGER NOT NULL,
    verification_answer     TEXT NOT NULL DEFAULT '',
    unique_identifier       TEXT NOT NULL,
    proof                   TEXT NOT NULL DEFAULT '',
    status                  TEXT NOT NULL CHECK (status IN ('Pending Owner Approval', 'Pending Admin Approval', 'Approved', 'Rejected')),
    requires_admin_approval INTEGER NOT NULL DEFAULT 0,
    submitted_at            DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_item ON claims(item_id);

CREATE TABLE IF NOT EXISTS claim_audit (
    id       INTEGER PRIMARY KEY,
    claim_id TEXT NOT NULL REFERENCES claims(id),
    action   TEXT NOT NULL,
    actor    TEXT NOT NULL,
    at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
    id     TEXT PRIMARY KEY,
    action TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    actor  TEXT NOT NULL,
    type   TEXT NOT NULL DEFAULT 'info',
    at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id      TEXT PRIMARY KEY,
    message TEXT NOT NULL,
    type    TEXT NOT NULL DEFAULT 'info',
    read    INTEGER NOT NULL DEFAULT 0,
    at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS claim_attempts (
    user_id INTEGER NOT NULL,
    item_id TEXT NOT NULL,
    count   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, item_id)
);

CREATE TABLE IF NOT EXISTS flagged_users (
    user_id    INTEGER PRIMARY KEY,
    reason     TEXT NOT NULL,
    flagged_at DATETIME NOT NULL,
    until      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
