// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"

	"github.com/pkg/errors"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return errors.Wrap(err, "failed to create schema")
	}

	return nil
}

// Instants are unix milliseconds (UTC) so both dialects compare them the same way
const schema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    poll_id TEXT PRIMARY KEY,
    creator_key TEXT NOT NULL UNIQUE,
    question TEXT NOT NULL,
    allow_multiple_choices BOOLEAN NOT NULL DEFAULT FALSE,
    public_results BOOLEAN NOT NULL DEFAULT TRUE,
    theme TEXT NOT NULL DEFAULT 'default',
    voter_count BIGINT NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL,
    active_until BIGINT NOT NULL,
    expire_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_expire_at ON poll(expire_at);

-- Options and their tallies
CREATE TABLE IF NOT EXISTS poll_option (
    poll_id TEXT NOT NULL REFERENCES poll(poll_id) ON DELETE CASCADE,
    option_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    votes BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (poll_id, option_id)
);

-- Fingerprints that already voted
CREATE TABLE IF NOT EXISTS poll_voter (
    poll_id TEXT NOT NULL REFERENCES poll(poll_id) ON DELETE CASCADE,
    fingerprint TEXT NOT NULL,
    voted_at BIGINT NOT NULL,
    PRIMARY KEY (poll_id, fingerprint)
);

-- Global counters
CREATE TABLE IF NOT EXISTS stats (
    name TEXT PRIMARY KEY,
    value BIGINT NOT NULL DEFAULT 0
);
`
