// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cvrstore

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates every table cvrstore needs. Safe to call multiple
// times — every statement is IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("cvrstore: failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS contest (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    num_winners INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS candidate (
    contest_id TEXT NOT NULL REFERENCES contest(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    excluded INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (contest_id, id)
);

CREATE TABLE IF NOT EXISTS cast_vote_record (
    contest_id TEXT NOT NULL REFERENCES contest(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    precinct TEXT NOT NULL DEFAULT '',
    tabulator_id TEXT NOT NULL DEFAULT '',
    batch_id TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (contest_id, id)
);

CREATE INDEX IF NOT EXISTS idx_cvr_precinct ON cast_vote_record(contest_id, precinct);

-- one row per candidate marked at a rank; more than one row at the same
-- (contest_id, cvr_id, rank) is an overvote.
CREATE TABLE IF NOT EXISTS cvr_ranking (
    contest_id TEXT NOT NULL,
    cvr_id TEXT NOT NULL,
    rank INTEGER NOT NULL,
    candidate_id TEXT NOT NULL,
    FOREIGN KEY (contest_id, cvr_id) REFERENCES cast_vote_record(contest_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cvr_ranking_cvr ON cvr_ranking(contest_id, cvr_id, rank);

-- flattened cdf export rows (see the cdf package); value is stored as
-- decimal text, never as a floating-point column, to keep export
-- round-trips exact.
CREATE TABLE IF NOT EXISTS cdf_export_row (
    id TEXT PRIMARY KEY,
    contest_id TEXT NOT NULL,
    cvr_id TEXT NOT NULL,
    round INTEGER NOT NULL,
    candidate_id TEXT NOT NULL,
    value TEXT NOT NULL,
    exported_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cdf_export_contest_round ON cdf_export_row(contest_id, round);
`
