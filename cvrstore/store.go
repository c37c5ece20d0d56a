// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cvrstore is a self-contained sqlite fixture store for contests,
// candidates, and cast vote records — the external "CVR reader" / "config
// loader" collaborator the engine itself deliberately stays ignorant of.
// It exists to exercise the tabulator end to end in integration tests and
// from the demo CLI without the engine package importing database/sql
// anywhere. Ported from a Postgres schema-and-seed-helper pattern to an
// embedded modernc.org/sqlite database.
package cvrstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/mesutgk15/rcv/cdf"
	"github.com/mesutgk15/rcv/config"
	"github.com/mesutgk15/rcv/cvr"
	"github.com/mesutgk15/rcv/rankings"
)

// Open opens (creating if necessary) a sqlite database at path and ensures
// its schema exists. Passing ":memory:" is the normal choice for tests;
// the demo CLI opens its -db path, "rcv.db" by default.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cvrstore: failed to open %q: %w", path, err)
	}
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InsertContest records a new contest fixture.
func InsertContest(db *sql.DB, contestID, name string, numWinners int) error {
	_, err := db.Exec(
		`INSERT INTO contest (id, name, num_winners) VALUES (?, ?, ?)`,
		contestID, name, numWinners,
	)
	if err != nil {
		return fmt.Errorf("cvrstore: failed to insert contest %q: %w", contestID, err)
	}
	return nil
}

// InsertCandidate records a candidate in contestID. excluded marks a
// candidate as pre-excluded from the count (candidate.Excluded status).
func InsertCandidate(db *sql.DB, contestID, candidateID, name string, excluded bool) error {
	_, err := db.Exec(
		`INSERT INTO candidate (contest_id, id, name, excluded) VALUES (?, ?, ?, ?)`,
		contestID, candidateID, name, excluded,
	)
	if err != nil {
		return fmt.Errorf("cvrstore: failed to insert candidate %q: %w", candidateID, err)
	}
	return nil
}

// InsertCVR records a cast vote record's header row (its ID and
// provenance); InsertRanking fills in what it ranked.
func InsertCVR(db *sql.DB, contestID, cvrID, precinct, tabulatorID, batchID string) error {
	_, err := db.Exec(
		`INSERT INTO cast_vote_record (contest_id, id, precinct, tabulator_id, batch_id) VALUES (?, ?, ?, ?, ?)`,
		contestID, cvrID, precinct, tabulatorID, batchID,
	)
	if err != nil {
		return fmt.Errorf("cvrstore: failed to insert cast vote record %q: %w", cvrID, err)
	}
	return nil
}

// InsertRanking records that candidateID was marked at rank on cvrID.
// Calling this more than once for the same (cvrID, rank) with different
// candidates is how an overvote fixture is built.
func InsertRanking(db *sql.DB, contestID, cvrID string, rank int, candidateID string) error {
	_, err := db.Exec(
		`INSERT INTO cvr_ranking (contest_id, cvr_id, rank, candidate_id) VALUES (?, ?, ?, ?)`,
		contestID, cvrID, rank, candidateID,
	)
	if err != nil {
		return fmt.Errorf("cvrstore: failed to insert ranking for cvr %q at rank %d: %w", cvrID, rank, err)
	}
	return nil
}

// CandidateFixture is one row loaded back out of the candidate table.
type CandidateFixture struct {
	ID       string
	Name     string
	Excluded bool
}

// LoadCandidates returns every candidate recorded for contestID, in
// insertion order. Pass the result's IDs to config.NewStatic, marking
// Excluded candidates via Static.Excluded.
func LoadCandidates(db *sql.DB, contestID string) ([]CandidateFixture, error) {
	rows, err := db.Query(
		`SELECT id, name, excluded FROM candidate WHERE contest_id = ? ORDER BY rowid`,
		contestID,
	)
	if err != nil {
		return nil, fmt.Errorf("cvrstore: failed to load candidates for contest %q: %w", contestID, err)
	}
	defer rows.Close()

	var out []CandidateFixture
	for rows.Next() {
		var c CandidateFixture
		if err := rows.Scan(&c.ID, &c.Name, &c.Excluded); err != nil {
			return nil, fmt.Errorf("cvrstore: failed to scan candidate row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadCVRs reconstructs every cast vote record stored for contestID as
// fresh, round-0 cvr.CastVoteRecord values ready to hand to
// tabulator.New.
func LoadCVRs(db *sql.DB, contestID string) ([]*cvr.CastVoteRecord, error) {
	cvrRows, err := db.Query(
		`SELECT id, precinct FROM cast_vote_record WHERE contest_id = ? ORDER BY rowid`,
		contestID,
	)
	if err != nil {
		return nil, fmt.Errorf("cvrstore: failed to load cast vote records for contest %q: %w", contestID, err)
	}
	defer cvrRows.Close()

	type header struct {
		id, precinct string
	}
	var headers []header
	for cvrRows.Next() {
		var h header
		if err := cvrRows.Scan(&h.id, &h.precinct); err != nil {
			return nil, fmt.Errorf("cvrstore: failed to scan cast vote record row: %w", err)
		}
		headers = append(headers, h)
	}
	if err := cvrRows.Err(); err != nil {
		return nil, err
	}

	out := make([]*cvr.CastVoteRecord, 0, len(headers))
	for _, h := range headers {
		rankingRows, err := db.Query(
			`SELECT rank, candidate_id FROM cvr_ranking WHERE contest_id = ? AND cvr_id = ? ORDER BY rank`,
			contestID, h.id,
		)
		if err != nil {
			return nil, fmt.Errorf("cvrstore: failed to load rankings for cvr %q: %w", h.id, err)
		}
		builder := rankings.NewBuilder()
		for rankingRows.Next() {
			var rank int
			var candidateID string
			if err := rankingRows.Scan(&rank, &candidateID); err != nil {
				rankingRows.Close()
				return nil, fmt.Errorf("cvrstore: failed to scan ranking row for cvr %q: %w", h.id, err)
			}
			builder.Add(rank, candidateID)
		}
		closeErr := rankingRows.Err()
		rankingRows.Close()
		if closeErr != nil {
			return nil, closeErr
		}

		out = append(out, cvr.New(h.id, h.precinct, builder.Build()))
	}
	return out, nil
}

// BuildConfig assembles a config.Static from whatever was loaded by
// LoadCandidates, applying any overrides the caller supplies before
// returning — a thin convenience for the demo CLI and integration tests,
// not a substitute for a real config-loading layer.
func BuildConfig(candidates []CandidateFixture, numWinners int) *config.Static {
	names := make([]string, len(candidates))
	excluded := map[string]bool{}
	for i, c := range candidates {
		names[i] = c.ID
		if c.Excluded {
			excluded[c.ID] = true
		}
	}
	cfg := config.NewStatic(names)
	cfg.Winners = numWinners
	cfg.Excluded = excluded
	return cfg
}

// SaveCDFExport persists a batch of cdf.ExportRow values under contestID,
// the counterpart to cdf.Export — the demo CLI calls this after
// tabulation when GenerateCDFJSONEnabled is set.
func SaveCDFExport(db *sql.DB, contestID string, rows []cdf.ExportRow) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("cvrstore: failed to begin cdf export transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO cdf_export_row (id, contest_id, cvr_id, round, candidate_id, value, exported_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("cvrstore: failed to prepare cdf export insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.ID, contestID, row.CVRID, row.Round, row.CandidateID, row.Value.String(), row.ExportedAt); err != nil {
			return fmt.Errorf("cvrstore: failed to insert cdf export row %q: %w", row.ID, err)
		}
	}
	return tx.Commit()
}

// LoadCDFExport reloads a previously saved CDF export for contestID, in
// round order, decoding each stored decimal string back into
// decimal.Decimal.
func LoadCDFExport(db *sql.DB, contestID string) ([]cdf.ExportRow, error) {
	rows, err := db.Query(
		`SELECT id, cvr_id, round, candidate_id, value, exported_at FROM cdf_export_row WHERE contest_id = ? ORDER BY round, rowid`,
		contestID,
	)
	if err != nil {
		return nil, fmt.Errorf("cvrstore: failed to load cdf export for contest %q: %w", contestID, err)
	}
	defer rows.Close()

	var out []cdf.ExportRow
	for rows.Next() {
		var r cdf.ExportRow
		var value string
		var exportedAt time.Time
		if err := rows.Scan(&r.ID, &r.CVRID, &r.Round, &r.CandidateID, &value, &exportedAt); err != nil {
			return nil, fmt.Errorf("cvrstore: failed to scan cdf export row: %w", err)
		}
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("cvrstore: stored cdf export value %q is not a valid decimal: %w", value, err)
		}
		r.Value = parsed
		r.ExportedAt = exportedAt
		out = append(out, r)
	}
	return out, rows.Err()
}
