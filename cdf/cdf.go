// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cdf turns the per-ballot CDF snapshots CastVoteRecord accumulates
// during tabulation into flat, uuid-keyed export rows, the shape a CDF
// JSON file or reporting database table actually wants: one row per
// ballot per round per candidate it was allocated to, rather than the
// nested per-ballot map the engine keeps internally.
package cdf

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/cvr"
)

// ExportRow is one flattened CDF allocation entry: ballot cvrID counted for
// candidateID with the given value at round. ID is a freshly generated
// opaque identifier, suitable as a primary key in a reporting store.
type ExportRow struct {
	ID          string          `json:"id"`
	CVRID       string          `json:"cvr_id"`
	Round       int             `json:"round"`
	CandidateID string          `json:"candidate_id"`
	Value       decimal.Decimal `json:"value"`
	ExportedAt  time.Time       `json:"exported_at"`
}

// Export flattens every CDF snapshot recorded on cvrs into export rows, in
// ballot order and then round order. It returns nothing for a ballot that
// never had a snapshot logged — either because CDF generation was never
// enabled for the tabulation that produced it, or because the ballot was
// inactive before round 1 ever ran.
//
// exportedAt is passed in rather than read from time.Now() so callers (and
// tests) get a reproducible timestamp across every row in one export.
func Export(cvrs []*cvr.CastVoteRecord, exportedAt time.Time) []ExportRow {
	var rows []ExportRow
	for _, c := range cvrs {
		for _, snapshot := range c.CDFSnapshots() {
			for candidateID, value := range snapshot.Allocation {
				rows = append(rows, ExportRow{
					ID:          uuid.NewString(),
					CVRID:       c.ID,
					Round:       snapshot.Round,
					CandidateID: candidateID,
					Value:       value,
					ExportedAt:  exportedAt,
				})
			}
		}
	}
	return rows
}

// ByRound groups rows by their Round, the shape a per-round CDF JSON file
// export wants (one file, or one top-level array, per round).
func ByRound(rows []ExportRow) map[int][]ExportRow {
	out := map[int][]ExportRow{}
	for _, row := range rows {
		out[row.Round] = append(out[row.Round], row)
	}
	return out
}
