// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cdf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/cvr"
	"github.com/mesutgk15/rcv/rankings"
)

func newBallot(id string) *cvr.CastVoteRecord {
	b := rankings.NewBuilder().Add(1, "alice").Build()
	return cvr.New(id, "precinct-1", b)
}

func TestExportSkipsBallotsWithoutSnapshots(t *testing.T) {
	cvrs := []*cvr.CastVoteRecord{newBallot("1"), newBallot("2")}
	rows := Export(cvrs, time.Unix(0, 0))
	if len(rows) != 0 {
		t.Fatalf("Export with no logged snapshots = %d rows, want 0", len(rows))
	}
}

func TestExportFlattensEachCandidateInASnapshot(t *testing.T) {
	c := newBallot("1")
	c.LogCDFSnapshot(1, map[string]decimal.Decimal{
		"alice": decimal.NewFromInt(1),
	})
	c.LogCDFSnapshot(2, map[string]decimal.Decimal{
		"bob": decimal.NewFromFloat(0.5),
	})

	rows := Export([]*cvr.CastVoteRecord{c}, time.Unix(0, 0))
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	for _, row := range rows {
		if row.ID == "" {
			t.Error("expected every row to carry a generated ID")
		}
		if row.CVRID != "1" {
			t.Errorf("CVRID = %q, want %q", row.CVRID, "1")
		}
	}
}

func TestExportRowsCarryDistinctIDs(t *testing.T) {
	c := newBallot("1")
	c.LogCDFSnapshot(1, map[string]decimal.Decimal{
		"alice": decimal.NewFromInt(1),
		"bob":   decimal.NewFromInt(0),
	})
	rows := Export([]*cvr.CastVoteRecord{c}, time.Unix(0, 0))
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].ID == rows[1].ID {
		t.Fatal("expected distinct IDs for distinct export rows")
	}
}

func TestByRoundGroupsCorrectly(t *testing.T) {
	rows := []ExportRow{
		{ID: "a", Round: 1},
		{ID: "b", Round: 1},
		{ID: "c", Round: 2},
	}
	grouped := ByRound(rows)
	if len(grouped[1]) != 2 {
		t.Fatalf("len(grouped[1]) = %d, want 2", len(grouped[1]))
	}
	if len(grouped[2]) != 1 {
		t.Fatalf("len(grouped[2]) = %d, want 1", len(grouped[2]))
	}
}
