// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cvr

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/rankings"
)

func TestNewCVRStartsActiveFullValue(t *testing.T) {
	r := rankings.NewBuilder().Add(1, "alice").Build()
	c := New("cvr-1", "precinct-a", r)
	if !c.IsActive() {
		t.Fatal("new CVR should be active")
	}
	if !c.FractionalTransferValue.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("new CVR transfer value = %s, want 1", c.FractionalTransferValue)
	}
}

func TestRecordOutcomeAppendsAuditTrail(t *testing.T) {
	r := rankings.NewBuilder().Add(1, "alice").Build()
	c := New("cvr-1", "precinct-a", r)
	c.RecordOutcome(1, "alice", Active, decimal.NewFromInt(1), "")
	c.RecordOutcome(2, "", InactiveByExhaustedChoices, decimal.Zero, "exhausted")

	outcomes := c.Outcomes()
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if c.IsActive() {
		t.Fatal("CVR should no longer be active after exhaustion")
	}
	if outcomes[1].Note != "exhausted" {
		t.Fatalf("outcome note = %q, want %q", outcomes[1].Note, "exhausted")
	}
}

func TestWinnerDepartureTracked(t *testing.T) {
	r := rankings.NewBuilder().Add(1, "alice").Build()
	c := New("cvr-1", "precinct-a", r)
	c.RecordWinnerDeparture("alice", decimal.NewFromFloat(0.5))
	if got, ok := c.WinnerToFractionalValue["alice"]; !ok || !got.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("expected winner departure value 0.5, got %v ok=%v", got, ok)
	}
}

func TestCDFSnapshotGatedByCaller(t *testing.T) {
	r := rankings.NewBuilder().Add(1, "alice").Build()
	c := New("cvr-1", "precinct-a", r)
	if len(c.CDFSnapshots()) != 0 {
		t.Fatal("no snapshots should exist until LogCDFSnapshot is called")
	}
	c.LogCDFSnapshot(1, map[string]decimal.Decimal{"alice": decimal.NewFromInt(1)})
	snaps := c.CDFSnapshots()
	if len(snaps) != 1 || !snaps[0].Allocation["alice"].Equal(decimal.NewFromInt(1)) {
		t.Fatal("expected one snapshot with alice allocated 1")
	}
}

func TestLastRankAndSeenTracking(t *testing.T) {
	r := rankings.NewBuilder().Add(1, "alice").Add(2, "bob").Build()
	c := New("cvr-1", "precinct-a", r)
	if c.LastRank() != 0 {
		t.Fatalf("fresh CVR LastRank() = %d, want 0", c.LastRank())
	}
	c.MarkSeen("alice")
	c.AdvanceLastRank(1)
	if !c.HasSeen("alice") || c.HasSeen("bob") {
		t.Fatal("seen tracking incorrect")
	}
	c.AdvanceLastRank(0)
	if c.LastRank() != 1 {
		t.Fatal("AdvanceLastRank should never move backward")
	}
}

func TestBallotStatusString(t *testing.T) {
	if Active.String() != "active" {
		t.Fatalf("Active.String() = %q", Active.String())
	}
	if InactiveByExhaustedChoices.String() != "inactive-by-exhausted-choices" {
		t.Fatalf("InactiveByExhaustedChoices.String() = %q", InactiveByExhaustedChoices.String())
	}
}
