// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package transfer holds the round-by-round ledger of where votes moved
// from and to: every elimination and every surplus distribution records a
// source-to-target entry here, so the tabulator's output can show not just
// the final tallies but how they got there.
package transfer

import (
	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/arith"
	"github.com/mesutgk15/rcv/candidate"
)

// Entry is one source-to-target vote movement recorded in a single round.
type Entry struct {
	Round  int
	Source string
	Target string
	Value  decimal.Decimal
}

// TallyTransfers is the full ledger of vote movements across every round
// of a tabulation.
type TallyTransfers struct {
	entries []Entry
}

// New returns an empty ledger.
func New() *TallyTransfers {
	return &TallyTransfers{}
}

// Record appends a source-to-target transfer for round. A zero-value
// transfer is silently dropped rather than recorded: a ballot that has
// already been reduced to exactly zero transfer value emits no ledger
// entry when it moves.
func (t *TallyTransfers) Record(round int, source, target string, value decimal.Decimal) {
	if value.Sign() <= 0 {
		return
	}
	t.entries = append(t.entries, Entry{Round: round, Source: source, Target: target, Value: value})
}

// RecordResidual books value as residual surplus for round — surplus that
// could not be exactly distributed because of rounding. The source is the
// winner whose surplus produced it; the target is the Residual sentinel.
func (t *TallyTransfers) RecordResidual(round int, winner string, value decimal.Decimal) {
	t.Record(round, winner, candidate.Residual, value)
}

// Entries returns every recorded transfer, in the order they were
// recorded.
func (t *TallyTransfers) Entries() []Entry {
	return t.entries
}

// ForRound returns every transfer recorded in round, in recording order.
func (t *TallyTransfers) ForRound(round int) []Entry {
	var out []Entry
	for _, e := range t.entries {
		if e.Round == round {
			out = append(out, e)
		}
	}
	return out
}

// NetMovement sums every transfer into candidateID across all rounds minus
// every transfer out of it — a sanity/conservation check, not something
// the tabulator consults during tabulation itself.
func (t *TallyTransfers) NetMovement(candidateID string) decimal.Decimal {
	net := arith.Zero
	for _, e := range t.entries {
		if e.Target == candidateID {
			net = net.Add(e.Value)
		}
		if e.Source == candidateID {
			net = net.Sub(e.Value)
		}
	}
	return net
}
