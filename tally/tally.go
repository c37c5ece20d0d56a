// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package tally holds one round's vote counts: how many votes each
// continuing candidate has, how many ballots went inactive and why, and
// the winning threshold computed for that round.
package tally

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/mesutgk15/rcv/arith"
	"github.com/mesutgk15/rcv/cvr"
)

// RoundTally is the vote count for every continuing candidate in one
// round, plus the inactive-ballot breakdown and the threshold computed for
// that round. It starts unlocked (mutable while being built) and is locked
// once the round's count is final, so surplus-distribution math can never
// run against a half-built tally.
type RoundTally struct {
	Round     int
	Threshold decimal.Decimal

	votes          map[string]decimal.Decimal
	inactiveByName map[cvr.BallotStatus]decimal.Decimal
	locked         bool
}

// New builds an empty, unlocked RoundTally for round.
func New(round int) *RoundTally {
	return &RoundTally{
		Round:          round,
		votes:          map[string]decimal.Decimal{},
		inactiveByName: map[cvr.BallotStatus]decimal.Decimal{},
	}
}

// AddVote adds value to candidate's running total. Panics if the tally is
// locked — a locked RoundTally represents a finished round, and mutating
// it after the fact would silently corrupt the audit trail.
func (t *RoundTally) AddVote(candidateID string, value decimal.Decimal) {
	t.mustBeUnlocked("AddVote")
	t.votes[candidateID] = t.votes[candidateID].Add(value)
}

// AddInactive records value decimal votes going inactive for reason in
// this round.
func (t *RoundTally) AddInactive(reason cvr.BallotStatus, value decimal.Decimal) {
	t.mustBeUnlocked("AddInactive")
	t.inactiveByName[reason] = t.inactiveByName[reason].Add(value)
}

// SetVotes pins candidate's tally to value, overriding whatever total had
// accumulated. Used only by winner-tally carry-forward, which must set a
// past winner's entry to an externally reconstructed value rather than
// accumulate onto it the way AddVote does.
func (t *RoundTally) SetVotes(candidateID string, value decimal.Decimal) {
	t.mustBeUnlocked("SetVotes")
	t.votes[candidateID] = value
}

// VotesFor returns candidate's tally this round, or zero if the candidate
// received no votes.
func (t *RoundTally) VotesFor(candidateID string) decimal.Decimal {
	if v, ok := t.votes[candidateID]; ok {
		return v
	}
	return arith.Zero
}

// InactiveByReason returns the total decimal votes that went inactive this
// round for reason.
func (t *RoundTally) InactiveByReason(reason cvr.BallotStatus) decimal.Decimal {
	if v, ok := t.inactiveByName[reason]; ok {
		return v
	}
	return arith.Zero
}

// TotalInactive returns the sum of every inactive-by-reason bucket.
func (t *RoundTally) TotalInactive() decimal.Decimal {
	total := arith.Zero
	for _, v := range t.inactiveByName {
		total = total.Add(v)
	}
	return total
}

// NumActiveBallots returns the total active vote count across every
// continuing candidate, i.e. the number of ballots still counting toward
// the threshold calculation.
func (t *RoundTally) NumActiveBallots() decimal.Decimal {
	total := arith.Zero
	for _, v := range t.votes {
		total = total.Add(v)
	}
	return total
}

// CandidateIDs returns every candidate with a recorded vote this round, in
// deterministic sorted order.
func (t *RoundTally) CandidateIDs() []string {
	ids := maps.Keys(t.votes)
	slices.Sort(ids)
	return ids
}

// Lock freezes this RoundTally. Further AddVote/AddInactive calls panic.
func (t *RoundTally) Lock() {
	t.locked = true
}

// Unlock reopens this RoundTally for mutation. Used by surplus
// distribution and elimination, which move ballot value within an
// already-finalized round's tally, and by the past-winner carry-forward,
// which sets past winners' entries.
func (t *RoundTally) Unlock() {
	t.locked = false
}

// Locked reports whether this tally is currently locked.
func (t *RoundTally) Locked() bool {
	return t.locked
}

func (t *RoundTally) mustBeUnlocked(op string) {
	if t.locked {
		panic(fmt.Sprintf("tally: %s called on a locked RoundTally (round %d)", op, t.Round))
	}
}
