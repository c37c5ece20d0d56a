// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cvr holds the per-ballot mutable state the tabulator threads
// through every round: which candidate a ballot currently counts for, what
// fraction of a vote it's worth, and why it stopped counting if it has.
// Parsing ballots out of an external CVR file format is out of scope for
// this module — callers build CastVoteRecord values directly or via a
// collaborator such as cvrstore.
package cvr

import (
	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/rankings"
)

// BallotStatus is a closed enumeration of every reason a ballot can stop
// counting, plus ACTIVE for one that's still counting.
type BallotStatus int

const (
	Active BallotStatus = iota
	InactiveByUndervote
	InactiveByOvervote
	InactiveBySkippedRanking
	InactiveByRepeatedRanking
	InactiveByExhaustedChoices
)

func (s BallotStatus) String() string {
	switch s {
	case Active:
		return "active"
	case InactiveByUndervote:
		return "inactive-by-undervote"
	case InactiveByOvervote:
		return "inactive-by-overvote"
	case InactiveBySkippedRanking:
		return "inactive-by-skipped-ranking"
	case InactiveByRepeatedRanking:
		return "inactive-by-repeated-ranking"
	case InactiveByExhaustedChoices:
		return "inactive-by-exhausted-choices"
	default:
		return "unknown"
	}
}

// RoundOutcome is one entry in a ballot's per-round audit trail: what it
// counted for (or why it stopped) in a given round.
type RoundOutcome struct {
	Round             int
	Recipient         string // candidate ID, or "" if none (e.g. undervote at round 1)
	StatusAfterRound  BallotStatus
	TransferValue     decimal.Decimal
	Note              string // human-readable reason, e.g. "overvote: EXHAUST_IMMEDIATELY"
}

// CDFSnapshot records a ballot's allocation of value to candidates at one
// round boundary. The tabulator records only the candidate the ballot
// counts for in that round; value left with past winners is not included
// in the map. Only populated
// when the caller's config enables CDF JSON generation — a deliberately
// expensive snapshot, not taken by default.
type CDFSnapshot struct {
	Round      int
	Allocation map[string]decimal.Decimal
}

// CastVoteRecord is one voter's ballot plus all the mutable bookkeeping the
// tabulator needs across rounds.
type CastVoteRecord struct {
	ID          string
	Precinct    string
	TabulatorID string
	BatchID     string

	Rankings rankings.CandidateRankings

	// CurrentRecipient is the candidate this ballot currently counts for.
	// Empty when Status is not Active.
	CurrentRecipient string
	Status           BallotStatus

	// FractionalTransferValue is the fraction of a vote this ballot is
	// currently worth, starting at 1 and shrinking every time it transfers
	// from a winner with a surplus.
	FractionalTransferValue decimal.Decimal

	// WinnerToFractionalValue records, for every past winner this ballot
	// has counted for, the portion of its value that stayed with that
	// winner when the rest moved on as surplus — used to reconstruct
	// carry-forward tallies without re-walking the whole history.
	WinnerToFractionalValue map[string]decimal.Decimal

	outcomes  []RoundOutcome
	snapshots []CDFSnapshot

	lastRank int
	seen     map[string]bool
}

// New builds an active CastVoteRecord with a full (1.0) transfer value and
// no recorded recipient yet; the tabulator assigns CurrentRecipient on the
// first pass of round 1.
func New(id, precinct string, r rankings.CandidateRankings) *CastVoteRecord {
	return &CastVoteRecord{
		ID:                      id,
		Precinct:                precinct,
		Rankings:                r,
		Status:                  Active,
		FractionalTransferValue: decimal.NewFromInt(1),
		WinnerToFractionalValue: map[string]decimal.Decimal{},
		seen:                    map[string]bool{},
	}
}

// LastRank returns the highest rank this ballot has already been walked
// through while seeking a recipient. A fresh ballot's walk starts at rank
// 1; a ballot that is re-seeking because its recipient was just eliminated
// resumes at LastRank()+1 rather than re-examining earlier ranks.
func (c *CastVoteRecord) LastRank() int {
	return c.lastRank
}

// AdvanceLastRank records that this ballot's walk has now examined rank.
// It is a no-op if rank does not move the position forward.
func (c *CastVoteRecord) AdvanceLastRank(rank int) {
	if rank > c.lastRank {
		c.lastRank = rank
	}
}

// HasSeen reports whether candidateID has already been encountered at any
// rank this ballot has walked through, including ranks from earlier
// rounds.
func (c *CastVoteRecord) HasSeen(candidateID string) bool {
	return c.seen[candidateID]
}

// MarkSeen records that candidateID has now been encountered on this
// ballot's walk.
func (c *CastVoteRecord) MarkSeen(candidateID string) {
	c.seen[candidateID] = true
}

// IsActive reports whether this ballot is still counting for anyone.
func (c *CastVoteRecord) IsActive() bool {
	return c.Status == Active
}

// RecordOutcome appends an entry to this ballot's per-round audit trail and
// updates its live status/recipient/value.
func (c *CastVoteRecord) RecordOutcome(round int, recipient string, status BallotStatus, value decimal.Decimal, note string) {
	c.CurrentRecipient = recipient
	c.Status = status
	c.FractionalTransferValue = value
	c.outcomes = append(c.outcomes, RoundOutcome{
		Round:            round,
		Recipient:        recipient,
		StatusAfterRound: status,
		TransferValue:    value,
		Note:             note,
	})
}

// Outcomes returns the ballot's full per-round audit trail, in round order.
func (c *CastVoteRecord) Outcomes() []RoundOutcome {
	return c.outcomes
}

// RecordWinnerDeparture remembers the portion of this ballot's value that
// stays with winner as the ballot moves on, so a later tally carry-forward
// pass can reconstruct how much of this ballot's value is still
// attributable to that winner's already-elected tally.
func (c *CastVoteRecord) RecordWinnerDeparture(winner string, valueAtDeparture decimal.Decimal) {
	c.WinnerToFractionalValue[winner] = valueAtDeparture
}

// LogCDFSnapshot appends a CDF snapshot for this round. Callers must gate
// this behind config.GenerateCDFJSONEnabled themselves — CastVoteRecord
// does not know about config.
func (c *CastVoteRecord) LogCDFSnapshot(round int, allocation map[string]decimal.Decimal) {
	copied := make(map[string]decimal.Decimal, len(allocation))
	for k, v := range allocation {
		copied[k] = v
	}
	c.snapshots = append(c.snapshots, CDFSnapshot{Round: round, Allocation: copied})
}

// CDFSnapshots returns every CDF snapshot recorded so far, in round order.
func (c *CastVoteRecord) CDFSnapshots() []CDFSnapshot {
	return c.snapshots
}
