// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package precinct mirrors the overall tabulation's round tallies and
// transfers on a per-precinct basis, when a contest has precinct-level
// reporting enabled. Every precinct that will ever be recorded against
// must be known up front — precinct.New validates the full known-precinct
// set eagerly, the same way the tabulator validates it at construction
// time rather than discovering an unknown precinct mid-round.
package precinct

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/mesutgk15/rcv/tally"
	"github.com/mesutgk15/rcv/transfer"
)

// PrecinctTabulation holds one RoundTally and one TallyTransfers ledger
// per known precinct.
type PrecinctTabulation struct {
	known     map[string]bool
	tallies   map[string]map[int]*tally.RoundTally
	transfers map[string]*transfer.TallyTransfers
}

// New validates precinctIDs (every one must be non-blank; duplicates
// collapse) and returns a PrecinctTabulation ready to record against them.
// A blank precinct ID is a fatal configuration error, validated eagerly
// at construction time.
func New(precinctIDs []string) (*PrecinctTabulation, error) {
	known := make(map[string]bool, len(precinctIDs))
	for _, id := range precinctIDs {
		if id == "" {
			return nil, fmt.Errorf("precinct: blank precinct ID is not allowed when precinct tabulation is enabled")
		}
		known[id] = true
	}
	return &PrecinctTabulation{
		known:     known,
		tallies:   map[string]map[int]*tally.RoundTally{},
		transfers: map[string]*transfer.TallyTransfers{},
	}, nil
}

// IsKnown reports whether precinctID was part of the set validated at
// construction time.
func (p *PrecinctTabulation) IsKnown(precinctID string) bool {
	return p.known[precinctID]
}

// KnownPrecincts returns every known precinct ID in deterministic sorted
// order.
func (p *PrecinctTabulation) KnownPrecincts() []string {
	ids := maps.Keys(p.known)
	slices.Sort(ids)
	return ids
}

// RoundTally returns the RoundTally for precinctID and round, creating an
// empty unlocked one on first access.
func (p *PrecinctTabulation) RoundTally(precinctID string, round int) (*tally.RoundTally, error) {
	if !p.known[precinctID] {
		return nil, fmt.Errorf("precinct: unknown precinct %q", precinctID)
	}
	byRound, ok := p.tallies[precinctID]
	if !ok {
		byRound = map[int]*tally.RoundTally{}
		p.tallies[precinctID] = byRound
	}
	rt, ok := byRound[round]
	if !ok {
		rt = tally.New(round)
		byRound[round] = rt
	}
	return rt, nil
}

// Transfers returns the TallyTransfers ledger for precinctID, creating an
// empty one on first access. Recording against an unknown precinct is
// fatal, not a silent skip.
func (p *PrecinctTabulation) Transfers(precinctID string) (*transfer.TallyTransfers, error) {
	if !p.known[precinctID] {
		return nil, fmt.Errorf("precinct: unknown precinct %q during transfer recording", precinctID)
	}
	t, ok := p.transfers[precinctID]
	if !ok {
		t = transfer.New()
		p.transfers[precinctID] = t
	}
	return t, nil
}

// RecordVote adds value votes for candidateID to precinctID's round tally.
func (p *PrecinctTabulation) RecordVote(precinctID string, round int, candidateID string, value decimal.Decimal) error {
	rt, err := p.RoundTally(precinctID, round)
	if err != nil {
		return err
	}
	rt.AddVote(candidateID, value)
	return nil
}

// RecordTransfer records a source-to-target transfer for precinctID in
// round.
func (p *PrecinctTabulation) RecordTransfer(precinctID string, round int, source, target string, value decimal.Decimal) error {
	t, err := p.Transfers(precinctID)
	if err != nil {
		return err
	}
	t.Record(round, source, target, value)
	return nil
}

// UnlockRoundForCarryForward reopens precinctID's round RoundTally for
// mutation, used by the winner-tally carry-forward to set past winners'
// entries on that round's precinct tally.
func (p *PrecinctTabulation) UnlockRoundForCarryForward(precinctID string, round int) error {
	rt, err := p.RoundTally(precinctID, round)
	if err != nil {
		return err
	}
	rt.Unlock()
	return nil
}
