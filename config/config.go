// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package config defines the contest configuration surface the tabulation
// engine consumes. Loading, validating, and editing that configuration is
// explicitly out of scope for this module — ContestConfig is an interface
// so a caller's own validated config type can satisfy it directly. Static
// is a minimal in-memory implementation used by this module's own tests,
// the demo CLI, and cvrstore fixtures.
package config

import (
	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/arith"
	"github.com/mesutgk15/rcv/candidate"
)

// OvervoteRule determines how an overvote (two or more candidates marked
// at one rank) is handled.
type OvervoteRule int

const (
	AlwaysSkipToNextRank OvervoteRule = iota
	ExhaustImmediately
	ExhaustIfMultipleContinuing
)

// TiebreakMode determines how a tied set of candidates is resolved.
type TiebreakMode int

const (
	Random TiebreakMode = iota
	Interactive
	PreviousRoundCountsThenRandom
	PreviousRoundCountsThenInteractive
	UsePermutationInConfig
	GeneratePermutation
)

// WinnerElectionMode selects the family of RCV rules in play.
type WinnerElectionMode int

const (
	SingleWinnerMajority WinnerElectionMode = iota
	MultiSeatAllowOnlyOneWinnerPerRound
	MultiSeatAllowMultipleWinnersPerRound
	MultiSeatBottomsUpUntilNWinners
	MultiSeatBottomsUpUsingPercentageThreshold
	MultiSeatSequentialWinnerTakesAll
)

// MaxSkippedRanksUnlimited represents a "max_skipped_ranks_allowed =
// infinity" setting.
const MaxSkippedRanksUnlimited = -1

// ContestConfig is everything the tabulator needs to know about contest
// rules for a single race.
type ContestConfig interface {
	NumWinners() int
	NumCandidates() int
	CandidateNames() []string
	CandidateIsExcluded(name string) bool
	NameForCandidate(name string) string

	OvervoteRule() OvervoteRule
	TiebreakMode() TiebreakMode
	WinnerElectionMode() WinnerElectionMode

	MaxSkippedRanksAllowed() int // MaxSkippedRanksUnlimited for infinity
	MaxRankingsAllowed() int
	ExhaustOnDuplicateCandidate() bool

	BatchEliminationEnabled() bool
	ContinueUntilTwoCandidatesRemain() bool
	FirstRoundDeterminesThreshold() bool
	HareQuotaEnabled() bool

	MultiSeatBottomsUpWithThresholdEnabled() bool
	MultiSeatBottomsUpPercentageThreshold() decimal.Decimal
	MultiSeatOneWinnerPerRoundEnabled() bool
	MultiSeatSequentialEnabled() bool

	TabulateByPrecinctEnabled() bool
	GenerateCDFJSONEnabled() bool

	MinimumVoteThreshold() decimal.Decimal
	DecimalPlaces() int
	NonIntegerThresholdsEnabled() bool

	NeedsRandomSeed() bool
	RandomSeed() int64
	// CandidatePermutation returns the configured tiebreak permutation
	// (first = winner priority, last = loser priority). Implementations
	// using GeneratePermutation must mutate and return the same backing
	// slice the tiebreak package seeded via SetCandidatePermutation.
	CandidatePermutation() []string
	SetCandidatePermutation(order []string)

	StopTabulationEarlyAfterRound() int // 0 or negative means "never"

	Divide(x, y decimal.Decimal) decimal.Decimal
	Multiply(x, y decimal.Decimal) decimal.Decimal
}

// Static is a minimal, directly-constructed ContestConfig. It performs no
// validation of its own — validating a contest's configuration is the
// config-loading layer's job, not this engine's.
type Static struct {
	Winners                  int
	Names                    []string
	Excluded                 map[string]bool
	Overvote                 OvervoteRule
	Tiebreak                 TiebreakMode
	ElectionMode             WinnerElectionMode
	MaxSkippedRanks          int
	MaxRankings              int
	ExhaustOnDuplicate       bool
	BatchElimination         bool
	ContinueUntilTwo         bool
	FirstRoundThreshold      bool
	HareQuota                bool
	BottomsUpThreshold       bool
	BottomsUpPercentage      decimal.Decimal
	OneWinnerPerRound        bool
	Sequential               bool
	TabulateByPrecinct       bool
	GenerateCDFJSON          bool
	MinimumThreshold         decimal.Decimal
	Decimals                 int
	NonIntegerThresholds     bool
	Seed                     int64
	Permutation              []string
	StopEarlyAfterRound      int

	arithmetic arith.DecimalArith
}

// NewStatic builds a Static config with sane defaults (single-winner IRV,
// exhaust-immediately overvotes, no skipped-rank limit, 4 decimal places)
// that callers override field by field.
func NewStatic(names []string) *Static {
	s := &Static{
		Winners:          1,
		Names:            names,
		Excluded:         map[string]bool{},
		Overvote:         ExhaustImmediately,
		Tiebreak:         Random,
		ElectionMode:     SingleWinnerMajority,
		MaxSkippedRanks:  MaxSkippedRanksUnlimited,
		MaxRankings:      len(names),
		Decimals:         4,
		MinimumThreshold: decimal.Zero,
	}
	s.arithmetic = arith.New(s.Decimals)
	return s
}

func (s *Static) ensureArith() arith.DecimalArith {
	if s.arithmetic.DecimalPlaces() != s.Decimals {
		s.arithmetic = arith.New(s.Decimals)
	}
	return s.arithmetic
}

func (s *Static) NumWinners() int            { return s.Winners }
func (s *Static) NumCandidates() int         { return len(s.Names) }
func (s *Static) CandidateNames() []string   { return s.Names }
func (s *Static) CandidateIsExcluded(name string) bool {
	return s.Excluded[name]
}
func (s *Static) NameForCandidate(name string) string { return name }

func (s *Static) OvervoteRule() OvervoteRule             { return s.Overvote }
func (s *Static) TiebreakMode() TiebreakMode              { return s.Tiebreak }
func (s *Static) WinnerElectionMode() WinnerElectionMode  { return s.ElectionMode }

func (s *Static) MaxSkippedRanksAllowed() int      { return s.MaxSkippedRanks }
func (s *Static) MaxRankingsAllowed() int          { return s.MaxRankings }
func (s *Static) ExhaustOnDuplicateCandidate() bool { return s.ExhaustOnDuplicate }

func (s *Static) BatchEliminationEnabled() bool          { return s.BatchElimination }
func (s *Static) ContinueUntilTwoCandidatesRemain() bool { return s.ContinueUntilTwo }
func (s *Static) FirstRoundDeterminesThreshold() bool    { return s.FirstRoundThreshold }
func (s *Static) HareQuotaEnabled() bool                 { return s.HareQuota }

func (s *Static) MultiSeatBottomsUpWithThresholdEnabled() bool { return s.BottomsUpThreshold }
func (s *Static) MultiSeatBottomsUpPercentageThreshold() decimal.Decimal {
	return s.BottomsUpPercentage
}
func (s *Static) MultiSeatOneWinnerPerRoundEnabled() bool { return s.OneWinnerPerRound }
func (s *Static) MultiSeatSequentialEnabled() bool        { return s.Sequential }

func (s *Static) TabulateByPrecinctEnabled() bool { return s.TabulateByPrecinct }
func (s *Static) GenerateCDFJSONEnabled() bool    { return s.GenerateCDFJSON }

func (s *Static) MinimumVoteThreshold() decimal.Decimal { return s.MinimumThreshold }
func (s *Static) DecimalPlaces() int                    { return s.Decimals }
func (s *Static) NonIntegerThresholdsEnabled() bool     { return s.NonIntegerThresholds }

func (s *Static) NeedsRandomSeed() bool {
	switch s.Tiebreak {
	case Random, PreviousRoundCountsThenRandom, GeneratePermutation:
		return true
	default:
		return false
	}
}
func (s *Static) RandomSeed() int64 { return s.Seed }

func (s *Static) CandidatePermutation() []string { return s.Permutation }
func (s *Static) SetCandidatePermutation(order []string) {
	s.Permutation = order
}

func (s *Static) StopTabulationEarlyAfterRound() int { return s.StopEarlyAfterRound }

func (s *Static) Divide(x, y decimal.Decimal) decimal.Decimal {
	return s.ensureArith().Divide(x, y, arith.RoundDown)
}
func (s *Static) Multiply(x, y decimal.Decimal) decimal.Decimal {
	return s.ensureArith().Mul(x, y)
}

// NumDeclaredCandidates returns the candidate count excluding the
// undeclared-write-in bucket, the count the "all declared candidates are
// below the minimum threshold" check uses.
func NumDeclaredCandidates(cfg ContestConfig) int {
	count := 0
	for _, name := range cfg.CandidateNames() {
		if name != candidate.UndeclaredWriteIn {
			count++
		}
	}
	return count
}
