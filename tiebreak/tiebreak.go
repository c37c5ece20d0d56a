// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package tiebreak resolves a tied set of candidates down to a single one,
// using whichever of the six configured tiebreak modes the contest calls
// for. Resolution is always deterministic given the same inputs and the
// same seeded random source — nothing in this package reads wall-clock
// time or any other source of real nondeterminism.
package tiebreak

import (
	"fmt"
	"math/rand"

	"golang.org/x/exp/slices"

	"github.com/mesutgk15/rcv/config"
	"github.com/mesutgk15/rcv/tally"
)

// Purpose distinguishes picking a winner out of a tied set from picking a
// loser out of one; PREVIOUS_ROUND_COUNTS_THEN_* and permutation-based
// modes resolve each direction differently.
type Purpose int

const (
	// SelectLoser picks which tied candidate is eliminated (the common
	// case: two or more candidates tied for last place).
	SelectLoser Purpose = iota
	// SelectWinner picks which tied candidate is elected (tied for a
	// winning threshold, or the last two candidates tied for first).
	SelectWinner
)

// InteractiveResolver lets a caller supply a human decision for
// INTERACTIVE and PREVIOUS_ROUND_COUNTS_THEN_INTERACTIVE modes. This
// module ships no implementation; cmd/rcvtab passes none, so a tie that
// reaches an interactive mode there ends in an error.
type InteractiveResolver interface {
	ResolveTie(candidates []string, purpose Purpose) (string, error)
}

// Tiebreak resolves ties for one contest. It is stateful only in that it
// owns the random source; for GENERATE_PERMUTATION, the permutation it
// generates once is stored on the config via SetCandidatePermutation and
// reused for the rest of the tabulation.
type Tiebreak struct {
	cfg      config.ContestConfig
	rng      *rand.Rand
	resolver InteractiveResolver
}

// New builds a Tiebreak for cfg. rng must be non-nil whenever
// cfg.NeedsRandomSeed() is true; resolver must be non-nil whenever the
// configured mode is interactive.
func New(cfg config.ContestConfig, rng *rand.Rand, resolver InteractiveResolver) *Tiebreak {
	return &Tiebreak{cfg: cfg, rng: rng, resolver: resolver}
}

// Break resolves tied down to one candidate ID. priorRounds is every
// RoundTally computed so far, oldest first; it may be empty for a tie in
// round 1.
func (tb *Tiebreak) Break(tied []string, purpose Purpose, priorRounds []*tally.RoundTally) (string, error) {
	if len(tied) == 0 {
		return "", fmt.Errorf("tiebreak: cannot break a tie among zero candidates")
	}
	sorted := append([]string(nil), tied...)
	slices.Sort(sorted)
	if len(sorted) == 1 {
		return sorted[0], nil
	}

	switch tb.cfg.TiebreakMode() {
	case config.Random:
		return tb.random(sorted)
	case config.Interactive:
		return tb.interactive(sorted, purpose)
	case config.PreviousRoundCountsThenRandom:
		if winner, ok := tb.byPreviousRoundCounts(sorted, purpose, priorRounds); ok {
			return winner, nil
		}
		return tb.random(sorted)
	case config.PreviousRoundCountsThenInteractive:
		if winner, ok := tb.byPreviousRoundCounts(sorted, purpose, priorRounds); ok {
			return winner, nil
		}
		return tb.interactive(sorted, purpose)
	case config.UsePermutationInConfig:
		return tb.byPermutation(sorted, purpose, tb.cfg.CandidatePermutation())
	case config.GeneratePermutation:
		perm := tb.cfg.CandidatePermutation()
		if len(perm) == 0 {
			perm = tb.generatePermutation()
			tb.cfg.SetCandidatePermutation(perm)
		}
		return tb.byPermutation(sorted, purpose, perm)
	default:
		return "", fmt.Errorf("tiebreak: unknown tiebreak mode %d", tb.cfg.TiebreakMode())
	}
}

func (tb *Tiebreak) random(sorted []string) (string, error) {
	if tb.rng == nil {
		return "", fmt.Errorf("tiebreak: random tiebreak requires a seeded random source")
	}
	return sorted[tb.rng.Intn(len(sorted))], nil
}

func (tb *Tiebreak) interactive(sorted []string, purpose Purpose) (string, error) {
	if tb.resolver == nil {
		return "", fmt.Errorf("tiebreak: interactive tiebreak requires a resolver")
	}
	return tb.resolver.ResolveTie(sorted, purpose)
}

// byPreviousRoundCounts walks priorRounds from most recent to least
// recent looking for a round where the tied candidates' vote counts were
// not themselves all equal. The first such round breaks the tie: for
// SelectLoser the candidate with the fewest votes that round loses; for
// SelectWinner the candidate with the most votes that round wins. If every
// prior round was also an exact tie among these candidates, ok is false
// and the caller falls back to random or interactive resolution.
func (tb *Tiebreak) byPreviousRoundCounts(sorted []string, purpose Purpose, priorRounds []*tally.RoundTally) (string, bool) {
	for i := len(priorRounds) - 1; i >= 0; i-- {
		round := priorRounds[i]
		best := sorted[0]
		bestVotes := round.VotesFor(best)
		allEqual := true
		for _, c := range sorted[1:] {
			v := round.VotesFor(c)
			if !v.Equal(bestVotes) {
				allEqual = false
			}
			if purpose == SelectWinner && v.GreaterThan(bestVotes) {
				best, bestVotes = c, v
			}
			if purpose == SelectLoser && v.LessThan(bestVotes) {
				best, bestVotes = c, v
			}
		}
		if !allEqual {
			return best, true
		}
	}
	return "", false
}

// byPermutation resolves a tie using the configured candidate priority
// order: index 0 is the highest winner priority and lowest loser priority.
// For SelectWinner, the tied candidate appearing earliest in perm wins;
// for SelectLoser, the tied candidate appearing latest in perm loses.
func (tb *Tiebreak) byPermutation(sorted []string, purpose Purpose, perm []string) (string, error) {
	if len(perm) == 0 {
		return "", fmt.Errorf("tiebreak: no candidate permutation configured")
	}
	index := make(map[string]int, len(perm))
	for i, id := range perm {
		index[id] = i
	}
	best := sorted[0]
	bestIdx, ok := index[best]
	if !ok {
		return "", fmt.Errorf("tiebreak: candidate %q missing from permutation", best)
	}
	for _, c := range sorted[1:] {
		idx, ok := index[c]
		if !ok {
			return "", fmt.Errorf("tiebreak: candidate %q missing from permutation", c)
		}
		switch purpose {
		case SelectWinner:
			if idx < bestIdx {
				best, bestIdx = c, idx
			}
		case SelectLoser:
			if idx > bestIdx {
				best, bestIdx = c, idx
			}
		}
	}
	return best, nil
}

// generatePermutation produces a random priority order over every
// candidate this Tiebreak knows about, once, via Fisher-Yates using the
// seeded random source. Callers that need it logged for audit do so with
// the returned slice.
func (tb *Tiebreak) generatePermutation() []string {
	names := append([]string(nil), tb.cfg.CandidateNames()...)
	slices.Sort(names)
	if tb.rng == nil {
		return names
	}
	tb.rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})
	return names
}
