// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package overvote decides what happens when a ballot marks more than one
// candidate at the same rank. It is pure: given the marked candidates, the
// configured rule, and a callback telling it which of those candidates are
// still continuing, it returns a decision with no side effects and no
// dependency on the tabulator's round-loop state.
package overvote

import (
	"fmt"

	"github.com/mesutgk15/rcv/candidate"
	"github.com/mesutgk15/rcv/config"
	"github.com/mesutgk15/rcv/rankings"
)

// Decision is the closed set of outcomes an overvote decision can produce.
type Decision int

const (
	// None means this ranking is not an overvote at all (zero or one
	// candidate marked).
	None Decision = iota
	// Exhaust means the ballot becomes inactive immediately.
	Exhaust
	// SkipToNextRank means the tabulator should ignore this rank and
	// continue scanning the ballot's remaining ranks as if this one were
	// blank.
	SkipToNextRank
)

func (d Decision) String() string {
	switch d {
	case None:
		return "none"
	case Exhaust:
		return "exhaust"
	case SkipToNextRank:
		return "skip-to-next-rank"
	default:
		return "unknown"
	}
}

// Decide applies rule to the candidates marked at one ranking.
// isContinuing reports whether a candidate ID is still in the running;
// it's a callback rather than a dependency on the tabulator package to
// keep this package free of that import cycle.
//
// An explicit overvote mark (candidate.ExplicitOvervote) recorded alongside
// any other candidate at the same rank is a CVR-construction bug, not a
// tabulation-time condition — Decide returns a fatal error rather than
// guessing at a decision.
func Decide(candidatesAtRank rankings.CandidatesAtRanking, rule config.OvervoteRule, isContinuing func(string) bool) (Decision, error) {
	if candidatesAtRank.Contains(candidate.ExplicitOvervote) {
		if candidatesAtRank.Count() > 1 {
			return None, fmt.Errorf("overvote: explicit overvote mark recorded alongside %d other candidate(s) at the same rank", candidatesAtRank.Count()-1)
		}
		if rule == config.ExhaustImmediately {
			return Exhaust, nil
		}
		return SkipToNextRank, nil
	}

	if candidatesAtRank.Count() <= 1 {
		return None, nil
	}

	switch rule {
	case config.ExhaustImmediately:
		return Exhaust, nil
	case config.AlwaysSkipToNextRank:
		return SkipToNextRank, nil
	case config.ExhaustIfMultipleContinuing:
		numContinuing := 0
		for _, id := range candidatesAtRank.Candidates() {
			if isContinuing(id) {
				numContinuing++
			}
		}
		if numContinuing > 1 {
			return Exhaust, nil
		}
		return SkipToNextRank, nil
	default:
		return None, fmt.Errorf("overvote: unknown overvote rule %d", rule)
	}
}
