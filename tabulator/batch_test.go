// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tabulator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/config"
	"github.com/mesutgk15/rcv/tally"
)

// newBatchTabulator builds a bare Tabulator sufficient for exercising
// runBatchElimination directly, without running a full Tabulate pass.
func newBatchTabulator(t *testing.T, cfg config.ContestConfig) *Tabulator {
	tb, err := New(cfg, nil, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return tb
}

func tallyWithVotes(round int, votes map[string]int64) *tally.RoundTally {
	rt := tally.New(round)
	for id, v := range votes {
		rt.AddVote(id, decimal.NewFromInt(v))
	}
	return rt
}

func TestRunBatchEliminationAccumulatesRunningTotal(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob", "carol"})
	cfg.BatchElimination = true
	tb := newBatchTabulator(t, cfg)

	rt := tallyWithVotes(1, map[string]int64{"alice": 10, "bob": 20, "carol": 30})
	got := tb.runBatchElimination([]string{"alice", "bob", "carol"}, rt)
	if len(got) != 1 || got[0] != "alice" {
		t.Fatalf("eliminations = %v, want [alice]", got)
	}
}

// TestRunBatchEliminationRewindsUnderContinueUntilTwo asserts the
// single-rewind behavior: a batch that would otherwise leave fewer than
// two candidates continuing gives back its most recent elimination, so
// exactly two candidates remain.
func TestRunBatchEliminationRewindsUnderContinueUntilTwo(t *testing.T) {
	cfg := config.NewStatic([]string{"a", "b", "c", "d", "e"})
	cfg.BatchElimination = true
	cfg.ContinueUntilTwo = true
	tb := newBatchTabulator(t, cfg)

	continuing := []string{"a", "b", "c", "d", "e"}
	votes := map[string]int64{"a": 1, "b": 2, "c": 4, "d": 8, "e": 100}
	rt := tallyWithVotes(1, votes)

	got := tb.runBatchElimination(continuing, rt)

	if len(continuing)-len(got) < 2 {
		t.Fatalf("rewind invariant violated: %d candidates eliminated out of %d, would leave fewer than two", len(got), len(continuing))
	}
	if len(got) != 3 {
		t.Fatalf("eliminations = %v, want 3 candidates (one rewound from the full batch of 4)", got)
	}
}
