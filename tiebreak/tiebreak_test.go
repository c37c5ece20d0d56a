// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tiebreak

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/config"
	"github.com/mesutgk15/rcv/tally"
)

func newCfg(mode config.TiebreakMode, names []string) *config.Static {
	c := config.NewStatic(names)
	c.Tiebreak = mode
	return c
}

func TestBreakSingleCandidateShortCircuits(t *testing.T) {
	tb := New(newCfg(config.Random, []string{"alice"}), rand.New(rand.NewSource(1)), nil)
	got, err := tb.Break([]string{"alice"}, SelectLoser, nil)
	if err != nil || got != "alice" {
		t.Fatalf("Break() = %v, %v; want alice, nil", got, err)
	}
}

func TestBreakRandomIsDeterministicForSeed(t *testing.T) {
	cfg := newCfg(config.Random, []string{"alice", "bob", "carol"})
	tb1 := New(cfg, rand.New(rand.NewSource(42)), nil)
	tb2 := New(cfg, rand.New(rand.NewSource(42)), nil)

	got1, err1 := tb1.Break([]string{"bob", "alice", "carol"}, SelectLoser, nil)
	got2, err2 := tb2.Break([]string{"bob", "alice", "carol"}, SelectLoser, nil)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if got1 != got2 {
		t.Fatalf("same seed produced different results: %q vs %q", got1, got2)
	}
}

func TestBreakRandomWithoutRNGErrors(t *testing.T) {
	tb := New(newCfg(config.Random, []string{"alice", "bob"}), nil, nil)
	_, err := tb.Break([]string{"alice", "bob"}, SelectLoser, nil)
	if err == nil {
		t.Fatal("expected error when random tiebreak has no RNG")
	}
}

func TestByPreviousRoundCountsBreaksTieForLoser(t *testing.T) {
	cfg := newCfg(config.PreviousRoundCountsThenRandom, []string{"alice", "bob"})
	tb := New(cfg, rand.New(rand.NewSource(1)), nil)

	round1 := tally.New(1)
	round1.AddVote("alice", decimal.NewFromInt(10))
	round1.AddVote("bob", decimal.NewFromInt(5))

	got, err := tb.Break([]string{"alice", "bob"}, SelectLoser, []*tally.RoundTally{round1})
	if err != nil {
		t.Fatal(err)
	}
	if got != "bob" {
		t.Fatalf("expected bob (fewer votes previously) to lose, got %q", got)
	}
}

func TestByPreviousRoundCountsFallsBackWhenAlwaysTied(t *testing.T) {
	cfg := newCfg(config.PreviousRoundCountsThenRandom, []string{"alice", "bob"})
	tb := New(cfg, rand.New(rand.NewSource(7)), nil)

	round1 := tally.New(1)
	round1.AddVote("alice", decimal.NewFromInt(5))
	round1.AddVote("bob", decimal.NewFromInt(5))

	got, err := tb.Break([]string{"alice", "bob"}, SelectLoser, []*tally.RoundTally{round1})
	if err != nil {
		t.Fatal(err)
	}
	if got != "alice" && got != "bob" {
		t.Fatalf("expected a fallback random pick among alice/bob, got %q", got)
	}
}

func TestByPermutationSelectsExtremalIndex(t *testing.T) {
	cfg := newCfg(config.UsePermutationInConfig, []string{"alice", "bob", "carol"})
	cfg.SetCandidatePermutation([]string{"carol", "alice", "bob"})
	tb := New(cfg, nil, nil)

	loser, err := tb.Break([]string{"alice", "bob"}, SelectLoser, nil)
	if err != nil || loser != "bob" {
		t.Fatalf("SelectLoser = %v, %v; want bob, nil", loser, err)
	}

	winner, err := tb.Break([]string{"alice", "bob"}, SelectWinner, nil)
	if err != nil || winner != "alice" {
		t.Fatalf("SelectWinner = %v, %v; want alice, nil", winner, err)
	}
}

func TestGeneratePermutationIsStoredAndReused(t *testing.T) {
	cfg := newCfg(config.GeneratePermutation, []string{"alice", "bob", "carol"})
	tb := New(cfg, rand.New(rand.NewSource(3)), nil)

	if _, err := tb.Break([]string{"alice", "bob"}, SelectLoser, nil); err != nil {
		t.Fatal(err)
	}
	first := append([]string(nil), cfg.CandidatePermutation()...)
	if len(first) != 3 {
		t.Fatalf("expected a 3-candidate permutation to be generated, got %v", first)
	}

	if _, err := tb.Break([]string{"bob", "carol"}, SelectWinner, nil); err != nil {
		t.Fatal(err)
	}
	second := cfg.CandidatePermutation()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("permutation should be generated once and reused: %v vs %v", first, second)
		}
	}
}

func TestInteractiveWithoutResolverErrors(t *testing.T) {
	tb := New(newCfg(config.Interactive, []string{"alice", "bob"}), nil, nil)
	_, err := tb.Break([]string{"alice", "bob"}, SelectLoser, nil)
	if err == nil {
		t.Fatal("expected error when interactive tiebreak has no resolver")
	}
}

type fixedResolver struct{ pick string }

func (f fixedResolver) ResolveTie(candidates []string, purpose Purpose) (string, error) {
	return f.pick, nil
}

func TestInteractiveUsesResolver(t *testing.T) {
	tb := New(newCfg(config.Interactive, []string{"alice", "bob"}), nil, fixedResolver{pick: "alice"})
	got, err := tb.Break([]string{"alice", "bob"}, SelectLoser, nil)
	if err != nil || got != "alice" {
		t.Fatalf("Break() = %v, %v; want alice, nil", got, err)
	}
}
