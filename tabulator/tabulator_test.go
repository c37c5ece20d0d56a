// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tabulator

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/audit"
	"github.com/mesutgk15/rcv/config"
	"github.com/mesutgk15/rcv/cvr"
	"github.com/mesutgk15/rcv/rankings"
	"github.com/mesutgk15/rcv/tiebreak"
)

// tiebreakFor builds a Tiebreak for cfg with no random source or
// interactive resolver, sufficient for the deterministic tiebreak modes
// (UsePermutationInConfig, PreviousRoundCountsThen* when history settles
// the tie) exercised by these tests.
func tiebreakFor(cfg config.ContestConfig) *tiebreak.Tiebreak {
	return tiebreak.New(cfg, nil, nil)
}

func discardLogger() audit.Logger {
	return audit.NewSlogLogger(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func ballot(id string, ranks ...string) *cvr.CastVoteRecord {
	b := rankings.NewBuilder()
	for i, name := range ranks {
		b.Add(i+1, name)
	}
	return cvr.New(id, "precinct-1", b.Build())
}

func TestMajorityWinnerInRoundOne(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob", "carol"})
	cvrs := []*cvr.CastVoteRecord{
		ballot("1", "alice"),
		ballot("2", "alice"),
		ballot("3", "alice"),
		ballot("4", "bob"),
		ballot("5", "carol"),
	}
	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Winners) != 1 || result.Winners[0] != "alice" {
		t.Fatalf("Winners = %v, want [alice]", result.Winners)
	}
	if len(result.RoundTallies) != 1 {
		t.Fatalf("expected a single round, got %d", len(result.RoundTallies))
	}
}

func TestEliminationTransfersToNextChoice(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob", "carol"})
	cvrs := []*cvr.CastVoteRecord{
		ballot("1", "alice", "bob"),
		ballot("2", "alice", "bob"),
		ballot("3", "bob"),
		ballot("4", "carol", "bob"),
		ballot("5", "bob"),
	}
	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Winners) != 1 || result.Winners[0] != "bob" {
		t.Fatalf("Winners = %v, want [bob] after carol's vote transfers to bob", result.Winners)
	}
	if len(result.RoundTallies) < 2 {
		t.Fatalf("expected at least 2 rounds (carol eliminated, transferred), got %d", len(result.RoundTallies))
	}
}

func TestUndervoteBecomesInactiveImmediately(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob"})
	cvrs := []*cvr.CastVoteRecord{
		ballot("1", "alice"),
		ballot("2"), // undervote: no rankings at all
	}
	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	first := result.RoundTallies[0]
	if first.InactiveByReason(cvr.InactiveByUndervote).IsZero() {
		t.Fatal("expected one undervote ballot to be recorded inactive in round 1")
	}
}

func TestOvervoteExhaustsImmediatelyByDefault(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob"})
	b := rankings.NewBuilder().Add(1, "alice", "bob").Build()
	overvoteBallot := cvr.New("1", "precinct-1", b)
	cvrs := []*cvr.CastVoteRecord{overvoteBallot, ballot("2", "alice")}

	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	first := result.RoundTallies[0]
	if first.InactiveByReason(cvr.InactiveByOvervote).IsZero() {
		t.Fatal("expected the overvote ballot to be recorded inactive by overvote in round 1")
	}
	if result.Winners[0] != "alice" {
		t.Fatalf("Winners = %v, want [alice]", result.Winners)
	}
}

// TestSkippedRankingGapInactivatesBallotMidWalk exercises
// exceedsSkippedRankGap directly: a ballot whose first mark is several
// ranks past where the walk starts, wider than MaxSkippedRanks tolerates,
// is classified InactiveBySkippedRanking the moment the walk reaches it —
// not carried through to the end of the walk the way a trailing blank is.
func TestSkippedRankingGapInactivatesBallotMidWalk(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob"})
	cfg.MaxSkippedRanks = 1 // tolerates a gap of at most 1 skipped rank

	gapped := cvr.New("1", "precinct-1", rankings.NewBuilder().Add(3, "alice").Build())
	cvrs := []*cvr.CastVoteRecord{gapped, ballot("2", "bob")}

	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	round1 := result.RoundTallies[0]
	if !round1.InactiveByReason(cvr.InactiveBySkippedRanking).Equal(decimal.NewFromInt(1)) {
		t.Fatalf("InactiveBySkippedRanking = %s, want 1 (the gapped ballot)", round1.InactiveByReason(cvr.InactiveBySkippedRanking))
	}
	if len(result.Winners) != 1 || result.Winners[0] != "bob" {
		t.Fatalf("Winners = %v, want [bob]", result.Winners)
	}
}

// TestTrailingBlankClassificationDependsOnSkipAllowance exercises
// trailingBlankIsUndervote: once a ballot's walk exhausts every populated
// ranking without landing on a continuing candidate, whether the gap
// between its last mark and MaxRankingsAllowed counts as an undervote or
// an exhausted ballot depends entirely on MaxSkippedRanks.
func TestTrailingBlankClassificationDependsOnSkipAllowance(t *testing.T) {
	newBallot := func() *cvr.CastVoteRecord {
		b := rankings.NewBuilder().Add(1, "alice").Build()
		return cvr.New("1", "precinct-1", b)
	}

	// MaxRankings(5) - LastRank(1) = 4, which exceeds a MaxSkippedRanks of
	// 1: the voter effectively stopped ranking early, so this reads as an
	// undervote.
	undervoteCfg := config.NewStatic([]string{"alice", "bob"})
	undervoteCfg.Excluded["alice"] = true
	undervoteCfg.MaxSkippedRanks = 1
	undervoteCfg.MaxRankings = 5

	tb, err := New(undervoteCfg, []*cvr.CastVoteRecord{newBallot()}, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	round1 := result.RoundTallies[0]
	if round1.InactiveByReason(cvr.InactiveByUndervote).IsZero() {
		t.Fatal("expected the ballot to be classified InactiveByUndervote")
	}

	// Same ballot, but MaxSkippedRanks(10) comfortably covers the same
	// 4-rank gap: no undervote, so it falls through to exhausted choices.
	exhaustedCfg := config.NewStatic([]string{"alice", "bob"})
	exhaustedCfg.Excluded["alice"] = true
	exhaustedCfg.MaxSkippedRanks = 10
	exhaustedCfg.MaxRankings = 5

	tb2, err := New(exhaustedCfg, []*cvr.CastVoteRecord{newBallot()}, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result2, err := tb2.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	round1b := result2.RoundTallies[0]
	if round1b.InactiveByReason(cvr.InactiveByExhaustedChoices).IsZero() {
		t.Fatal("expected the ballot to be classified InactiveByExhaustedChoices")
	}
}

func TestPermutationTiebreakResolvesEliminationTie(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob", "carol"})
	cfg.Tiebreak = config.UsePermutationInConfig
	cfg.SetCandidatePermutation([]string{"bob", "alice", "carol"})

	cvrs := []*cvr.CastVoteRecord{
		ballot("1", "alice"),
		ballot("2", "bob"),
		ballot("3", "bob"),
		ballot("4", "carol", "bob"),
	}
	tb, err := New(cfg, cvrs, discardLogger(), tiebreakFor(cfg))
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// alice and carol tie for last place in round 1; the permutation
	// ranks carol behind alice, so carol is eliminated and her vote
	// transfers to bob, giving bob the majority.
	if len(result.Winners) != 1 || result.Winners[0] != "bob" {
		t.Fatalf("Winners = %v, want [bob]", result.Winners)
	}
}

func TestContextCancellationAborts(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob"})
	cvrs := []*cvr.CastVoteRecord{ballot("1", "alice"), ballot("2", "bob")}
	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tb.Tabulate(ctx)
	if err == nil {
		t.Fatal("expected an AbortError for a cancelled context")
	}
	abortErr, ok := err.(*AbortError)
	if !ok || !abortErr.CancelledByUser {
		t.Fatalf("expected CancelledByUser AbortError, got %v", err)
	}
}

func TestMultiSeatSurplusDistributionElectsSecondWinner(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob", "carol"})
	cfg.Winners = 2
	cfg.ElectionMode = config.MultiSeatAllowMultipleWinnersPerRound

	var cvrs []*cvr.CastVoteRecord
	for i := 0; i < 4; i++ {
		cvrs = append(cvrs, ballot(idFor("ac", i), "alice", "carol"))
	}
	for i := 0; i < 4; i++ {
		cvrs = append(cvrs, ballot(idFor("ab", i), "alice", "bob"))
	}
	for i := 0; i < 4; i++ {
		cvrs = append(cvrs, ballot(idFor("b", i), "bob"))
	}

	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// 12 ballots, 2 seats: the Droop threshold is floor(12/3)+1 = 5. Alice
	// clears it outright in round 1 with 8 first-choice votes while bob's
	// 4 fall short; her surplus of 3 splits 0.375 per ballot between carol
	// (1.5 total) and bob (1.5 on top of his 4 first-choice ballots =
	// 5.5), pushing bob over the threshold in round 2 while carol falls
	// well short.
	if len(result.Winners) != 2 || result.Winners[0] != "alice" || result.Winners[1] != "bob" {
		t.Fatalf("Winners = %v, want [alice bob]", result.Winners)
	}
}

// TestMultiSeatWinnerTallyCarriesForwardAtThreshold exercises the
// past-winner carry-forward directly: a round after a winner is elected
// must still show that winner pinned at exactly the threshold in
// RoundTallies, not silently dropped to zero, and whatever the winner's
// retained ballot portions sum to past the threshold must be booked into
// RoundToResidualSurplus.
func TestMultiSeatWinnerTallyCarriesForwardAtThreshold(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob", "carol"})
	cfg.Winners = 2
	cfg.ElectionMode = config.MultiSeatAllowMultipleWinnersPerRound

	var cvrs []*cvr.CastVoteRecord
	for i := 0; i < 4; i++ {
		cvrs = append(cvrs, ballot(idFor("ac", i), "alice", "carol"))
	}
	for i := 0; i < 4; i++ {
		cvrs = append(cvrs, ballot(idFor("ab", i), "alice", "bob"))
	}
	for i := 0; i < 4; i++ {
		cvrs = append(cvrs, ballot(idFor("b", i), "bob"))
	}

	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Same 12-ballot, threshold-5 contest as the surplus-distribution
	// test above. Alice wins round 1 with a surplus of exactly 3, which
	// distributeSurplus moves on to carol and bob in full. Round 2's
	// fresh per-ballot walk never re-counts anything for alice (every
	// ballot that had been at her moved on in round 1), so without
	// carry-forward her round 2 tally would read zero. The carry-forward
	// must reconstruct what her 8 ballots left with her (1.0 minus the
	// 0.375 that moved on, 0.625 each, summing to exactly 5), find no
	// residual over the threshold, and pin her tally at the threshold.
	if len(result.RoundTallies) < 2 {
		t.Fatalf("expected at least 2 rounds, got %d", len(result.RoundTallies))
	}
	round2 := result.RoundTallies[1]
	threshold := decimal.NewFromInt(5)
	if !round2.VotesFor("alice").Equal(threshold) {
		t.Fatalf("round 2 alice tally = %s, want the threshold (%s) carried forward", round2.VotesFor("alice"), threshold)
	}
	if got := result.RoundToResidualSurplus[2]; !got.Equal(decimal.Zero) {
		t.Fatalf("RoundToResidualSurplus[2] = %s, want 0 (8 retained portions of 0.625 sum to the 5 threshold)", got)
	}

	// bob wins round 2 itself, so his own tally is pinned to the same
	// threshold by distributeSurplus rather than by carry-forward; both
	// winners of a 2-seat contest must read as exactly the threshold by
	// the final round.
	if !round2.VotesFor("bob").Equal(threshold) {
		t.Fatalf("round 2 bob tally = %s, want the threshold (%s)", round2.VotesFor("bob"), threshold)
	}
}

// TestMultiSeatThresholdStaysFixedAsBallotsExhaust exercises the
// multi-winner threshold-recomputation rule directly: the threshold must
// be computed once from round 1's active-ballot count and then held fixed
// for every later round, even though a ballot exhausts between rounds and
// shrinks the active-ballot count a naive per-round recomputation would
// use.
func TestMultiSeatThresholdStaysFixedAsBallotsExhaust(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob", "carol", "dave"})
	cfg.Winners = 2
	cfg.ElectionMode = config.MultiSeatAllowMultipleWinnersPerRound

	cvrs := []*cvr.CastVoteRecord{
		ballot("1", "alice"),
		ballot("2", "alice"),
		ballot("3", "alice"),
		ballot("4", "alice"),
		ballot("5", "bob"),
		ballot("6", "bob"),
		ballot("7", "bob"),
		ballot("8", "carol"),      // no second choice: exhausts once carol is eliminated
		ballot("9", "dave", "bob"),
		ballot("10", "dave", "bob"),
	}

	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// 10 ballots, 2 seats: the round-1 Droop threshold is floor(10/3)+1 =
	// 4. Alice meets it exactly in round 1 and is the only round-1
	// winner. Carol's single ballot has no second choice, so eliminating
	// her shrinks the active-ballot count in round 2 — a per-round
	// recomputation would drop the threshold to floor(5/3)+1 = 2, which
	// both bob and dave would wrongly meet that round. With the
	// threshold correctly held fixed at 4, neither meets it in round 2;
	// dave is eliminated instead, his two ballots transfer to bob, and
	// bob crosses the still-4 threshold in round 3.
	round1 := result.RoundTallies[0]
	if !round1.Threshold.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("round 1 threshold = %s, want 4", round1.Threshold)
	}
	for _, rt := range result.RoundTallies[1:] {
		if !rt.Threshold.Equal(round1.Threshold) {
			t.Fatalf("round %d threshold = %s, want the round 1 threshold (%s) held fixed", rt.Round, rt.Threshold, round1.Threshold)
		}
	}
	if len(result.Winners) != 2 || result.Winners[0] != "alice" || result.Winners[1] != "bob" {
		t.Fatalf("Winners = %v, want [alice bob]", result.Winners)
	}
}

func idFor(prefix string, i int) string {
	return prefix + "-" + string(rune('0'+i))
}

func TestVoteConservationAcrossRounds(t *testing.T) {
	cfg := config.NewStatic([]string{"alice", "bob", "carol"})
	cvrs := []*cvr.CastVoteRecord{
		ballot("1", "alice", "bob"),
		ballot("2", "carol", "bob"),
		ballot("3", "carol", "alice"),
		ballot("4", "bob"),
		ballot("5", "bob"),
	}
	tb, err := New(cfg, cvrs, discardLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := tb.Tabulate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	totalBallots := decimal.NewFromInt(int64(len(cvrs)))
	for _, rt := range result.RoundTallies {
		total := rt.NumActiveBallots().Add(rt.TotalInactive())
		if total.GreaterThan(totalBallots) {
			t.Fatalf("round %d counted more total vote weight (%s) than ballots cast (%d)", rt.Round, total, len(cvrs))
		}
	}
}
