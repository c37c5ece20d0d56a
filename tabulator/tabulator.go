// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package tabulator runs the round-by-round ranked-choice count: it walks
// every cast vote record each round, tallies continuing candidates,
// computes the winning threshold, identifies winners, distributes
// surplus, and eliminates candidates, until every seat is filled or no
// candidates remain.
package tabulator

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/mesutgk15/rcv/arith"
	"github.com/mesutgk15/rcv/audit"
	"github.com/mesutgk15/rcv/candidate"
	"github.com/mesutgk15/rcv/config"
	"github.com/mesutgk15/rcv/cvr"
	"github.com/mesutgk15/rcv/overvote"
	"github.com/mesutgk15/rcv/precinct"
	"github.com/mesutgk15/rcv/tally"
	"github.com/mesutgk15/rcv/tiebreak"
	"github.com/mesutgk15/rcv/transfer"
)

// AbortError is the single fatal error type tabulation can produce. It is
// never returned for an ordinary ballot outcome (undervotes, overvotes,
// and exhaustion all flow through cvr.BallotStatus instead) — only for
// conditions that make the contest itself untabulatable, or for a
// caller-requested cancellation.
type AbortError struct {
	CancelledByUser bool
	reason          string
}

func (e *AbortError) Error() string {
	if e.CancelledByUser {
		return "tabulation was cancelled by the user"
	}
	if e.reason != "" {
		return "tabulation was aborted due to an unrecoverable error: " + e.reason
	}
	return "tabulation was aborted due to an unrecoverable error"
}

func abortf(format string, args ...any) *AbortError {
	return &AbortError{reason: fmt.Sprintf(format, args...)}
}

// Result is the outcome of a full tabulation: the winners in the order
// they were elected (winners of the same round in candidate ID order),
// every round's tally, and the full transfer ledger.
type Result struct {
	Winners                []string
	RoundTallies           []*tally.RoundTally
	Transfers              *transfer.TallyTransfers
	Precincts              *precinct.PrecinctTabulation // nil unless precinct tabulation was enabled
	RoundToResidualSurplus map[int]decimal.Decimal
}

// Tabulator runs one contest's tabulation from a fixed set of cast vote
// records and a fixed configuration.
type Tabulator struct {
	cfg        config.ContestConfig
	cvrs       []*cvr.CastVoteRecord
	logger     audit.Logger
	tiebreak   *tiebreak.Tiebreak
	arithmetic arith.DecimalArith

	transfers *transfer.TallyTransfers
	precincts *precinct.PrecinctTabulation

	roundTallies []*tally.RoundTally
	status       map[string]candidate.Status
	eliminated   map[string]int // candidate -> round eliminated
	winnerRound  map[string]int // candidate -> round won

	firstRoundThreshold    decimal.Decimal
	roundToResidualSurplus map[int]decimal.Decimal
}

// New builds a Tabulator and validates everything that must be known
// before any round runs: every candidate named in cfg gets an initial
// status, and if precinct tabulation is enabled every precinct recorded on
// any cvr must be non-blank, raising a fatal error eagerly at
// construction time rather than mid-round.
func New(cfg config.ContestConfig, cvrs []*cvr.CastVoteRecord, logger audit.Logger, tb *tiebreak.Tiebreak) (*Tabulator, error) {
	if logger == nil {
		return nil, abortf("a Logger is required")
	}

	status := make(map[string]candidate.Status, cfg.NumCandidates())
	for _, name := range cfg.CandidateNames() {
		if cfg.CandidateIsExcluded(name) {
			status[name] = candidate.Excluded
		} else {
			status[name] = candidate.Continuing
		}
	}

	t := &Tabulator{
		cfg:                    cfg,
		cvrs:                   cvrs,
		logger:                 logger,
		tiebreak:               tb,
		arithmetic:             arith.New(cfg.DecimalPlaces()),
		transfers:              transfer.New(),
		status:                 status,
		eliminated:             map[string]int{},
		winnerRound:            map[string]int{},
		roundToResidualSurplus: map[int]decimal.Decimal{},
	}

	if cfg.TabulateByPrecinctEnabled() {
		precinctSet := map[string]struct{}{}
		for _, c := range cvrs {
			if c.Precinct == "" {
				t.logger.Severe("cast vote record has a blank precinct while precinct tabulation is enabled", "cvr", c.ID)
				return nil, abortf("cast vote record %q has a blank precinct", c.ID)
			}
			precinctSet[c.Precinct] = struct{}{}
		}
		ids := maps.Keys(precinctSet)
		slices.Sort(ids)
		pt, err := precinct.New(ids)
		if err != nil {
			t.logger.Severe("failed to validate precinct set", "error", err)
			return nil, abortf("%v", err)
		}
		t.precincts = pt
	}

	t.logSummary()
	return t, nil
}

// logSummary logs the full declared candidate roster, flagging excluded
// candidates, before round 1 runs.
func (t *Tabulator) logSummary() {
	names := append([]string(nil), t.cfg.CandidateNames()...)
	slices.Sort(names)
	for _, name := range names {
		t.logger.Info("candidate", "name", name, "status", t.status[name].String())
	}
	if t.cfg.TiebreakMode() == config.GeneratePermutation {
		t.logger.Info("tiebreak permutation will be generated on first use")
	}
}

// Tabulate runs every round until the contest is decided. ctx is checked
// once per round boundary; a cancelled context aborts tabulation with
// CancelledByUser set.
func (t *Tabulator) Tabulate(ctx context.Context) (*Result, error) {
	numSeatsToFill := t.cfg.NumWinners()

	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			t.logger.Severe("tabulation cancelled", "round", round)
			return nil, &AbortError{CancelledByUser: true}
		}

		rt, err := t.computeTalliesForRound(round)
		if err != nil {
			t.logger.Severe("failed to compute tallies", "round", round, "error", err)
			return nil, abortf("%v", err)
		}

		rt.Threshold = t.computeThreshold(rt, round)
		rt.Lock()
		t.roundTallies = append(t.roundTallies, rt)
		t.logger.RoundSummary(round, rt)

		winnersThisRound, err := t.identifyWinners(rt, round, numSeatsToFill-len(t.winnerRound))
		if err != nil {
			t.logger.Severe("failed to identify winners", "round", round, "error", err)
			return nil, abortf("%v", err)
		}
		for _, w := range winnersThisRound {
			t.status[w] = candidate.Winner
			t.winnerRound[w] = round
			t.logger.Info("winner elected", "round", round, "candidate", w)
		}

		if len(winnersThisRound) > 0 && t.cfg.WinnerElectionMode() != config.MultiSeatBottomsUpUntilNWinners &&
			t.cfg.WinnerElectionMode() != config.MultiSeatBottomsUpUsingPercentageThreshold {
			if err := t.distributeSurplus(rt, round, winnersThisRound); err != nil {
				t.logger.Severe("failed to distribute surplus", "round", round, "error", err)
				return nil, abortf("%v", err)
			}
		}

		shouldContinue := t.shouldContinueTabulating(round)
		if shouldContinue {
			numEliminated, err := t.eliminateCandidates(rt, round)
			if err != nil {
				t.logger.Severe("failed to eliminate candidates", "round", round, "error", err)
				return nil, abortf("%v", err)
			}
			if numEliminated == 0 && len(winnersThisRound) == 0 {
				t.logger.Severe("round produced neither a winner nor an elimination", "round", round)
				return nil, abortf("round %d produced neither a winner nor an elimination; tabulation cannot make progress", round)
			}
		}

		if t.cfg.NumWinners() > 1 {
			if err := t.updateWinnerTallies(rt, round); err != nil {
				t.logger.Severe("failed to update past-winner tallies", "round", round, "error", err)
				return nil, abortf("%v", err)
			}
		}

		if !shouldContinue {
			break
		}
	}

	winners := make([]string, 0, len(t.winnerRound))
	for name := range t.winnerRound {
		winners = append(winners, name)
	}
	slices.SortFunc(winners, func(a, b string) int {
		if d := t.winnerRound[a] - t.winnerRound[b]; d != 0 {
			return d
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})

	return &Result{
		Winners:                winners,
		RoundTallies:           t.roundTallies,
		Transfers:              t.transfers,
		Precincts:              t.precincts,
		RoundToResidualSurplus: t.roundToResidualSurplus,
	}, nil
}

func (t *Tabulator) isContinuing(candidateID string) bool {
	return t.status[candidateID] == candidate.Continuing
}

// computeTalliesForRound walks every cast vote record once. A ballot
// that is already inactive contributes nothing. A ballot
// whose current recipient is still continuing simply adds its value to
// that recipient's tally (the common case for round 2+). Every other
// active ballot re-seeks a recipient starting from its LastRank()+1,
// classifying undervotes, skipped rankings, duplicate rankings, and
// overvotes as it goes.
func (t *Tabulator) computeTalliesForRound(round int) (*tally.RoundTally, error) {
	rt := tally.New(round)

	for _, c := range t.cvrs {
		if !c.IsActive() {
			continue
		}

		if c.CurrentRecipient != "" && t.isContinuing(c.CurrentRecipient) {
			rt.AddVote(c.CurrentRecipient, c.FractionalTransferValue)
			if t.precincts != nil {
				if err := t.precincts.RecordVote(c.Precinct, round, c.CurrentRecipient, c.FractionalTransferValue); err != nil {
					return nil, err
				}
			}
			if t.cfg.GenerateCDFJSONEnabled() {
				c.LogCDFSnapshot(round, map[string]decimal.Decimal{c.CurrentRecipient: c.FractionalTransferValue})
			}
			continue
		}

		recipient, err := t.seekRecipient(c, round, rt)
		if err != nil {
			return nil, err
		}
		_ = recipient // initial assignment; no ledger entry (nothing to attribute it "from")
	}

	return rt, nil
}

// seekRecipient walks c's rankings forward from LastRank()+1 looking for
// the next continuing candidate it can count for, classifying the ballot
// inactive if it runs out of ranks first. It returns the chosen recipient,
// or "" if the ballot went inactive. The caller is responsible for any
// transfer-ledger entry attributing the move to a source candidate — this
// function only updates the ballot's own state and rt's tally.
func (t *Tabulator) seekRecipient(c *cvr.CastVoteRecord, round int, rt *tally.RoundTally) (string, error) {
	if c.Rankings.NumRankings() == 0 {
		c.RecordOutcome(round, "", cvr.InactiveByUndervote, c.FractionalTransferValue, "no rankings on ballot")
		rt.AddInactive(cvr.InactiveByUndervote, c.FractionalTransferValue)
		return "", nil
	}

	entries := c.Rankings.Walk()
	for _, entry := range entries {
		if entry.Rank <= c.LastRank() {
			continue
		}

		if t.exceedsSkippedRankGap(c.LastRank(), entry.Rank) {
			c.RecordOutcome(round, "", cvr.InactiveBySkippedRanking, c.FractionalTransferValue, "too many consecutive skipped ranks before the ballot's next mark")
			rt.AddInactive(cvr.InactiveBySkippedRanking, c.FractionalTransferValue)
			return "", nil
		}

		candidates := entry.Candidates.Candidates()
		duplicate := false
		for _, id := range candidates {
			if c.HasSeen(id) {
				duplicate = true
			}
		}
		if duplicate && t.cfg.ExhaustOnDuplicateCandidate() {
			c.RecordOutcome(round, "", cvr.InactiveByRepeatedRanking, c.FractionalTransferValue, "duplicate candidate ranking")
			rt.AddInactive(cvr.InactiveByRepeatedRanking, c.FractionalTransferValue)
			return "", nil
		}

		decision, err := overvote.Decide(entry.Candidates, t.cfg.OvervoteRule(), t.isContinuing)
		if err != nil {
			return "", err
		}
		switch decision {
		case overvote.Exhaust:
			c.AdvanceLastRank(entry.Rank)
			c.RecordOutcome(round, "", cvr.InactiveByOvervote, c.FractionalTransferValue, "overvote")
			rt.AddInactive(cvr.InactiveByOvervote, c.FractionalTransferValue)
			return "", nil
		case overvote.SkipToNextRank:
			c.AdvanceLastRank(entry.Rank)
			for _, id := range candidates {
				c.MarkSeen(id)
			}
			continue
		}

		for _, id := range candidates {
			c.MarkSeen(id)
		}
		c.AdvanceLastRank(entry.Rank)

		if len(candidates) > 1 {
			// overvote.None with more than one candidate cannot happen;
			// Decide only returns None for zero or one candidate.
			continue
		}
		chosen := candidates[0]
		if !t.isContinuing(chosen) {
			continue
		}

		c.RecordOutcome(round, chosen, cvr.Active, c.FractionalTransferValue, "")
		rt.AddVote(chosen, c.FractionalTransferValue)
		if t.precincts != nil {
			if err := t.precincts.RecordVote(c.Precinct, round, chosen, c.FractionalTransferValue); err != nil {
				return "", err
			}
		}
		if t.cfg.GenerateCDFJSONEnabled() {
			c.LogCDFSnapshot(round, map[string]decimal.Decimal{chosen: c.FractionalTransferValue})
		}
		return chosen, nil
	}

	if t.trailingBlankIsUndervote(c) {
		c.RecordOutcome(round, "", cvr.InactiveByUndervote, c.FractionalTransferValue, "too many ranks left blank past the ballot's last mark")
		rt.AddInactive(cvr.InactiveByUndervote, c.FractionalTransferValue)
		return "", nil
	}
	c.RecordOutcome(round, "", cvr.InactiveByExhaustedChoices, c.FractionalTransferValue, "no continuing candidate left on ballot")
	rt.AddInactive(cvr.InactiveByExhaustedChoices, c.FractionalTransferValue)
	return "", nil
}

// exceedsSkippedRankGap reports whether the gap between lastRank (the
// last rank this ballot's walk has already examined) and rank (the next
// populated ranking) is wider than the configured skip tolerance allows.
// A gap this wide partway through the walk classifies the ballot
// INACTIVE_BY_SKIPPED_RANKING rather than letting the walk continue past
// it.
func (t *Tabulator) exceedsSkippedRankGap(lastRank, rank int) bool {
	maxSkipped := t.cfg.MaxSkippedRanksAllowed()
	if maxSkipped == config.MaxSkippedRanksUnlimited {
		return false
	}
	return rank-lastRank > maxSkipped+1
}

// trailingBlankIsUndervote is evaluated only once the walk has examined
// every populated ranking without finding a continuing candidate: a gap
// between the ballot's last mark and maxRankingsAllowed wider than
// maxSkippedRanksAllowed means the voter effectively stopped ranking
// early, reclassifying the ballot as an undervote rather than an
// exhausted ballot.
func (t *Tabulator) trailingBlankIsUndervote(c *cvr.CastVoteRecord) bool {
	maxSkipped := t.cfg.MaxSkippedRanksAllowed()
	if maxSkipped == config.MaxSkippedRanksUnlimited {
		return false
	}
	maxRankings := t.cfg.MaxRankingsAllowed()
	if maxRankings <= 0 {
		return false
	}
	return (maxRankings - c.LastRank()) > maxSkipped
}
