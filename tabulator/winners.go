// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tabulator

import (
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/mesutgk15/rcv/arith"
	"github.com/mesutgk15/rcv/candidate"
	"github.com/mesutgk15/rcv/config"
	"github.com/mesutgk15/rcv/tally"
	"github.com/mesutgk15/rcv/tiebreak"
)

// continuingCandidates returns every candidate currently marked
// Continuing, in deterministic sorted order.
func (t *Tabulator) continuingCandidates() []string {
	var out []string
	for name, status := range t.status {
		if status == candidate.Continuing {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// identifyWinners selects winners for this round across every winner
// election mode. seatsRemaining is numWinners minus however many have
// already won in earlier rounds.
func (t *Tabulator) identifyWinners(rt *tally.RoundTally, round int, seatsRemaining int) ([]string, error) {
	if seatsRemaining <= 0 {
		return nil, nil
	}

	// The undeclared-write-in bucket can hold votes but is never elected.
	var continuing []string
	for _, id := range t.continuingCandidates() {
		if id != candidate.UndeclaredWriteIn {
			continuing = append(continuing, id)
		}
	}

	switch t.cfg.WinnerElectionMode() {
	case config.MultiSeatBottomsUpUntilNWinners:
		if len(continuing) <= seatsRemaining {
			return continuing, nil
		}
		return nil, nil

	case config.MultiSeatBottomsUpUsingPercentageThreshold:
		percentage := t.cfg.MultiSeatBottomsUpPercentageThreshold()
		activeBallots := rt.NumActiveBallots()
		allMeet := len(continuing) > 0
		for _, id := range continuing {
			if !meetsPercentageThreshold(rt.VotesFor(id), activeBallots, percentage, t.arithmetic) {
				allMeet = false
				break
			}
		}
		if allMeet {
			return continuing, nil
		}
		return nil, nil

	case config.MultiSeatAllowMultipleWinnersPerRound:
		var winners []string
		for _, id := range continuing {
			if meetsThreshold(rt.VotesFor(id), rt.Threshold) {
				winners = append(winners, id)
			}
		}
		return t.capToSeatsRemaining(winners, rt, seatsRemaining)

	case config.MultiSeatAllowOnlyOneWinnerPerRound:
		var metThreshold []string
		for _, id := range continuing {
			if meetsThreshold(rt.VotesFor(id), rt.Threshold) {
				metThreshold = append(metThreshold, id)
			}
		}
		if len(metThreshold) == 0 {
			return t.twoCandidatesLeftWinner(continuing, rt, round)
		}
		winner, err := t.highestVoteGetter(metThreshold, rt, round)
		if err != nil {
			return nil, err
		}
		return []string{winner}, nil

	default: // SingleWinnerMajority, MultiSeatSequentialWinnerTakesAll
		var metThreshold []string
		for _, id := range continuing {
			if meetsThreshold(rt.VotesFor(id), rt.Threshold) {
				metThreshold = append(metThreshold, id)
			}
		}
		if len(metThreshold) > 0 {
			winner, err := t.highestVoteGetter(metThreshold, rt, round)
			if err != nil {
				return nil, err
			}
			return []string{winner}, nil
		}
		return t.twoCandidatesLeftWinner(continuing, rt, round)
	}
}

// twoCandidatesLeftWinner implements the "only two candidates remain"
// terminal condition: whichever of the two has more votes wins outright,
// tiebreak settling an exact tie, regardless of whether either reached the
// formal threshold.
func (t *Tabulator) twoCandidatesLeftWinner(continuing []string, rt *tally.RoundTally, round int) ([]string, error) {
	if !t.cfg.ContinueUntilTwoCandidatesRemain() && t.cfg.WinnerElectionMode() != config.SingleWinnerMajority {
		return nil, nil
	}
	if len(continuing) != 2 {
		return nil, nil
	}
	winner, err := t.highestVoteGetter(continuing, rt, round)
	if err != nil {
		return nil, err
	}
	return []string{winner}, nil
}

// capToSeatsRemaining trims winners down to seatsRemaining when more
// candidates cleared the threshold than there are open seats, keeping the
// highest vote counts. The tiebreaker is not consulted: when candidates
// tie across the cut, which of them are kept is not defined.
func (t *Tabulator) capToSeatsRemaining(winners []string, rt *tally.RoundTally, seatsRemaining int) ([]string, error) {
	if len(winners) <= seatsRemaining {
		return winners, nil
	}
	return t.sortDescendingByVotes(winners, rt)[:seatsRemaining], nil
}

// highestVoteGetter returns the candidate among ids with the most votes
// this round, breaking an exact tie for first place via the tiebreaker.
func (t *Tabulator) highestVoteGetter(ids []string, rt *tally.RoundTally, round int) (string, error) {
	if len(ids) == 1 {
		return ids[0], nil
	}
	best := rt.VotesFor(ids[0])
	var tied []string
	for _, id := range ids {
		v := rt.VotesFor(id)
		if v.GreaterThan(best) {
			best = v
			tied = []string{id}
		} else if v.Equal(best) {
			tied = append(tied, id)
		}
	}
	if len(tied) == 1 {
		return tied[0], nil
	}
	return t.breakTie(tied, tiebreak.SelectWinner, round)
}

// sortDescendingByVotes orders ids by vote count, highest first. Ties are
// not broken: the relative order of candidates with equal counts is not
// defined.
func (t *Tabulator) sortDescendingByVotes(ids []string, rt *tally.RoundTally) []string {
	out := append([]string(nil), ids...)
	slices.SortFunc(out, func(a, b string) int {
		return rt.VotesFor(b).Cmp(rt.VotesFor(a))
	})
	return out
}

func (t *Tabulator) breakTie(tied []string, purpose tiebreak.Purpose, round int) (string, error) {
	if t.tiebreak == nil {
		return "", abortf("a tie occurred among %v but no tiebreaker was configured", tied)
	}
	return t.tiebreak.Break(tied, purpose, t.roundTallies)
}

// shouldContinueTabulating checks the termination condition: stop once
// every seat is filled, once a configured early-stop round is reached,
// or once zero or one candidate remains continuing.
func (t *Tabulator) shouldContinueTabulating(round int) bool {
	if len(t.winnerRound) >= t.cfg.NumWinners() {
		return false
	}
	if stopAfter := t.cfg.StopTabulationEarlyAfterRound(); stopAfter > 0 && round >= stopAfter {
		return false
	}
	remaining := t.continuingCandidates()
	return len(remaining) > 1
}

// distributeSurplus redistributes each winner's surplus. For each winner
// whose tally exceeded the threshold, every ballot still counting for
// that winner has its value rescaled by the surplus fraction and moves
// on to its next continuing choice; the winner's own tally is reduced
// back down to exactly the threshold. Any leftover from rounding that
// can't be exactly attributed to a next choice is booked as residual
// surplus.
func (t *Tabulator) distributeSurplus(rt *tally.RoundTally, round int, winners []string) error {
	scale := int32(t.cfg.DecimalPlaces())

	for _, w := range winners {
		votesForW := rt.VotesFor(w)
		surplus := votesForW.Sub(rt.Threshold)
		if surplus.Sign() <= 0 {
			continue
		}

		rt.Unlock()

		transferFactor := t.arithmetic.DivideScale(surplus, votesForW, scale, arith.RoundDown)
		rt.AddVote(w, rt.Threshold.Sub(votesForW))

		totalMoved := decimal.Zero
		for _, c := range t.cvrs {
			if !c.IsActive() || c.CurrentRecipient != w {
				continue
			}
			oldValue := c.FractionalTransferValue
			transferValue := t.arithmetic.DivideScale(oldValue.Mul(transferFactor), arith.One, scale, arith.RoundDown)
			if transferValue.Sign() <= 0 {
				continue
			}
			c.RecordWinnerDeparture(w, oldValue.Sub(transferValue))
			c.FractionalTransferValue = transferValue

			recipient, err := t.seekRecipient(c, round, rt)
			if err != nil {
				return err
			}
			if recipient != "" {
				t.transfers.Record(round, w, recipient, transferValue)
				if t.precincts != nil {
					if err := t.precincts.RecordTransfer(c.Precinct, round, w, recipient, transferValue); err != nil {
						return err
					}
				}
			}
			totalMoved = totalMoved.Add(transferValue)
		}

		residual := surplus.Sub(totalMoved)
		if residual.Sign() > 0 {
			t.transfers.RecordResidual(round, w, residual)
		}
		rt.Lock()
	}
	return nil
}
