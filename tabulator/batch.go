// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tabulator

import (
	"golang.org/x/exp/slices"

	"github.com/mesutgk15/rcv/candidate"
	"github.com/mesutgk15/rcv/tally"
	"github.com/mesutgk15/rcv/tiebreak"
)

// eliminateCandidates runs the four-step elimination priority: drop the
// undeclared-write-in bucket first, then candidates
// below the minimum vote threshold, then as many candidates as batch
// elimination's running-total check allows, and only if none of those
// applied, the single lowest continuing candidate (settled by tiebreak if
// tied). Only one of the four steps runs per round.
func (t *Tabulator) eliminateCandidates(rt *tally.RoundTally, round int) (int, error) {
	continuing := t.continuingCandidates()
	if len(continuing) <= 1 {
		return 0, nil
	}

	if slices.Contains(continuing, candidate.UndeclaredWriteIn) && rt.VotesFor(candidate.UndeclaredWriteIn).Sign() > 0 {
		if err := t.eliminateSet([]string{candidate.UndeclaredWriteIn}, round, rt); err != nil {
			return 0, err
		}
		return 1, nil
	}

	belowMinimum := t.candidatesBelowMinimumThreshold(continuing, rt)
	if len(belowMinimum) > 0 && len(belowMinimum) < len(continuing) {
		if err := t.eliminateSet(belowMinimum, round, rt); err != nil {
			return 0, err
		}
		return len(belowMinimum), nil
	}

	if t.cfg.BatchEliminationEnabled() {
		batch := t.runBatchElimination(continuing, rt)
		if len(batch) > 0 && len(batch) < len(continuing) {
			if err := t.eliminateSet(batch, round, rt); err != nil {
				return 0, err
			}
			return len(batch), nil
		}
	}

	loser, err := t.lowestVoteGetter(continuing, rt, round)
	if err != nil {
		return 0, err
	}
	if err := t.eliminateSet([]string{loser}, round, rt); err != nil {
		return 0, err
	}
	return 1, nil
}

func (t *Tabulator) candidatesBelowMinimumThreshold(continuing []string, rt *tally.RoundTally) []string {
	minimum := t.cfg.MinimumVoteThreshold()
	if minimum.Sign() <= 0 {
		return nil
	}
	var out []string
	for _, id := range continuing {
		if rt.VotesFor(id).LessThan(minimum) {
			out = append(out, id)
		}
	}
	return out
}

// runBatchElimination sorts continuing candidates ascending by vote
// count, then walks upward
// accumulating a running total of every candidate seen so far. Whenever
// that running total is strictly less than the next candidate's own vote
// count, every candidate seen so far is batch-eliminable — even if all of
// their votes transferred to that next candidate in a single step, it
// still couldn't be caught. The walk covers every candidate; a check that
// fails partway up does not stop it.
//
// Under continue_until_two, if this process would reduce the continuing
// set to fewer than two candidates, the most recent elimination is
// rewound. Only a single rewind is attempted; a batch that overshoots by
// more than one candidate is not further trimmed.
func (t *Tabulator) runBatchElimination(continuing []string, rt *tally.RoundTally) []string {
	sorted := append([]string(nil), continuing...)
	slices.SortFunc(sorted, func(a, b string) int {
		return rt.VotesFor(a).Cmp(rt.VotesFor(b))
	})

	var eliminations []string
	runningTotal := rt.VotesFor(sorted[0])
	for i := 1; i < len(sorted); i++ {
		next := rt.VotesFor(sorted[i])
		if runningTotal.LessThan(next) {
			eliminations = append([]string(nil), sorted[:i]...)
		}
		runningTotal = runningTotal.Add(next)
	}

	if t.cfg.ContinueUntilTwoCandidatesRemain() && len(continuing)-len(eliminations) < 2 {
		eliminations = eliminations[:max(0, len(eliminations)-1)]
	}
	return eliminations
}

func (t *Tabulator) lowestVoteGetter(ids []string, rt *tally.RoundTally, round int) (string, error) {
	worst := rt.VotesFor(ids[0])
	var tied []string
	for _, id := range ids {
		v := rt.VotesFor(id)
		if v.LessThan(worst) {
			worst = v
			tied = []string{id}
		} else if v.Equal(worst) {
			tied = append(tied, id)
		}
	}
	if len(tied) == 1 {
		return tied[0], nil
	}
	return t.breakTie(tied, tiebreak.SelectLoser, round)
}

// eliminateSet marks every candidate in losers as Eliminated and transfers
// every ballot currently counting for one of them on to its next
// continuing choice, recording the move in the transfer ledger. Ballots
// that find no further continuing choice become inactive, classified the
// same way as in the per-round walk. Each moved ballot's value is taken
// off the eliminated candidate's entry in rt and added to its new
// recipient or inactive reason, so rt's total stays unchanged.
func (t *Tabulator) eliminateSet(losers []string, round int, rt *tally.RoundTally) error {
	loserSet := make(map[string]bool, len(losers))
	for _, id := range losers {
		loserSet[id] = true
		t.status[id] = candidate.Eliminated
		t.eliminated[id] = round
		t.logger.Info("candidate eliminated", "round", round, "candidate", id)
	}

	rt.Unlock()
	defer rt.Lock()

	for _, c := range t.cvrs {
		if !c.IsActive() || !loserSet[c.CurrentRecipient] {
			continue
		}
		source := c.CurrentRecipient
		value := c.FractionalTransferValue
		recipient, err := t.seekRecipient(c, round, rt)
		if err != nil {
			return err
		}
		rt.AddVote(source, value.Neg())
		if t.precincts != nil {
			if err := t.precincts.RecordVote(c.Precinct, round, source, value.Neg()); err != nil {
				return err
			}
		}
		if recipient != "" {
			t.transfers.Record(round, source, recipient, c.FractionalTransferValue)
			if t.precincts != nil {
				if err := t.precincts.RecordTransfer(c.Precinct, round, source, recipient, c.FractionalTransferValue); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
