// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tabulator

import (
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/mesutgk15/rcv/tally"
)

// updateWinnerTallies re-populates round's tally entries for every
// candidate who won in an earlier round. The normal per-ballot walk in
// computeTalliesForRound only accumulates votes for candidates still
// marked Continuing, so without this step a multi-winner round's tally
// would silently drop every past winner's vote weight the moment they're
// elected.
//
// A winner of the immediately prior round is reconstructed from scratch:
// tally(w) is zeroed, then the portion of every ballot's value that stayed
// with w when its surplus was distributed is summed back in. Whatever that
// sum carries past the threshold is rounding residual rather than a real
// additional surplus — it is booked against roundToResidualSurplus and the
// transfer ledger. tally(w) is then pinned to exactly the threshold,
// whether or not there was any residual. An older winner's tally is simply
// copied forward from the previous round, since once pinned to the
// threshold it never changes again.
func (t *Tabulator) updateWinnerTallies(rt *tally.RoundTally, round int) error {
	if round == 1 {
		t.roundToResidualSurplus[round] = decimal.Zero
		return nil
	}

	t.roundToResidualSurplus[round] = t.roundToResidualSurplus[round-1]
	previous := t.roundTallies[len(t.roundTallies)-2]

	var toProcess []string
	requiringComputation := map[string]bool{}
	for w, wr := range t.winnerRound {
		if wr == round {
			continue
		}
		toProcess = append(toProcess, w)
		if wr == round-1 {
			requiringComputation[w] = true
		}
	}
	if len(toProcess) == 0 {
		return nil
	}
	slices.Sort(toProcess)

	rt.Unlock()
	defer rt.Lock()

	var precinctTallies map[string]*tally.RoundTally
	if t.precincts != nil {
		precinctTallies = make(map[string]*tally.RoundTally, len(t.precincts.KnownPrecincts()))
		for _, pid := range t.precincts.KnownPrecincts() {
			if err := t.precincts.UnlockRoundForCarryForward(pid, round); err != nil {
				return err
			}
			pt, err := t.precincts.RoundTally(pid, round)
			if err != nil {
				return err
			}
			precinctTallies[pid] = pt
		}
	}

	for _, w := range toProcess {
		if requiringComputation[w] {
			rt.SetVotes(w, decimal.Zero)
		} else {
			rt.SetVotes(w, previous.VotesFor(w))
		}
		for pid, pt := range precinctTallies {
			if requiringComputation[w] {
				pt.SetVotes(w, decimal.Zero)
				continue
			}
			prevPrecinct, err := t.precincts.RoundTally(pid, round-1)
			if err != nil {
				return err
			}
			pt.SetVotes(w, prevPrecinct.VotesFor(w))
		}
	}

	if len(requiringComputation) > 0 {
		for _, c := range t.cvrs {
			for w, value := range c.WinnerToFractionalValue {
				if !requiringComputation[w] {
					continue
				}
				rt.AddVote(w, value)
				if c.Precinct != "" {
					if pt, ok := precinctTallies[c.Precinct]; ok {
						pt.AddVote(w, value)
					}
				}
			}
		}

		for w := range requiringComputation {
			residual := rt.VotesFor(w).Sub(rt.Threshold)
			if residual.Sign() > 0 {
				t.logger.Info("residual surplus carried forward", "candidate", w, "round", round, "value", residual.String())
				t.roundToResidualSurplus[round] = t.roundToResidualSurplus[round].Add(residual)
				t.transfers.RecordResidual(round, w, residual)
			}
			rt.SetVotes(w, rt.Threshold)
		}
	}

	for _, pt := range precinctTallies {
		pt.Lock()
	}
	return nil
}
