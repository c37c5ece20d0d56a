// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tabulator

import (
	"context"

	"github.com/mesutgk15/rcv/audit"
	"github.com/mesutgk15/rcv/config"
	"github.com/mesutgk15/rcv/cvr"
	"github.com/mesutgk15/rcv/tiebreak"
)

// RunSequential implements MULTI_SEAT_SEQUENTIAL_WINNER_TAKES_ALL: each
// seat is filled by running a complete, independent single-winner
// tabulation over the full, unmodified ballot set, excluding every
// candidate who has already won an earlier seat. This is distinct from
// STV surplus transfer — a sequential winner keeps the full value of every
// vote it earned; nothing transfers out of it for later seats.
//
// cfg.WinnerElectionMode() must report MultiSeatSequentialWinnerTakesAll;
// the per-pass config each Tabulator uses internally reports
// SingleWinnerMajority instead, since each pass is tabulated as an
// ordinary single-winner contest.
func RunSequential(ctx context.Context, cfg config.ContestConfig, cvrs []*cvr.CastVoteRecord, logger audit.Logger, newTiebreak func() *tiebreak.Tiebreak) ([]string, []*Result, error) {
	numSeats := cfg.NumWinners()
	var allWinners []string
	var passResults []*Result

	for seat := 0; seat < numSeats; seat++ {
		passCfg := newSequentialPassConfig(cfg, allWinners)
		fresh := cloneForPass(cvrs)

		tb := newTiebreak()
		t, err := New(passCfg, fresh, logger, tb)
		if err != nil {
			return nil, nil, err
		}
		result, err := t.Tabulate(ctx)
		if err != nil {
			return nil, nil, err
		}
		if len(result.Winners) != 1 {
			logger.Severe("sequential pass did not produce exactly one winner", "pass", seat+1, "winners", len(result.Winners))
			return nil, nil, abortf("sequential pass %d produced %d winners, want exactly 1", seat+1, len(result.Winners))
		}
		allWinners = append(allWinners, result.Winners[0])
		passResults = append(passResults, result)
	}

	return allWinners, passResults, nil
}

// sequentialPassConfig wraps a ContestConfig, reporting a single-winner
// standard election and excluding every already-elected candidate, while
// delegating everything else to the wrapped config.
type sequentialPassConfig struct {
	config.ContestConfig
	excluded map[string]bool
}

func newSequentialPassConfig(base config.ContestConfig, alreadyWon []string) *sequentialPassConfig {
	excluded := map[string]bool{}
	for _, name := range alreadyWon {
		excluded[name] = true
	}
	return &sequentialPassConfig{ContestConfig: base, excluded: excluded}
}

func (s *sequentialPassConfig) NumWinners() int { return 1 }

func (s *sequentialPassConfig) WinnerElectionMode() config.WinnerElectionMode {
	return config.SingleWinnerMajority
}

func (s *sequentialPassConfig) CandidateIsExcluded(name string) bool {
	return s.excluded[name] || s.ContestConfig.CandidateIsExcluded(name)
}

// cloneForPass builds a fresh, round-0 copy of every cast vote record so
// each sequential pass tabulates independently rather than continuing
// state (current recipient, transfer value, audit trail) left over from
// the previous pass.
func cloneForPass(cvrs []*cvr.CastVoteRecord) []*cvr.CastVoteRecord {
	out := make([]*cvr.CastVoteRecord, len(cvrs))
	for i, c := range cvrs {
		out[i] = cvr.New(c.ID, c.Precinct, c.Rankings)
	}
	return out
}
