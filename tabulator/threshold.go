// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tabulator

import (
	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/arith"
	"github.com/mesutgk15/rcv/tally"
)

// computeThreshold computes the round's winning threshold. Hare quota is
// active ballots divided by the number of winners, rounded up (ceiling)
// — a candidate must reach the full quota. Droop quota is active ballots
// divided by (winners+1), rounded down (floor), plus the smallest
// representable unit at the configured scale, simulating "strictly more
// than a Droop share" with exact decimal arithmetic.
//
// When cfg.FirstRoundDeterminesThreshold is set, only round 1's threshold
// is ever computed; every later round reuses it, even as active ballots
// shrink through exhaustion. A multi-winner contest recomputes the
// threshold only on round 1 regardless of that flag — a multi-seat
// threshold is fixed for the life of the contest, since recomputing it
// against a shrinking active-ballot count after a seat is filled would
// move the goalposts for every candidate still in contention.
func (t *Tabulator) computeThreshold(rt *tally.RoundTally, round int) decimal.Decimal {
	if round > 1 && !t.firstRoundThreshold.IsZero() && (t.cfg.FirstRoundDeterminesThreshold() || t.cfg.NumWinners() > 1) {
		return t.firstRoundThreshold
	}

	scale := int32(0)
	if t.cfg.NonIntegerThresholdsEnabled() {
		scale = int32(t.cfg.DecimalPlaces())
	}

	numWinners := decimal.NewFromInt(int64(t.cfg.NumWinners()))
	activeBallots := rt.NumActiveBallots()

	var threshold decimal.Decimal
	if t.cfg.HareQuotaEnabled() {
		threshold = t.arithmetic.DivideScale(activeBallots, numWinners, scale, arith.RoundUp)
	} else {
		divisor := numWinners.Add(decimal.NewFromInt(1))
		threshold = t.arithmetic.DivideScale(activeBallots, divisor, scale, arith.RoundDown)
		threshold = threshold.Add(arith.Augend(scale))
	}

	if round == 1 {
		t.firstRoundThreshold = threshold
	}
	return threshold
}

// meetsThreshold reports whether votes has reached rt's winning threshold.
func meetsThreshold(votes, threshold decimal.Decimal) bool {
	return votes.Cmp(threshold) >= 0
}

// meetsPercentageThreshold is used by MULTI_SEAT_BOTTOMS_UP_USING_PERCENTAGE_THRESHOLD:
// a candidate's share of the currently active vote must meet or exceed the
// configured percentage (expressed as a fraction, e.g. 0.05 for 5%).
func meetsPercentageThreshold(votes, activeBallots decimal.Decimal, percentage decimal.Decimal, arithmetic arith.DecimalArith) bool {
	if activeBallots.IsZero() {
		return false
	}
	share := arithmetic.DivideScale(votes, activeBallots, 10, arith.RoundDown)
	return share.Cmp(percentage) >= 0
}
