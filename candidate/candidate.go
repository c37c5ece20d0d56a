// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package candidate defines the small set of identifiers and status values
// shared by every other package in this module. Keeping them here (instead
// of, say, inside config or tabulator) lets low-level packages like
// rankings and overvote depend on the sentinel values without reaching
// into the higher-level packages that own the round loop.
package candidate

// ExplicitOvervote is the sentinel candidate ID normalized CVRs use to mark
// an overvote mark at a given rank. It is never continuing and never wins.
const ExplicitOvervote = "overvote"

// UndeclaredWriteIn is the bucket candidate ID for write-in votes. It may
// receive tallies but is dropped before any other elimination and can never
// be elected.
const UndeclaredWriteIn = "Undeclared Write-ins"

// Residual is the reserved TallyTransfers source/target used to book
// residual surplus that cannot be exactly transferred due to rounding.
const Residual = "residual"

// Status is a candidate's computed disposition in a given round, derived
// from the config plus the mutable elimination/winner ledgers. It is a
// closed enumeration so callers cannot synthesize an illegal status.
type Status int

const (
	Continuing Status = iota
	Winner
	Eliminated
	Excluded
	Invalid
)

func (s Status) String() string {
	switch s {
	case Continuing:
		return "continuing"
	case Winner:
		return "winner"
	case Eliminated:
		return "eliminated"
	case Excluded:
		return "excluded"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}
