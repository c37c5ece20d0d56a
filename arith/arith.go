// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package arith provides the exact decimal arithmetic the tabulation engine
// uses on every result path. It never touches float64: all values flow
// through shopspring/decimal, which backs a base-10 fixed-scale numeric
// type with explicit rounding modes — the same exactness guarantee a
// fixed-point BigDecimal type gives a caller.
package arith

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how Divide resolves a division that does not
// terminate within the configured scale.
type RoundingMode int

const (
	// RoundDown truncates toward zero. For the non-negative values this
	// engine ever divides, this is floor division.
	RoundDown RoundingMode = iota
	// RoundUp rounds away from zero whenever there is any remainder. For
	// non-negative values, this is ceiling division.
	RoundUp
)

// DecimalArith is configured once per contest with the number of decimal
// places vote arithmetic should carry. A zero value is usable and behaves
// as integer (0 decimal places) arithmetic.
type DecimalArith struct {
	decimalPlaces int32
}

// New builds a DecimalArith. decimalPlaces must be within [0, 20];
// values outside that range are clamped rather than rejected, since this
// is purely an arithmetic helper and the config layer (out of scope for
// this engine) is responsible for validating user input.
func New(decimalPlaces int) DecimalArith {
	if decimalPlaces < 0 {
		decimalPlaces = 0
	}
	if decimalPlaces > 20 {
		decimalPlaces = 20
	}
	return DecimalArith{decimalPlaces: int32(decimalPlaces)}
}

// DecimalPlaces returns the configured scale.
func (a DecimalArith) DecimalPlaces() int {
	return int(a.decimalPlaces)
}

// Add returns x+y exactly.
func (a DecimalArith) Add(x, y decimal.Decimal) decimal.Decimal {
	return x.Add(y)
}

// Sub returns x-y exactly.
func (a DecimalArith) Sub(x, y decimal.Decimal) decimal.Decimal {
	return x.Sub(y)
}

// Mul returns x*y exactly; shopspring/decimal multiplication never loses
// precision, unlike float64 multiplication.
func (a DecimalArith) Mul(x, y decimal.Decimal) decimal.Decimal {
	return x.Mul(y)
}

// Divide returns x/y rounded to the configured scale (a.decimalPlaces)
// using mode.
func (a DecimalArith) Divide(x, y decimal.Decimal, mode RoundingMode) decimal.Decimal {
	return a.DivideScale(x, y, a.decimalPlaces, mode)
}

// DivideScale is Divide with an explicit scale, for a caller that needs a
// different precision for this one division than a.decimalPlaces (the
// winning-threshold computation in §4.6 needs scale 0 when non-integer
// thresholds are disabled, regardless of the contest-wide decimal_places
// setting).
func (a DecimalArith) DivideScale(x, y decimal.Decimal, scale int32, mode RoundingMode) decimal.Decimal {
	if y.IsZero() {
		panic(fmt.Sprintf("arith: division by zero (%s / %s)", x, y))
	}
	quotient, remainder := x.QuoRem(y, scale)
	if mode == RoundUp && !remainder.IsZero() {
		augend := Augend(scale)
		quotient = quotient.Add(augend)
	}
	return quotient
}

// Augend returns the smallest unit representable at the given scale
// (10^-scale): 1 when scale is 0, 0.0001 when scale is 4, and so on. The
// winning-threshold computation (§4.6) adds exactly this value to simulate
// "strictly greater than" under Droop quota rounding.
func Augend(scale int32) decimal.Decimal {
	return decimal.New(1, -scale)
}

// Compare returns -1, 0, or 1 as x is less than, equal to, or greater than y.
func (a DecimalArith) Compare(x, y decimal.Decimal) int {
	return x.Cmp(y)
}

// Signum returns -1, 0, or 1 as x is negative, zero, or positive.
func (a DecimalArith) Signum(x decimal.Decimal) int {
	return x.Sign()
}

// Max returns the greater of x and y.
func Max(x, y decimal.Decimal) decimal.Decimal {
	if x.Cmp(y) >= 0 {
		return x
	}
	return y
}

// Zero is the exact decimal zero, spelled out once so call sites read
// arith.Zero instead of decimal.Zero in two different styles.
var Zero = decimal.Zero

// One is the exact decimal one.
var One = decimal.NewFromInt(1)
