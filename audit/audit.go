// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package audit defines the logging surface the tabulator writes to. The
// engine depends on the Logger interface only, never on a concrete
// *slog.Logger directly, so a caller can redirect audit output anywhere —
// a file, an in-memory buffer for a UI, stdout for the demo CLI.
package audit

import (
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/mesutgk15/rcv/tally"
)

// Logger is everything the tabulator needs to record about its own
// progress. Severe always precedes a fatal abort — callers that care about
// surfacing abort reasons to an operator should treat Severe calls as the
// primary signal, not the error return alone.
type Logger interface {
	Info(msg string, args ...any)
	Severe(msg string, args ...any)
	RoundSummary(round int, rt *tally.RoundTally)
}

// slogLogger implements Logger over a standard structured logger.
type slogLogger struct {
	log *slog.Logger
}

// NewSlogLogger wraps h in a Logger. A nil handler falls back to
// slog.Default's handler.
func NewSlogLogger(h slog.Handler) Logger {
	if h == nil {
		return &slogLogger{log: slog.Default()}
	}
	return &slogLogger{log: slog.New(h)}
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

func (l *slogLogger) Severe(msg string, args ...any) {
	l.log.Error(msg, args...)
}

func (l *slogLogger) RoundSummary(round int, rt *tally.RoundTally) {
	l.log.Info("round summary",
		slog.Int("round", round),
		slog.String("threshold", humanizeDecimal(rt.Threshold)),
		slog.String("active_ballots", humanizeDecimal(rt.NumActiveBallots())),
		slog.String("total_inactive", humanizeDecimal(rt.TotalInactive())),
	)
	for _, id := range rt.CandidateIDs() {
		l.log.Info("candidate tally",
			slog.Int("round", round),
			slog.String("candidate", id),
			slog.String("votes", humanizeDecimal(rt.VotesFor(id))),
		)
	}
}

// humanizeDecimal renders a decimal.Decimal with thousands separators for
// human-readable log lines only; the underlying value used in arithmetic
// is always the exact decimal.Decimal, never this string.
func humanizeDecimal(d decimal.Decimal) string {
	whole := d.IntPart()
	rendered := d.StringFixed(-d.Exponent())
	dot := strings.IndexByte(rendered, '.')
	if dot < 0 {
		return humanize.Comma(whole)
	}
	return humanize.Comma(whole) + rendered[dot:]
}
