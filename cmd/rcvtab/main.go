// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command rcvtab is a demo entry point: it loads a contest fixture out of
// a cvrstore sqlite database, runs it through the tabulator, logs the
// result, and optionally exports a CDF snapshot back into the same
// database. It exists to exercise the engine end to end — a real
// integration would supply its own config.ContestConfig and
// []*cvr.CastVoteRecord straight from its own CVR reader, never touching
// cvrstore.
package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/mesutgk15/rcv/audit"
	"github.com/mesutgk15/rcv/cdf"
	"github.com/mesutgk15/rcv/cliparse"
	"github.com/mesutgk15/rcv/cvrstore"
	"github.com/mesutgk15/rcv/tabulator"
	"github.com/mesutgk15/rcv/tiebreak"
)

func main() {
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(1)
	}

	db, err := cvrstore.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open cvrstore database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("cvrstore schema ready", "path", cfg.DBPath)

	candidates, err := cvrstore.LoadCandidates(db, cfg.ContestID)
	if err != nil {
		slog.Error("failed to load candidates", "contest", cfg.ContestID, "error", err)
		os.Exit(1)
	}
	if len(candidates) == 0 {
		slog.Error("contest has no candidates", "contest", cfg.ContestID)
		os.Exit(1)
	}

	cvrs, err := cvrstore.LoadCVRs(db, cfg.ContestID)
	if err != nil {
		slog.Error("failed to load cast vote records", "contest", cfg.ContestID, "error", err)
		os.Exit(1)
	}
	slog.Info("loaded contest", "contest", cfg.ContestID, "candidates", len(candidates), "ballots", len(cvrs))

	numWinners := cfg.NumWinners
	if numWinners <= 0 {
		if err := db.QueryRow(`SELECT num_winners FROM contest WHERE id = ?`, cfg.ContestID).Scan(&numWinners); err != nil {
			slog.Error("failed to load contest seat count", "contest", cfg.ContestID, "error", err)
			os.Exit(1)
		}
	}
	if numWinners <= 0 {
		numWinners = 1
	}
	contestCfg := cvrstore.BuildConfig(candidates, numWinners)
	contestCfg.GenerateCDFJSON = cfg.GenerateCDF
	contestCfg.Seed = cfg.RandomSeed

	logger := audit.NewSlogLogger(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var rng *rand.Rand
	if contestCfg.NeedsRandomSeed() {
		rng = rand.New(rand.NewSource(cfg.RandomSeed))
	}
	tb := tiebreak.New(contestCfg, rng, nil)

	t, err := tabulator.New(contestCfg, cvrs, logger, tb)
	if err != nil {
		slog.Error("failed to construct tabulator", "error", err)
		os.Exit(1)
	}

	result, err := t.Tabulate(context.Background())
	if err != nil {
		slog.Error("tabulation failed", "error", err)
		os.Exit(1)
	}

	slog.Info("tabulation complete", "winners", result.Winners, "rounds", len(result.RoundTallies))

	if cfg.GenerateCDF {
		rows := cdf.Export(cvrs, time.Now())
		if err := cvrstore.SaveCDFExport(db, cfg.ContestID, rows); err != nil {
			slog.Error("failed to save cdf export", "error", err)
			os.Exit(1)
		}
		slog.Info("cdf export saved", "rows", len(rows))
	}
}
