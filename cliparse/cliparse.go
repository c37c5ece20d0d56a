// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/rcvtab needs to load a contest out of a
// cvrstore database and run it.
type Config struct {
	DBPath      string
	ContestID   string
	NumWinners  int
	RandomSeed  int64
	GenerateCDF bool
	OutputDir   string
}

// ParseFlags validates flags and applies defaults/env fallbacks.
func ParseFlags(args []string) (Config, error) {
	_ = godotenv.Load() // optional; a missing .env is not an error

	var cfg Config

	fs := flag.NewFlagSet("rcvtab", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "db", "", "sqlite fixture database path")
	fs.StringVar(&cfg.ContestID, "contest", "", "contest ID to tabulate")
	fs.IntVar(&cfg.NumWinners, "winners", 0, "seat count override (0 = use stored value)")
	seed := fs.Int64("seed", 0, "random seed for random-tiebreak modes")
	fs.BoolVar(&cfg.GenerateCDF, "cdf", false, "generate a CDF export after tabulation")
	fs.StringVar(&cfg.OutputDir, "out", "", "CDF export output directory")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.RandomSeed = *seed

	// Fall back to environment variables
	if cfg.DBPath == "" {
		cfg.DBPath = os.Getenv("DB_PATH")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "rcv.db" // default
	}

	if cfg.ContestID == "" {
		cfg.ContestID = os.Getenv("CONTEST_ID")
	}
	if cfg.ContestID == "" {
		return Config{}, errors.New("contest ID required (use -contest or CONTEST_ID env)")
	}

	if cfg.NumWinners == 0 {
		if raw := os.Getenv("NUM_WINNERS"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return Config{}, errors.New("invalid NUM_WINNERS env variable")
			}
			cfg.NumWinners = n
		}
	}

	if cfg.RandomSeed == 0 {
		if raw := os.Getenv("RANDOM_SEED"); raw != "" {
			seed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return Config{}, errors.New("invalid RANDOM_SEED env variable")
			}
			cfg.RandomSeed = seed
		}
	}

	if !cfg.GenerateCDF {
		if raw := os.Getenv("GENERATE_CDF"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return Config{}, errors.New("invalid GENERATE_CDF env variable")
			}
			cfg.GenerateCDF = v
		}
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = os.Getenv("OUTPUT_DIR")
	}

	return cfg, nil
}
