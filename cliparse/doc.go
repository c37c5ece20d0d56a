// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration
for the rcvtab demo binary.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - DBPath: sqlite fixture database path (default: "rcv.db")
  - ContestID: contest ID to tabulate (required)
  - NumWinners: seat count override (0 = use the contest's stored value)
  - RandomSeed: seed for random-tiebreak modes
  - GenerateCDF: export a CDF snapshot after tabulation
  - OutputDir: where to write that export

# CLI Flags

	-db        sqlite fixture database path
	-contest   contest ID to tabulate
	-winners   seat count override
	-seed      random seed
	-cdf       generate a CDF export
	-out       CDF export output directory

# Environment Variables

A .env file in the working directory is loaded first, if present, before
flags fall back to the environment:

	DB_PATH      → -db
	CONTEST_ID   → -contest
	NUM_WINNERS  → -winners
	RANDOM_SEED  → -seed
	GENERATE_CDF → -cdf
	OUTPUT_DIR   → -out

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if CONTEST_ID is missing from both the flag
and the environment.

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	db, err := cvrstore.Open(cfg.DBPath)
	// ...
*/
package cliparse
