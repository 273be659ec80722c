// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Node

ParseFlags returns the chain node Config:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

  - Port: Server listen port (default: 3318)
  - DatabaseURL: database connection string (default for sqlite: pollchain.db)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - BlockInterval: time between mined blocks (default: 2s)

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	BLOCK_INTERVAL → -block-interval

CLI flags take precedence over environment variables.

# Client

ParseClientEnv returns the ClientConfig used by pollctl:

	NODE_URL            chain node base URL (default http://localhost:3318)
	KEYSTORE_DIR        directory of *.key files (default ~/.pollchain/keys)
	TX_TIMEOUT          how long a transaction may stay unacknowledged (60s)
	TX_POLL_INTERVAL    receipt polling interval (500ms)
	RECONCILE_INTERVAL  background reconciliation interval (30s)
	POLL_CACHE_SIZE     polls kept in the local store (512)

# .env

LoadDotEnv loads a .env file from the working directory before either parser
runs. Variables already set in the environment win.
*/
package cliparse
