// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the chain node database and creates its schema.

# Connections

Open accepts "sqlite" (modernc.org/sqlite, pure Go) or "postgres"
(lib/pq). SQLite connections are limited to one so that ":memory:" databases
are shared by every query:

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

Queries use $1 placeholders and CURRENT_TIMESTAMP, which both drivers accept.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - block: hash-linked blocks, height 0 is the first mined block
  - tx: every submitted transaction with its receipt fields
  - poll: polls created by confirmed create_poll transactions
  - candidate: candidates per poll with their running tally
  - vote: one row per (poll, voter)

# Relationships

	block 1──* tx
	poll 1──* candidate
	poll 1──* vote
	tx 1──1 poll | vote

UNIQUE(poll_id, voter) on vote is the last line of the one-vote rule.
*/
package db
