// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to a sqlite or postgres database and checks the connection.
func Open(dbType, url string) (*sql.DB, error) {
	if dbType != "sqlite" && dbType != "postgres" {
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(dbType, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}

	if dbType == "sqlite" {
		// An in-memory database lives and dies with its connection.
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		if !strings.Contains(url, ":memory:") {
			if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to enable WAL: %w", err)
			}
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return conn, nil
}

// CreateSchema creates all tables needed for the chain node.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Tables lists every table, children first.
var Tables = []string{"vote", "candidate", "poll", "tx", "block"}

const schema = `
-- Blocks
CREATE TABLE IF NOT EXISTS block (
    height BIGINT PRIMARY KEY,
    hash TEXT NOT NULL UNIQUE,
    prev_hash TEXT NOT NULL,
    tx_count INTEGER NOT NULL,
    mined_at BIGINT NOT NULL
);

-- Transactions, pending until mined
CREATE TABLE IF NOT EXISTS tx (
    hash TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    sender TEXT NOT NULL,
    nonce TEXT NOT NULL,
    body TEXT NOT NULL,
    signature TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed', 'rejected')),
    reason TEXT,
    poll_id TEXT,
    block_height BIGINT REFERENCES block(height),
    received_ns BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tx_status ON tx(status, received_ns);

-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    seq BIGINT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    creator TEXT NOT NULL,
    start_time BIGINT NOT NULL,
    end_time BIGINT NOT NULL,
    tx_hash TEXT NOT NULL REFERENCES tx(hash)
);

-- Candidates with running tallies
CREATE TABLE IF NOT EXISTS candidate (
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    name TEXT NOT NULL,
    votes BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (poll_id, idx)
);

-- Votes, one per voter per poll
CREATE TABLE IF NOT EXISTS vote (
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    voter TEXT NOT NULL,
    candidate_idx INTEGER NOT NULL,
    tx_hash TEXT NOT NULL REFERENCES tx(hash),
    block_height BIGINT NOT NULL,
    UNIQUE (poll_id, voter)
);

CREATE INDEX IF NOT EXISTS idx_vote_poll_id ON vote(poll_id);
`
