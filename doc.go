// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main runs the pollchain development node.

pollchain is a voting system where polls and votes are signed transactions
recorded on a small hash-linked chain. The node keeps a mempool, mines a
block every BlockInterval and serves confirmed state over HTTP. Wallet-side
logic (vote submission, tracking, reconciliation, winner resolution) lives
in the client package and the pollctl command.

# Starting the Node

	go run .

uses a local sqlite file. Against PostgreSQL:

	go run . -t postgres -d "postgres://..."

# Configuration

Flags fall back to environment variables, and a .env file is loaded first
if present:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - DATABASE_URL (-d): connection string (sqlite default: pollchain.db)
  - BLOCK_INTERVAL (-block-interval): mining period (default: 2s)

# Architecture

  - chain: mempool, miner, contract rules, metrics
  - handlers: HTTP request handlers (transactions, polls, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - db: Schema creation for sqlite and postgres
  - cliparse: Configuration parsing

Client side:

  - client: facade over the ledger, store and vote orchestrator
  - voting: per-poll vote submission state machine
  - ledger: HTTP client for the node and typed rejection errors
  - txn: pending transaction handle
  - wallet: keystore, identity and signing session
  - store: LRU poll and vote cache
  - lifecycle, tally: phase classification and winner resolution
  - cmd/pollctl: command line wallet

See package documentation for each component.
*/
package main
