// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handlers of the pollchain node.

# Handler Types

  - TxHandler: transaction submission and receipts, backed by *chain.Chain
  - PollHandler: confirmed poll listing and details
  - ResultsHandler: tallies and has-voted lookups

	txHandler := handlers.NewTxHandler(c)
	pollHandler := handlers.NewPollHandler(db, cfg)

# Transactions

	POST /tx          → SubmitTx (202 with tx_hash; contract rules run at mining)
	GET  /tx/{hash}   → GetTx (pending, confirmed or rejected with a reason)

A signature that does not verify is refused with code bad_signature. An
unknown kind or an undecodable body is refused with code malformed_tx. An
unknown hash is a plain 404 since the transaction may still be on its way.

# Reads

	GET /polls?offset=&limit=          → ListPolls (creation order, limit 1..100)
	GET /polls/{id}                    → GetPoll
	GET /polls/{id}/tallies            → GetTallies
	GET /polls/{id}/voters/{account}   → HasVoted

Unknown polls are a 404 with code poll_not_found. Reads only ever see
mined state.
*/
package handlers
