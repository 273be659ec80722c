// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package chain is the single-node development ledger.

# Mempool

Submit verifies the ed25519 signature and stores the transaction as pending.
The transaction hash is computed the same way clients compute it, so a
client that lost the response can still ask for the receipt:

	hash, err := c.Submit(ctx, stx)

# Mining

Every BlockInterval, Run calls MineBlock. A block takes every pending
transaction in arrival order and applies the contract rules inside one SQL
transaction:

  - create_poll: title, at least two non-blank candidates and a positive
    duration; the poll opens at the block time and its id is the number of
    polls before it ("0", "1", ...)
  - vote: the poll exists, block time is inside [start, end), the candidate
    index is in range and the voter has not voted on the poll

A failed rule rejects that transaction with a reason code and mining goes on.
Blocks are linked by sha256 hashes and Verify rechecks the whole chain.

# Metrics

NewMetrics registers counters and gauges for submitted, confirmed and
rejected transactions, mined blocks, block height and mempool size.
*/
package chain
