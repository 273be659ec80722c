// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides account keys, transaction signing and hashing.

# Accounts

Accounts are ed25519 public keys rendered as 0x-prefixed hex:

	priv, err := auth.GenerateKey()
	account := auth.AccountOf(priv)

Keys are persisted as their hex encoded 32-byte seed:

	seed := auth.SeedHex(priv)
	priv, err := auth.KeyFromSeed(seed)

# Signing

A transaction is signed over a canonical JSON encoding of its kind, sender,
nonce and compacted body:

	stx, err := auth.Sign(priv, unsignedTx)
	err = auth.VerifySignature(stx) // ErrInvalidSignature on mismatch

# Transaction Hashes

TxHash is deterministic over the signed transaction. The wallet and the
ledger compute the same value, which lets the client keep tracking a
submission even if the ledger's response never arrives.

# Display

	auth.ShortenAccount("0x5E9a357e1261BbC01EC81593a19349DbF76caAF3") // "0x5E9...aF3"

# ID Generation

Random hex IDs, used as transaction nonces:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
