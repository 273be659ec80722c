// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package wallet holds the connected identity and the capability to sign and
submit transactions.

# Session

	s := wallet.NewSession(provider)
	id, err := s.Connect(ctx)       // may prompt; ErrUserCancelled if dismissed
	id, ok := s.CurrentIdentity()   // never blocks
	s.Disconnect()

Connect fails with ErrNoProviderFound when no provider is configured and
ErrNoIdentityAvailable when the provider has no accounts.

# Keystore

Keystore is a development provider backed by ed25519 keys. Keys live as
hex seeds in <dir>/<name>.key:

	ks := wallet.NewKeystore("Voting DApp", prompter, broadcaster)
	n, err := ks.LoadDir(dir)

Every connect and every signature goes through the Prompter; a refusal is
reported as ErrUserCancelled and nothing is broadcast.
*/
package wallet
