// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Pollctl is a command line wallet for a pollchain node.

# Usage

	pollctl keygen alice
	pollctl create -t "Lunch" -c Pizza -c Tacos -m 30
	pollctl polls
	pollctl vote 0 Tacos
	pollctl poll 0
	pollctl winner 0
	pollctl reconcile 0

Keys live in KEYSTORE_DIR (default ~/.pollchain/keys) as hex seeds, one
*.key file per account. Connecting selects the first account by file name.

Every signature is confirmed on the terminal unless --yes is given. A vote
that gets no answer before TX_TIMEOUT is reported as unknown, never retried;
reconcile asks the ledger whether it landed.
*/
package main
