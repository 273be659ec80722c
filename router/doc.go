// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the HTTP routes of the pollchain node.

# Route Registration

	mux := router.NewRouter(db, c, cfg, registry)

The gatherer is served on /metrics and is normally the registry the chain
metrics were registered with.

# Endpoints

	GET  /health
	GET  /metrics

	POST /tx                          - Queue a signed transaction
	GET  /tx/{hash}                   - Transaction receipt

	GET  /polls                       - Confirmed polls, paged
	GET  /polls/{id}                  - Poll details
	GET  /polls/{id}/tallies          - Vote counts by candidate index
	GET  /polls/{id}/voters/{account} - Whether an account has voted
*/
package router
