// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger is the only code path that talks to the chain.

# Gateway

	CreatePoll(ctx, title, candidates, durationMinutes) → *txn.Pending[pollID]
	SubmitVote(ctx, pollID, candidateIndex)             → *txn.Pending[struct{}]
	GetPollDetails / GetTallies / HasVoted / ListPolls

Input is validated before anything is signed: ErrInvalidPollSpec for an
empty title, fewer than two candidates, a blank candidate or a non-positive
duration, and ErrInvalidCandidateIndex for an out-of-range vote.

# Rejections

The ledger reports rejections as reason codes, mapped to errors:

	already_voted     → ErrAlreadyVoted
	poll_closed       → ErrPollClosed
	poll_not_started  → ErrPollNotStarted
	poll_not_found    → ErrPollNotFound
	invalid_candidate → ErrInvalidCandidateIndex
	invalid_poll      → ErrInvalidPollSpec
	bad_signature     → ErrBadSignature
	malformed_tx      → ErrMalformedTx

Unknown codes surface as *RejectionError with the raw code.

# Tracking

NodeClient posts signed transactions to POST /tx and polls GET /tx/{hash}
until the receipt is terminal. A transaction that stays unacknowledged for
the tracking timeout resolves as Dropped. Tracking runs on its own context:
callers that stop waiting do not stop the tracker.
*/
package ledger
