// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting drives a vote from intent to a ledger verdict.

# States

Each (poll, voter) pair moves through:

	Unvoted → Submitting → Confirmed
	                     → Rejected
	                     → Indeterminate → Confirmed (ledger shows the vote)
	                                     → Unvoted   (ledger does not)

Confirmed and Rejected are final. Indeterminate means the transaction was
dropped without an acknowledgment; the ledger is asked before anything else
is submitted for that pair.

# CastVote

CastVote checks, in order: the poll is Ongoing (ErrPollNotOpen), a wallet
is connected (wallet.ErrNotConnected), no submission is in flight for the
pair (ErrSubmissionInProgress), the local record (ledger.ErrAlreadyVoted or
the recorded rejection), and the candidate index. Only then is the vote
signed and submitted.

Nothing is retried silently. A dropped vote is reported as txn.ErrDropped and
stays Indeterminate until Reconcile, RunReconciler or the next CastVote asks
the ledger.
*/
package voting
