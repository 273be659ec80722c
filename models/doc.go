// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain and wire types shared by the client core and
the development chain node.

# Domain Types

  - Poll: immutable poll metadata (title, ordered candidates, start/end in unix seconds, creator)
  - VoteRecord: the local record of one voter's vote on one poll
  - TallySnapshot: candidate index → vote count, read fresh from the ledger
  - WinnerResult: SingleWinner, Tie or NoVotesCast

# Wire Types

Transactions travel as JSON:

  - UnsignedTx: kind, nonce and body handed to a wallet for signing
  - SignedTx: UnsignedTx plus sender account and ed25519 signature
  - TxReceipt: pending, confirmed or rejected with a reason code
  - PollPage, TalliesResponse, HasVotedResponse: read query responses
  - ErrorResponse: error, message, code

# Constants

Transaction kinds:

	KindCreatePoll = "create_poll"
	KindVote       = "vote"

Receipt status:

	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"

Rejection reasons:

	ReasonAlreadyVoted, ReasonPollClosed, ReasonPollNotStarted,
	ReasonPollNotFound, ReasonInvalidCandidate, ReasonInvalidPoll,
	ReasonBadSignature, ReasonMalformedTx
*/
package models
