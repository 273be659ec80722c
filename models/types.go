// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"
)

// Transaction kinds
const (
	KindCreatePoll = "create_poll"
	KindVote       = "vote"
)

// Receipt status constants
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

// Rejection reason codes reported by the ledger
const (
	ReasonAlreadyVoted     = "already_voted"
	ReasonPollClosed       = "poll_closed"
	ReasonPollNotStarted   = "poll_not_started"
	ReasonPollNotFound     = "poll_not_found"
	ReasonInvalidCandidate = "invalid_candidate"
	ReasonInvalidPoll      = "invalid_poll"
	ReasonBadSignature     = "bad_signature"
	ReasonMalformedTx      = "malformed_tx"
)

// Domain types

type Poll struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Candidates []string `json:"candidates"`
	StartTime  int64    `json:"start_time"` // unix seconds, inclusive
	EndTime    int64    `json:"end_time"`   // unix seconds, exclusive
	Creator    string   `json:"creator"`
}

// TxState is the local view of a vote transaction.
type TxState int

const (
	TxPending TxState = iota
	TxConfirmed
	TxFailed
)

func (s TxState) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition is allowed.
func (s TxState) Terminal() bool {
	return s == TxConfirmed || s == TxFailed
}

type VoteRecord struct {
	PollID         string    `json:"poll_id"`
	Voter          string    `json:"voter"`
	CandidateIndex int       `json:"candidate_index"` // -1 when learned from the ledger only
	State          TxState   `json:"state"`
	TxHash         string    `json:"tx_hash,omitempty"`
	Reason         string    `json:"reason,omitempty"` // ledger rejection code when failed
	UpdatedAt      time.Time `json:"updated_at"`
}

// TallySnapshot maps candidate index to vote count. Missing indices count as zero.
type TallySnapshot struct {
	PollID    string         `json:"poll_id"`
	Counts    map[int]uint64 `json:"counts"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Count returns the tally for a candidate index.
func (t TallySnapshot) Count(idx int) uint64 {
	return t.Counts[idx]
}

// WinnerKind classifies a resolved poll outcome.
type WinnerKind int

const (
	NoVotesCast WinnerKind = iota
	SingleWinner
	Tie
)

func (k WinnerKind) String() string {
	switch k {
	case SingleWinner:
		return "single_winner"
	case Tie:
		return "tie"
	}
	return "no_votes_cast"
}

type WinnerResult struct {
	Kind    WinnerKind `json:"kind"`
	Winners []int      `json:"winners,omitempty"` // ascending candidate indices
	Votes   uint64     `json:"votes"`             // the winning count
}

// Wire types

type CreatePollPayload struct {
	Title           string   `json:"title"`
	Candidates      []string `json:"candidates"`
	DurationMinutes int      `json:"duration_minutes"`
}

type VotePayload struct {
	PollID         string `json:"poll_id"`
	CandidateIndex int    `json:"candidate_index"`
}

// UnsignedTx is what a wallet is asked to sign.
type UnsignedTx struct {
	Kind  string          `json:"kind"`
	Nonce string          `json:"nonce"`
	Body  json.RawMessage `json:"body"`
}

type SignedTx struct {
	Kind      string          `json:"kind"`
	From      string          `json:"from"`
	Nonce     string          `json:"nonce"`
	Body      json.RawMessage `json:"body"`
	Signature string          `json:"signature"`
}

type SubmitTxResponse struct {
	TxHash string `json:"tx_hash"`
}

type TxReceipt struct {
	TxHash string `json:"tx_hash"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	PollID string `json:"poll_id,omitempty"`
	Block  *int64 `json:"block,omitempty"`
}

type PollPage struct {
	Polls  []Poll `json:"polls"`
	Offset int    `json:"offset"`
	Total  int    `json:"total"`
}

type TalliesResponse struct {
	PollID string   `json:"poll_id"`
	Counts []uint64 `json:"counts"` // indexed by candidate
}

type HasVotedResponse struct {
	PollID  string `json:"poll_id"`
	Account string `json:"account"`
	Voted   bool   `json:"voted"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}
