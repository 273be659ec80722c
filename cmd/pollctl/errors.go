// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"

	"github.com/pterm/pterm"

	"github.com/danielhkuo/pollchain/client"
	"github.com/danielhkuo/pollchain/ledger"
	"github.com/danielhkuo/pollchain/txn"
	"github.com/danielhkuo/pollchain/voting"
	"github.com/danielhkuo/pollchain/wallet"
)

var messages = []struct {
	err error
	msg string
}{
	{wallet.ErrNoProviderFound, "No wallet available. Check --keystore and --node."},
	{wallet.ErrNoIdentityAvailable, "The keystore has no keys. Create one with `pollctl keygen <name>`."},
	{wallet.ErrUserCancelled, "Request cancelled in the wallet."},
	{wallet.ErrNotConnected, "Wallet is not connected."},

	{voting.ErrPollNotOpen, "This poll is not open for voting."},
	{voting.ErrSubmissionInProgress, "A vote for this poll is already being submitted."},
	{client.ErrPollNotEnded, "The winner is only known once the poll has ended."},

	{ledger.ErrAlreadyVoted, "You have already voted on this poll."},
	{ledger.ErrPollClosed, "The poll closed before the vote was included in a block."},
	{ledger.ErrPollNotStarted, "The poll has not started yet."},
	{ledger.ErrPollNotFound, "No poll with that id."},
	{ledger.ErrInvalidCandidateIndex, "That candidate does not exist on this poll."},
	{ledger.ErrInvalidPollSpec, "Invalid poll: a title, at least two candidates and a positive duration are required."},
	{ledger.ErrBadSignature, "The node refused the transaction signature."},
	{ledger.ErrMalformedTx, "The node could not decode the transaction."},
	{ledger.ErrNodeUnreachable, "Could not reach the chain node."},
	{ledger.ErrUnexpectedStatus, "The chain node gave an unexpected answer. Check NODE_URL and try again."},

	{txn.ErrDropped, "No answer from the ledger. The vote may still land; run `pollctl reconcile <poll>` later."},
	{context.Canceled, "Stopped waiting. The transaction may still land; run `pollctl reconcile <poll>` later."},
	{context.DeadlineExceeded, "Timed out waiting for the node."},
}

// describe maps an error to a user-facing message, one per failure kind.
func describe(err error) string {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	var rej *ledger.RejectionError
	if errors.As(err, &rej) {
		return "The ledger rejected the transaction: " + rej.Code
	}
	return err.Error()
}

func printError(err error) {
	pterm.Error.Println(describe(err))
	if verbose {
		pterm.Println(pterm.Gray(err.Error()))
	}
}
