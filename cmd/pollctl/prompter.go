// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/wallet"
)

// ptermPrompter asks on the terminal before connecting or signing.
type ptermPrompter struct{}

func (ptermPrompter) ApproveConnect(ctx context.Context, app string, accounts []wallet.Identity) (bool, error) {
	labels := make([]string, len(accounts))
	for i, id := range accounts {
		labels[i] = accountLabel(id)
	}
	pterm.DefaultBox.WithTitle(pterm.LightCyan("|CONNECT|")).WithTitleTopCenter().
		Println(fmt.Sprintf("%s wants to use:\n%s", app, strings.Join(labels, "\n")))
	return confirm(ctx, "Connect?")
}

func (ptermPrompter) ApproveTx(ctx context.Context, tx models.UnsignedTx, id wallet.Identity) (bool, error) {
	pterm.DefaultBox.WithTitle(pterm.LightYellow("|SIGN|")).WithTitleTopCenter().
		Println(describeTx(tx, id))
	return confirm(ctx, "Sign and send?")
}

func describeTx(tx models.UnsignedTx, id wallet.Identity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", accountLabel(id))
	switch tx.Kind {
	case models.KindCreatePoll:
		var p models.CreatePollPayload
		if err := json.Unmarshal(tx.Body, &p); err == nil {
			fmt.Fprintf(&b, "Create poll %q\n", p.Title)
			fmt.Fprintf(&b, "Candidates: %s\n", strings.Join(p.Candidates, ", "))
			fmt.Fprintf(&b, "Duration: %d minutes", p.DurationMinutes)
			return b.String()
		}
	case models.KindVote:
		var v models.VotePayload
		if err := json.Unmarshal(tx.Body, &v); err == nil {
			fmt.Fprintf(&b, "Vote on poll %s for candidate #%d", v.PollID, v.CandidateIndex)
			return b.String()
		}
	}
	fmt.Fprintf(&b, "%s %s", tx.Kind, tx.Body)
	return b.String()
}

// confirm shows a yes/no prompt; a cancelled ctx answers for the user.
func confirm(ctx context.Context, text string) (bool, error) {
	type answer struct {
		ok  bool
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		ok, err := pterm.DefaultInteractiveConfirm.WithDefaultText(text).WithDefaultValue(false).Show()
		ch <- answer{ok, err}
	}()

	select {
	case a := <-ch:
		return a.ok, a.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
