// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/pollchain/auth"
	"github.com/danielhkuo/pollchain/client"
	"github.com/danielhkuo/pollchain/ledger"
	"github.com/danielhkuo/pollchain/lifecycle"
	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/voting"
	"github.com/danielhkuo/pollchain/wallet"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen <name>",
	Short: "Generate a new account key in the keystore",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, err := auth.GenerateKey()
		if err != nil {
			return err
		}
		path, err := wallet.SaveKey(cfg.KeystoreDir, args[0], priv)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Created %s", auth.AccountOf(priv))
		pterm.Info.Printfln("Key written to %s", path)
		return nil
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List keystore accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := wallet.NewKeystore(client.AppName, wallet.AutoApprove{}, nil)
		if _, err := keys.LoadDir(cfg.KeystoreDir); err != nil {
			return err
		}
		ids, err := keys.Accounts(cmd.Context())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return wallet.ErrNoIdentityAvailable
		}

		rows := pterm.TableData{{"Name", "Account"}}
		for _, id := range ids {
			rows = append(rows, []string{id.Name, id.Account})
		}
		pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		pterm.Info.Println("Connect uses the first account.")
		return nil
	},
}

var pollsCmd = &cobra.Command{
	Use:   "polls",
	Short: "List polls grouped by phase",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := openClient()
		if err != nil {
			return err
		}

		var polls []models.Poll
		for p, err := range c.ListPolls(ctx) {
			if err != nil {
				return err
			}
			polls = append(polls, p)
		}

		now := time.Now()
		renderPollGroups(lifecycle.Group(polls, now), now)
		return nil
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll <id>",
	Short: "Show a poll and its current tallies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := openClient()
		if err != nil {
			return err
		}
		p, err := c.Poll(ctx, args[0])
		if err != nil {
			return err
		}
		t, err := c.Tallies(ctx, p.ID)
		if err != nil {
			return err
		}
		renderPoll(p, t, time.Now())
		return nil
	},
}

var (
	createTitle      string
	createCandidates []string
	createMinutes    int
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a poll",
	Long: `Create a poll that opens when it is mined and stays open for --minutes.

Missing values are asked for interactively.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := askPollSpec(); err != nil {
			return err
		}

		c, _, err := connectedClient(ctx)
		if err != nil {
			return err
		}

		pending, err := c.CreatePoll(ctx, createTitle, createCandidates, createMinutes)
		if err != nil {
			return err
		}

		spinner, _ := pterm.DefaultSpinner.Start("Waiting for the poll to be mined...")
		out, err := pending.Wait(ctx)
		if err != nil {
			spinner.Warning("Stopped waiting for " + pending.Hash())
			return err
		}
		if err := out.Err(); err != nil {
			spinner.Fail("Poll was not created")
			return err
		}
		spinner.Success("Poll created")
		pterm.Info.Printfln("Poll id %s, open for %d minutes", out.Value, createMinutes)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&createTitle, "title", "t", "", "poll title")
	createCmd.Flags().StringArrayVarP(&createCandidates, "candidate", "c", nil, "candidate name (repeat for each)")
	createCmd.Flags().IntVarP(&createMinutes, "minutes", "m", 0, "how long the poll stays open")
}

func askPollSpec() error {
	var err error
	if strings.TrimSpace(createTitle) == "" {
		if createTitle, err = pterm.DefaultInteractiveTextInput.WithDefaultText("Poll title").Show(); err != nil {
			return err
		}
	}
	for len(createCandidates) < 2 {
		name, err := pterm.DefaultInteractiveTextInput.
			WithDefaultText(fmt.Sprintf("Candidate #%d (empty to finish)", len(createCandidates))).Show()
		if err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			break
		}
		createCandidates = append(createCandidates, name)
	}
	if createMinutes <= 0 {
		raw, err := pterm.DefaultInteractiveTextInput.WithDefaultText("Duration in minutes").Show()
		if err != nil {
			return err
		}
		if createMinutes, err = strconv.Atoi(strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
	}
	return nil
}

var voteCmd = &cobra.Command{
	Use:   "vote <poll> [candidate]",
	Short: "Vote on a poll",
	Long: `Vote on a poll. The candidate is an index or a name; without one you
pick from a list. The command waits until the vote is mined, rejected or
dropped. Ctrl-C stops waiting without cancelling the vote.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, _, err := connectedClient(ctx)
		if err != nil {
			return err
		}
		p, err := c.Poll(ctx, args[0])
		if err != nil {
			return err
		}

		var choice string
		if len(args) == 2 {
			choice = args[1]
		} else if choice, err = pterm.DefaultInteractiveSelect.
			WithDefaultText(p.Title).WithOptions(p.Candidates).Show(); err != nil {
			return err
		}
		idx, err := candidateIndex(p, choice)
		if err != nil {
			return err
		}

		spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Voting for %s...", p.Candidates[idx]))
		res, err := c.CastVote(ctx, p.ID, idx)
		switch {
		case err == nil:
			spinner.Success(stateText(res.State))
			c.Wait()
		case res.State == voting.Submitting || res.State == voting.Indeterminate:
			spinner.Warning(stateText(res.State))
		default:
			spinner.Fail(stateText(res.State))
			c.Wait()
		}
		if res.TxHash != "" {
			pterm.Info.Printfln("Transaction %s", res.TxHash)
		}
		return err
	},
}

// candidateIndex accepts an index or an exact candidate name.
func candidateIndex(p models.Poll, choice string) (int, error) {
	if i := slices.Index(p.Candidates, choice); i >= 0 {
		return i, nil
	}
	i, err := strconv.Atoi(choice)
	if err != nil {
		return 0, fmt.Errorf("%w: no candidate named %q on poll %s", ledger.ErrInvalidCandidateIndex, choice, p.ID)
	}
	if err := ledger.ValidateCandidateIndex(i, len(p.Candidates)); err != nil {
		return 0, err
	}
	return i, nil
}

var winnerCmd = &cobra.Command{
	Use:   "winner <poll>",
	Short: "Show the winner of an ended poll",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := openClient()
		if err != nil {
			return err
		}
		p, err := c.Poll(ctx, args[0])
		if err != nil {
			return err
		}
		res, err := c.ResolveWinner(ctx, p)
		if errors.Is(err, client.ErrPollNotEnded) {
			pterm.Warning.Printfln("%s: %s", p.Title, timing(p, time.Now()))
		}
		if err != nil {
			return err
		}

		pterm.DefaultBox.WithTitle(pterm.LightGreen("|RESULT|")).WithTitleTopCenter().Println(winnerText(p, res))
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <poll>",
	Short: "Ask the ledger whether your vote on a poll landed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, _, err := connectedClient(ctx)
		if err != nil {
			return err
		}
		state, err := c.Reconcile(ctx, args[0])
		if err != nil {
			return err
		}
		pterm.Info.Printfln("Poll %s: %s", args[0], stateText(state))
		return nil
	},
}
