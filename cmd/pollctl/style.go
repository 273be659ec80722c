// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/danielhkuo/pollchain/auth"
	"github.com/danielhkuo/pollchain/lifecycle"
	"github.com/danielhkuo/pollchain/models"
	"github.com/danielhkuo/pollchain/tally"
	"github.com/danielhkuo/pollchain/voting"
	"github.com/danielhkuo/pollchain/wallet"
)

func accountLabel(id wallet.Identity) string {
	short := auth.ShortenAccount(id.Account)
	if id.Name == "" {
		return short
	}
	return id.Name + " (" + short + ")"
}

// timing describes where now sits relative to the poll window.
func timing(p models.Poll, now time.Time) string {
	start, end := time.Unix(p.StartTime, 0), time.Unix(p.EndTime, 0)
	switch lifecycle.Of(p, now) {
	case lifecycle.Upcoming:
		return "starts " + humanize.RelTime(start, now, "ago", "from now")
	case lifecycle.Ongoing:
		return "ends " + humanize.RelTime(end, now, "ago", "from now")
	default:
		return "ended " + humanize.RelTime(end, now, "ago", "from now")
	}
}

func pollRows(polls []models.Poll, now time.Time) pterm.TableData {
	rows := pterm.TableData{{"ID", "Title", "Candidates", "Creator", "When"}}
	for _, p := range polls {
		rows = append(rows, []string{
			p.ID,
			p.Title,
			strconv.Itoa(len(p.Candidates)),
			auth.ShortenAccount(p.Creator),
			timing(p, now),
		})
	}
	return rows
}

// renderPollGroups prints live polls first, then upcoming, then ended.
func renderPollGroups(g lifecycle.Groups, now time.Time) {
	sections := []struct {
		title string
		polls []models.Poll
	}{
		{"Ongoing (LIVE)", g.Ongoing},
		{"Upcoming", g.Upcoming},
		{"Ended", g.Ended},
	}
	for _, s := range sections {
		pterm.DefaultSection.Println(s.title)
		if len(s.polls) == 0 {
			pterm.Println(pterm.Gray("  none"))
			continue
		}
		pterm.DefaultTable.WithHasHeader().WithData(pollRows(s.polls, now)).Render()
	}
}

func tallyRows(p models.Poll, t models.TallySnapshot) pterm.TableData {
	rows := pterm.TableData{{"#", "Candidate", "Votes"}}
	for i, name := range p.Candidates {
		rows = append(rows, []string{strconv.Itoa(i), name, humanize.Comma(int64(t.Count(i)))})
	}
	return rows
}

func renderPoll(p models.Poll, t models.TallySnapshot, now time.Time) {
	phase := lifecycle.Of(p, now)
	body := strings.Join([]string{
		"Creator: " + p.Creator,
		"Opens:   " + time.Unix(p.StartTime, 0).Format(time.RFC1123),
		"Closes:  " + time.Unix(p.EndTime, 0).Format(time.RFC1123),
		"Status:  " + phase.String() + ", " + timing(p, now),
		"Votes:   " + humanize.Comma(int64(tally.Total(p, t))),
	}, "\n")
	pterm.DefaultBox.WithTitle(pterm.LightCyan("|POLL "+p.ID+"| "+p.Title)).WithTitleTopLeft().Println(body)
	pterm.DefaultTable.WithHasHeader().WithData(tallyRows(p, t)).Render()
}

func winnerText(p models.Poll, r models.WinnerResult) string {
	names := tally.Names(p, r)
	switch r.Kind {
	case models.SingleWinner:
		return names[0] + " wins with " + humanize.Comma(int64(r.Votes)) + " " + plural(r.Votes, "vote")
	case models.Tie:
		return "Tie between " + strings.Join(names, ", ") + " with " + humanize.Comma(int64(r.Votes)) + " " + plural(r.Votes, "vote") + " each"
	default:
		return "No votes were cast"
	}
}

func plural(n uint64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func stateText(s voting.State) string {
	switch s {
	case voting.Confirmed:
		return pterm.LightGreen("vote confirmed")
	case voting.Rejected:
		return pterm.LightRed("vote rejected")
	case voting.Indeterminate:
		return pterm.LightYellow("vote outcome unknown")
	case voting.Submitting:
		return pterm.LightYellow("vote submitting")
	}
	return "not voted"
}
