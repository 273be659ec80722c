// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package tally resolves the winner of a closed poll.
//
// Ties are always reported as Tie with every tied index; no index is ever
// preferred over another.
package tally

import (
	"github.com/danielhkuo/pollchain/models"
)

// Resolve computes the outcome of poll from snapshot. Counts for indices
// outside the candidate list are ignored; missing indices count as zero.
func Resolve(poll models.Poll, snapshot models.TallySnapshot) models.WinnerResult {
	var maxCount uint64
	for i := range poll.Candidates {
		if c := snapshot.Count(i); c > maxCount {
			maxCount = c
		}
	}

	if maxCount == 0 {
		// Nobody participated; a degenerate tie over everything.
		return models.WinnerResult{Kind: models.NoVotesCast}
	}

	var winners []int
	for i := range poll.Candidates {
		if snapshot.Count(i) == maxCount {
			winners = append(winners, i)
		}
	}

	kind := models.SingleWinner
	if len(winners) > 1 {
		kind = models.Tie
	}
	return models.WinnerResult{Kind: kind, Winners: winners, Votes: maxCount}
}

// Names returns the candidate names of the winners in result.
func Names(poll models.Poll, result models.WinnerResult) []string {
	names := make([]string, 0, len(result.Winners))
	for _, idx := range result.Winners {
		if idx >= 0 && idx < len(poll.Candidates) {
			names = append(names, poll.Candidates[idx])
		}
	}
	return names
}

// Total sums the votes cast for poll's candidates.
func Total(poll models.Poll, snapshot models.TallySnapshot) uint64 {
	var total uint64
	for i := range poll.Candidates {
		total += snapshot.Count(i)
	}
	return total
}
