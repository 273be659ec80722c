// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package lifecycle classifies polls into Upcoming, Ongoing and Ended.
package lifecycle

import (
	"time"

	"github.com/danielhkuo/pollchain/models"
)

type Phase int

const (
	Upcoming Phase = iota
	Ongoing
	Ended
)

func (p Phase) String() string {
	switch p {
	case Upcoming:
		return "upcoming"
	case Ongoing:
		return "ongoing"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// Classify maps a unix-second instant onto a poll window.
// The start instant is Ongoing and the end instant is Ended.
func Classify(now, startTime, endTime int64) Phase {
	switch {
	case now < startTime:
		return Upcoming
	case now < endTime:
		return Ongoing
	default:
		return Ended
	}
}

// Of classifies poll at t.
func Of(poll models.Poll, t time.Time) Phase {
	return Classify(t.Unix(), poll.StartTime, poll.EndTime)
}

// Groups holds polls partitioned by phase, each in input order.
type Groups struct {
	Ongoing  []models.Poll
	Upcoming []models.Poll
	Ended    []models.Poll
}

// Group partitions polls by their phase at now.
func Group(polls []models.Poll, now time.Time) Groups {
	var g Groups
	for _, p := range polls {
		switch Of(p, now) {
		case Ongoing:
			g.Ongoing = append(g.Ongoing, p)
		case Upcoming:
			g.Upcoming = append(g.Upcoming, p)
		default:
			g.Ended = append(g.Ended, p)
		}
	}
	return g
}
