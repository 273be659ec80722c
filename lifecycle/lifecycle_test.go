// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/danielhkuo/pollchain/models"
)

func TestClassifyBoundaries(t *testing.T) {
	assert := assert.New(t)

	const start, end = int64(1000), int64(2000)

	assert.Equal(Upcoming, Classify(start-1, start, end))
	assert.Equal(Ongoing, Classify(start, start, end))
	assert.Equal(Ongoing, Classify(end-1, start, end))
	assert.Equal(Ended, Classify(end, start, end))
	assert.Equal(Ended, Classify(end+1, start, end))
}

func TestClassifyExactlyOnePhase(t *testing.T) {
	windows := [][2]int64{{0, 1}, {-50, 50}, {1700000000, 1700003600}}
	for _, w := range windows {
		for now := w[0] - 3; now <= w[1]+3; now++ {
			p := Classify(now, w[0], w[1])
			switch {
			case now < w[0]:
				assert.Equal(t, Upcoming, p, "now=%d", now)
			case now < w[1]:
				assert.Equal(t, Ongoing, p, "now=%d", now)
			default:
				assert.Equal(t, Ended, p, "now=%d", now)
			}
		}
	}
}

func TestOf(t *testing.T) {
	now := time.Unix(1700000000, 0)

	ongoing := models.Poll{StartTime: now.Unix() - 3600, EndTime: now.Unix() + 3600}
	ended := models.Poll{StartTime: now.Unix() - 3600, EndTime: now.Unix() - 1}

	assert.Equal(t, Ongoing, Of(ongoing, now))
	assert.Equal(t, Ended, Of(ended, now))
}

func TestGroup(t *testing.T) {
	now := time.Unix(1700000000, 0)
	n := now.Unix()

	polls := []models.Poll{
		{ID: "0", StartTime: n - 3600, EndTime: n + 86400},
		{ID: "1", StartTime: n + 7200, EndTime: n + 172800},
		{ID: "2", StartTime: n - 7200, EndTime: n},
		{ID: "3", StartTime: n - 1800, EndTime: n + 43200},
	}

	g := Group(polls, now)

	ids := func(ps []models.Poll) []string {
		out := []string{}
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []string{"0", "3"}, ids(g.Ongoing))
	assert.Equal(t, []string{"1"}, ids(g.Upcoming))
	assert.Equal(t, []string{"2"}, ids(g.Ended))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "upcoming", Upcoming.String())
	assert.Equal(t, "ongoing", Ongoing.String())
	assert.Equal(t, "ended", Ended.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
