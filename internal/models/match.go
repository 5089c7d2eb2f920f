package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Side identifies a competitor's corner color.
type Side string

const (
	SideRed  Side = "RED"
	SideBlue Side = "BLUE"
)

// Kind identifies which counter a ledger operation targets.
type Kind string

const (
	KindScore   Kind = "SCORE"
	KindPenalty Kind = "PENALTY"
)

// Competitor is one athlete in a match. AthleteID 0 means the athlete
// has no backend record and runs without remote tracking.
type Competitor struct {
	AthleteID   int64  `json:"athlete_id" yaml:"athlete_id"`
	Name        string `json:"name" yaml:"name"`
	Nationality string `json:"nationality" yaml:"nationality"`
	Side        Side   `json:"side" yaml:"side"`
}

// Tracked reports whether the competitor has a backend identity.
func (c Competitor) Tracked() bool {
	return c.AthleteID > 0
}

// MatchConfig is everything a session needs to run one bout.
// MatchID 0 means the match has no backend record; the session then
// runs in pull-only degraded mode with no push channel.
type MatchConfig struct {
	MatchID       int64         `json:"match_id" yaml:"match_id"`
	Category      string        `json:"category,omitempty" yaml:"category"`
	Area          string        `json:"area,omitempty" yaml:"area"`
	Red           Competitor    `json:"red" yaml:"red"`
	Blue          Competitor    `json:"blue" yaml:"blue"`
	RoundDuration time.Duration `json:"round_duration" yaml:"-"`
	RestDuration  time.Duration `json:"rest_duration" yaml:"-"`
	TotalRounds   int           `json:"total_rounds" yaml:"total_rounds"`
}

// Validate checks the timing configuration.
func (m MatchConfig) Validate() error {
	if m.RoundDuration <= 0 {
		return fmt.Errorf("round duration must be positive, got %s", m.RoundDuration)
	}
	if m.RestDuration < 0 {
		return fmt.Errorf("rest duration must not be negative, got %s", m.RestDuration)
	}
	if m.TotalRounds < 1 {
		return fmt.Errorf("total rounds must be at least 1, got %d", m.TotalRounds)
	}
	return nil
}

// Competitor returns the competitor fighting on the given side.
func (m MatchConfig) Competitor(side Side) Competitor {
	if side == SideRed {
		return m.Red
	}
	return m.Blue
}

// ParseClockDuration parses the "HH:MM:SS" clock strings match records
// store round and rest durations as (e.g. "00:03:00" is three minutes).
func ParseClockDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock duration %q: want HH:MM:SS", s)
	}
	var secs [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock duration %q: bad segment %q", s, p)
		}
		secs[i] = n
	}
	if secs[1] > 59 || secs[2] > 59 {
		return 0, fmt.Errorf("invalid clock duration %q: minutes and seconds must be < 60", s)
	}
	total := secs[0]*3600 + secs[1]*60 + secs[2]
	return time.Duration(total) * time.Second, nil
}
