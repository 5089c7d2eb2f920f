package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"00:03:00", 3 * time.Minute},
		{"00:01:30", 90 * time.Second},
		{"01:00:00", time.Hour},
		{"00:00:05", 5 * time.Second},
		{" 00:02:00 ", 2 * time.Minute},
	}
	for _, tc := range cases {
		got, err := ParseClockDuration(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseClockDurationRejectsBadInput(t *testing.T) {
	for _, in := range []string{
		"",
		"03:00",
		"00:03:00:00",
		"00:61:00",
		"00:00:99",
		"aa:bb:cc",
		"00:-1:00",
	} {
		_, err := ParseClockDuration(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestMatchConfigValidate(t *testing.T) {
	valid := MatchConfig{
		RoundDuration: 3 * time.Minute,
		RestDuration:  time.Minute,
		TotalRounds:   3,
	}
	assert.NoError(t, valid.Validate())

	noRound := valid
	noRound.RoundDuration = 0
	assert.Error(t, noRound.Validate())

	negativeRest := valid
	negativeRest.RestDuration = -time.Second
	assert.Error(t, negativeRest.Validate())

	// Zero rest is allowed: rounds run back to back.
	zeroRest := valid
	zeroRest.RestDuration = 0
	assert.NoError(t, zeroRest.Validate())

	noRounds := valid
	noRounds.TotalRounds = 0
	assert.Error(t, noRounds.Validate())
}

func TestCompetitorTracked(t *testing.T) {
	assert.False(t, Competitor{}.Tracked())
	assert.True(t, Competitor{AthleteID: 11}.Tracked())
}

func TestMatchConfigCompetitor(t *testing.T) {
	cfg := MatchConfig{
		Red:  Competitor{AthleteID: 11, Side: SideRed},
		Blue: Competitor{AthleteID: 22, Side: SideBlue},
	}
	assert.Equal(t, int64(11), cfg.Competitor(SideRed).AthleteID)
	assert.Equal(t, int64(22), cfg.Competitor(SideBlue).AthleteID)
}
