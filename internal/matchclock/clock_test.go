package matchclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClock(t *testing.T) *Clock {
	t.Helper()
	return New(5*time.Second, 2*time.Second, 2)
}

func tickN(c *Clock, n int) []Event {
	var events []Event
	for i := 0; i < n; i++ {
		events = append(events, c.Tick()...)
	}
	return events
}

func TestFullMatchWalkthrough(t *testing.T) {
	c := newTestClock(t)

	require.Equal(t, StateIdle, c.State())
	require.Equal(t, 1, c.Round())
	require.Equal(t, 5, c.Remaining())

	require.NoError(t, c.Start())
	require.Equal(t, StateRoundRunning, c.State())

	// Round 1 runs out after 5 ticks and rest begins.
	events := tickN(c, 4)
	require.Empty(t, events)
	require.Equal(t, 1, c.Remaining())

	events = c.Tick()
	require.Len(t, events, 1)
	assert.Equal(t, EventRestStarted, events[0].Type)
	assert.Equal(t, 1, events[0].Round)
	assert.Equal(t, StateRestRunning, c.State())
	assert.Equal(t, 2, c.Remaining())

	// Rest runs out after 2 ticks and round 2 starts automatically.
	events = tickN(c, 2)
	require.Len(t, events, 1)
	assert.Equal(t, EventRoundStarted, events[0].Type)
	assert.Equal(t, 2, events[0].Round)
	assert.Equal(t, StateRoundRunning, c.State())
	assert.Equal(t, 2, c.Round())
	assert.Equal(t, 5, c.Remaining())

	// The last round ends the match, no rest afterwards.
	events = tickN(c, 5)
	require.Len(t, events, 1)
	assert.Equal(t, EventMatchFinished, events[0].Type)
	assert.Equal(t, StateFinished, c.State())

	// Ticking a finished clock does nothing.
	assert.Empty(t, tickN(c, 3))
	assert.Equal(t, StateFinished, c.State())
}

func TestPauseSuppressesTicks(t *testing.T) {
	c := newTestClock(t)
	require.NoError(t, c.Start())
	require.Empty(t, c.Tick())
	require.Equal(t, 4, c.Remaining())

	require.NoError(t, c.Pause())
	assert.Empty(t, tickN(c, 10))
	assert.Equal(t, 4, c.Remaining())

	require.NoError(t, c.Resume())
	require.Empty(t, c.Tick())
	assert.Equal(t, 3, c.Remaining())
}

func TestTransitionGuards(t *testing.T) {
	c := newTestClock(t)

	assert.ErrorIs(t, c.Pause(), ErrBadTransition)
	assert.ErrorIs(t, c.Resume(), ErrBadTransition)

	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.Start(), ErrBadTransition)
	assert.ErrorIs(t, c.Resume(), ErrBadTransition)

	require.NoError(t, c.Pause())
	assert.ErrorIs(t, c.Pause(), ErrBadTransition)
}

func TestAdvanceRound(t *testing.T) {
	c := newTestClock(t)
	require.NoError(t, c.Start())
	tickN(c, 2)

	events, err := c.AdvanceRound()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventRoundStarted, events[0].Type)
	assert.Equal(t, 2, events[0].Round)

	// The skipped-to round waits for the operator.
	assert.Equal(t, StateRoundPaused, c.State())
	assert.Equal(t, 2, c.Round())
	assert.Equal(t, 5, c.Remaining())

	// Already in the last round.
	_, err = c.AdvanceRound()
	assert.ErrorIs(t, err, ErrLastRound)
}

func TestAdvanceRoundAfterFinish(t *testing.T) {
	c := newTestClock(t)
	c.EndMatch()

	_, err := c.AdvanceRound()
	assert.ErrorIs(t, err, ErrFinished)
}

func TestEndMatchIdempotent(t *testing.T) {
	c := newTestClock(t)
	require.NoError(t, c.Start())

	events := c.EndMatch()
	require.Len(t, events, 1)
	assert.Equal(t, EventMatchFinished, events[0].Type)
	assert.Equal(t, StateFinished, c.State())

	assert.Empty(t, c.EndMatch())
}

func TestFormatRemaining(t *testing.T) {
	c := New(3*time.Minute, time.Minute, 3)
	assert.Equal(t, "03:00", c.FormatRemaining())

	require.NoError(t, c.Start())
	c.Tick()
	assert.Equal(t, "02:59", c.FormatRemaining())

	tickN(c, 119)
	assert.Equal(t, "01:00", c.FormatRemaining())
}
