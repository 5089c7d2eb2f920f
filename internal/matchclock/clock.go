// Package matchclock implements the round/rest/match countdown as a pure
// state machine. It holds no timer of its own: the session coordinator
// calls Tick once per elapsed second and reacts to the emitted events.
package matchclock

import (
	"errors"
	"fmt"
	"time"
)

// State enumerates the clock lifecycle.
type State string

const (
	StateIdle         State = "IDLE"
	StateRoundRunning State = "ROUND_RUNNING"
	StateRoundPaused  State = "ROUND_PAUSED"
	StateRestRunning  State = "REST_RUNNING"
	StateFinished     State = "FINISHED"
)

// EventType identifies a lifecycle boundary the coordinator must act on.
type EventType string

const (
	// EventRoundStarted fires when a new round begins, after rest or a
	// manual advance. Round carries the new round number.
	EventRoundStarted EventType = "ROUND_STARTED"
	// EventRestStarted fires when a round's countdown empties and a rest
	// period begins. Round carries the round that just ended.
	EventRestStarted EventType = "REST_STARTED"
	// EventMatchFinished fires exactly once, when the clock goes terminal.
	EventMatchFinished EventType = "MATCH_FINISHED"
)

// Event is a lifecycle boundary emitted by Tick, AdvanceRound or EndMatch.
type Event struct {
	Type  EventType
	Round int
}

var (
	// ErrLastRound rejects a manual advance past the configured rounds.
	ErrLastRound = errors.New("already in the last round")
	// ErrFinished rejects transitions out of the terminal state.
	ErrFinished = errors.New("match already finished")
	// ErrBadTransition rejects start/pause/resume from the wrong state.
	ErrBadTransition = errors.New("invalid clock transition")
)

// Clock is the countdown state machine for one match. Not safe for
// concurrent use; owned by the coordinator goroutine.
type Clock struct {
	state       State
	round       int
	remaining   int
	roundSecs   int
	restSecs    int
	totalRounds int
}

// New builds an idle clock in round 1 with the full round on it.
func New(roundDuration, restDuration time.Duration, totalRounds int) *Clock {
	return &Clock{
		state:       StateIdle,
		round:       1,
		remaining:   int(roundDuration / time.Second),
		roundSecs:   int(roundDuration / time.Second),
		restSecs:    int(restDuration / time.Second),
		totalRounds: totalRounds,
	}
}

// Start moves an idle clock into the first running round.
func (c *Clock) Start() error {
	if c.state != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrBadTransition, c.state)
	}
	c.state = StateRoundRunning
	return nil
}

// Pause suspends a running round; ticks are ignored until Resume.
func (c *Clock) Pause() error {
	if c.state != StateRoundRunning {
		return fmt.Errorf("%w: pause from %s", ErrBadTransition, c.state)
	}
	c.state = StateRoundPaused
	return nil
}

// Resume continues a paused round.
func (c *Clock) Resume() error {
	if c.state != StateRoundPaused {
		return fmt.Errorf("%w: resume from %s", ErrBadTransition, c.state)
	}
	c.state = StateRoundRunning
	return nil
}

// Tick advances the countdown by one second. It is a no-op unless a
// round or rest is running. The countdown never goes below zero: the
// moment it would, the clock transitions and the boundary events are
// returned.
func (c *Clock) Tick() []Event {
	switch c.state {
	case StateRoundRunning, StateRestRunning:
	default:
		return nil
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining > 0 {
		return nil
	}

	if c.state == StateRestRunning {
		c.state = StateRoundRunning
		c.round++
		c.remaining = c.roundSecs
		return []Event{{Type: EventRoundStarted, Round: c.round}}
	}
	if c.round >= c.totalRounds {
		c.state = StateFinished
		return []Event{{Type: EventMatchFinished, Round: c.round}}
	}
	c.state = StateRestRunning
	c.remaining = c.restSecs
	return []Event{{Type: EventRestStarted, Round: c.round}}
}

// AdvanceRound skips ahead to the next round. The new round starts
// paused so the operator decides when it runs. Rejected once the clock
// is finished or already in the last round.
func (c *Clock) AdvanceRound() ([]Event, error) {
	if c.state == StateFinished {
		return nil, ErrFinished
	}
	if c.round >= c.totalRounds {
		return nil, ErrLastRound
	}
	c.round++
	c.remaining = c.roundSecs
	c.state = StateRoundPaused
	return []Event{{Type: EventRoundStarted, Round: c.round}}, nil
}

// EndMatch forces the terminal state from anywhere. Calling it on a
// finished clock is a no-op with no events.
func (c *Clock) EndMatch() []Event {
	if c.state == StateFinished {
		return nil
	}
	c.state = StateFinished
	return []Event{{Type: EventMatchFinished, Round: c.round}}
}

// State returns the current lifecycle state.
func (c *Clock) State() State {
	return c.state
}

// Round returns the current round number, starting at 1.
func (c *Clock) Round() int {
	return c.round
}

// Remaining returns the seconds left in the current round or rest.
func (c *Clock) Remaining() int {
	return c.remaining
}

// FormatRemaining renders the countdown as zero-padded MM:SS.
func (c *Clock) FormatRemaining() string {
	return fmt.Sprintf("%02d:%02d", c.remaining/60, c.remaining%60)
}
