package session

import (
	"github.com/ringsidehq/ringside/internal/matchclock"
	"github.com/ringsidehq/ringside/internal/models"
)

// SideState is the merged view of one competitor's counters.
type SideState struct {
	// Total is authoritative score + pending score.
	Total int
	// Penalties is authoritative penalties + pending penalties.
	Penalties int
	// PendingScore is the operator-entered score delta not yet flushed.
	PendingScore int
	// PendingPenalty is the operator-entered penalty delta. The backend
	// has no penalty flush endpoint, so this stays local for the whole
	// session.
	PendingPenalty int
}

// ClockSnapshot is the presentation view of the match clock.
type ClockSnapshot struct {
	Status           matchclock.State
	Round            int
	RemainingSeconds int
	// Display is the countdown as zero-padded MM:SS.
	Display string
}

// State is one coherent snapshot of a session, safe to read from any
// goroutine.
type State struct {
	Sides map[models.Side]SideState
	Clock ClockSnapshot
}

// Notice is a human-readable, operator-visible message about a failed
// operator-triggered action. Background failures never become notices;
// they are only logged.
type Notice struct {
	Text string
}
