// Package ledger keeps the per-competitor score state: the last count
// confirmed by the scoring backend plus the operator's unconfirmed
// adjustments. The merge rule is fixed: displayed = authoritative + pending.
package ledger

// PenaltyBound caps how many penalties a competitor can collect.
const PenaltyBound = 10

// Ledger is one counter (score or penalty) for one competitor.
//
// A Ledger is not safe for concurrent use; the session coordinator owns
// it and serializes every mutation on its own goroutine.
type Ledger struct {
	authoritative int
	pending       int
	inFlight      int
	bound         int // 0 means unbounded
}

// NewScore returns an unbounded score ledger.
func NewScore() *Ledger {
	return &Ledger{}
}

// NewPenalty returns a penalty ledger capped at PenaltyBound.
func NewPenalty() *Ledger {
	return &Ledger{bound: PenaltyBound}
}

// ApplyLocalDelta applies an operator adjustment to the pending count.
// Pending is floored at zero and, for bounded ledgers, the displayed
// total never exceeds the bound. Returns the new displayed total.
func (l *Ledger) ApplyLocalDelta(delta int) int {
	next := l.pending + delta
	if next < 0 {
		next = 0
	}
	if l.bound > 0 && l.authoritative+next > l.bound {
		next = l.pending
	}
	l.pending = next
	return l.Displayed()
}

// ApplyAuthoritative overwrites the backend count. Last writer wins;
// pending is untouched.
func (l *Ledger) ApplyAuthoritative(count int) {
	if count < 0 {
		count = 0
	}
	l.authoritative = count
}

// Displayed returns authoritative + pending.
func (l *Ledger) Displayed() int {
	return l.authoritative + l.pending
}

// Pending returns the unconfirmed operator delta.
func (l *Ledger) Pending() int {
	return l.pending
}

// Authoritative returns the last backend count.
func (l *Ledger) Authoritative() int {
	return l.authoritative
}

// Dirty reports whether there is anything to flush.
func (l *Ledger) Dirty() bool {
	return l.pending > 0
}

// BeginFlush snapshots the amount a flush should send. It returns
// (0, false) when there is nothing to flush or another flush for this
// ledger is still in flight, so trivial flushes never hit the network
// and overlapping boundaries cannot double-send the same points.
func (l *Ledger) BeginFlush() (delta int, ok bool) {
	if l.pending == 0 || l.inFlight > 0 {
		return 0, false
	}
	l.inFlight = l.pending
	return l.pending, true
}

// ConfirmFlush settles a successful flush. Only the amount that was
// actually sent is subtracted, so points the operator entered while the
// flush was in flight survive for the next boundary.
func (l *Ledger) ConfirmFlush(delta int) {
	l.pending -= delta
	if l.pending < 0 {
		l.pending = 0
	}
	l.inFlight = 0
}

// FailFlush abandons an in-flight flush, leaving pending intact for a
// later retry.
func (l *Ledger) FailFlush() {
	l.inFlight = 0
}
