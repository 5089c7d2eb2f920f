// Package session orchestrates one live match: the score ledgers, the
// match clock, the push-channel subscription and the pull/flush calls.
//
// Concurrency model: a single coordinator goroutine owns every piece of
// mutable state. Operator calls are marshalled onto that goroutine as
// commands, network calls run on short-lived workers that hand their
// results back over a bounded inbox, and the clock ticks arrive from a
// 1 Hz ticker. Nothing in the loop blocks on I/O.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ringsidehq/ringside/clients"
	"github.com/ringsidehq/ringside/internal/feed"
	"github.com/ringsidehq/ringside/internal/ledger"
	"github.com/ringsidehq/ringside/internal/matchclock"
	"github.com/ringsidehq/ringside/internal/metrics"
	"github.com/ringsidehq/ringside/internal/models"
)

// ErrSessionEnded rejects calls into a torn-down session.
var ErrSessionEnded = errors.New("session has ended")

const (
	inboxSize  = 64
	noticeSize = 16
)

var bothSides = []models.Side{models.SideRed, models.SideBlue}

// Deps are the shared collaborators a session borrows. They outlive the
// session and may serve several of them over time.
type Deps struct {
	// Scores is the request/response backend client. Required.
	Scores *clients.ScoreClient
	// Feed is the push-channel client. Nil disables the push channel and
	// the session runs in pull-only mode.
	Feed *feed.Client
	// Clock defaults to the real clock; tests inject a fake.
	Clock clockwork.Clock
}

type resultKind int

const (
	pullDone resultKind = iota
	flushDone
)

// result is one worker outcome handed back to the coordinator loop.
type result struct {
	kind    resultKind
	side    models.Side
	counter models.Kind
	count   int
	delta   int
	err     error
}

// Coordinator runs one match session. Exactly one is active per
// viewing station.
type Coordinator struct {
	cfg        models.MatchConfig
	scores     *clients.ScoreClient
	clock      clockwork.Clock
	instanceID string

	ledgers map[models.Side]map[models.Kind]*ledger.Ledger
	mclock  *matchclock.Clock
	sub     *feed.Subscription

	cmds     chan func()
	inbox    chan result
	notices  chan Notice
	done     chan struct{}
	stopOnce sync.Once

	mu   sync.RWMutex
	snap State
}

// Start builds the session state, fires the initial authoritative pulls,
// opens the push channel when a match id is available and starts the
// coordinator loop.
func Start(cfg models.MatchConfig, deps Deps) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if deps.Scores == nil {
		return nil, errors.New("session: score client is required")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	c := &Coordinator{
		cfg:        cfg,
		scores:     deps.Scores,
		clock:      clk,
		instanceID: uuid.New().String()[:8],
		ledgers: map[models.Side]map[models.Kind]*ledger.Ledger{
			models.SideRed: {
				models.KindScore:   ledger.NewScore(),
				models.KindPenalty: ledger.NewPenalty(),
			},
			models.SideBlue: {
				models.KindScore:   ledger.NewScore(),
				models.KindPenalty: ledger.NewPenalty(),
			},
		},
		mclock:  matchclock.New(cfg.RoundDuration, cfg.RestDuration, cfg.TotalRounds),
		cmds:    make(chan func()),
		inbox:   make(chan result, inboxSize),
		notices: make(chan Notice, noticeSize),
		done:    make(chan struct{}),
	}
	c.updateSnapshot()

	for _, side := range bothSides {
		comp := cfg.Competitor(side)
		if !comp.Tracked() {
			log.Info().
				Str("side", string(side)).
				Str("instance", c.instanceID).
				Msg("competitor has no athlete id, running without authoritative sync")
			continue
		}
		c.pullScore(side)
		if cfg.MatchID > 0 {
			c.pullPenalty(side)
		}
	}

	if cfg.MatchID > 0 && deps.Feed != nil {
		c.sub = deps.Feed.Subscribe(cfg.MatchID)
	} else {
		log.Info().
			Int64("match_id", cfg.MatchID).
			Str("instance", c.instanceID).
			Msg("push channel unavailable, session runs in pull-only mode")
	}

	go c.loop()
	log.Info().
		Str("instance", c.instanceID).
		Int64("match_id", cfg.MatchID).
		Int("total_rounds", cfg.TotalRounds).
		Msg("session started")
	return c, nil
}

func (c *Coordinator) loop() {
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	var feedEvents <-chan feed.Event
	if c.sub != nil {
		feedEvents = c.sub.Events()
	}

	for {
		select {
		case <-c.done:
			return
		case fn := <-c.cmds:
			fn()
		case <-ticker.Chan():
			c.handleClockEvents(c.mclock.Tick())
			c.updateSnapshot()
		case r := <-c.inbox:
			c.handleResult(r)
			c.updateSnapshot()
		case ev := <-feedEvents:
			c.handleFeedEvent(ev)
			c.updateSnapshot()
		}
	}
}

// do runs fn on the coordinator goroutine and waits for it.
func (c *Coordinator) do(fn func()) error {
	reply := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(reply) }:
	case <-c.done:
		return ErrSessionEnded
	}
	select {
	case <-reply:
		return nil
	case <-c.done:
		select {
		case <-reply:
			return nil
		default:
			return ErrSessionEnded
		}
	}
}

// ApplyDelta applies an operator adjustment and returns the new
// displayed total for that counter. No I/O happens on this path: the
// operator sees the press immediately, reconciliation with the backend
// is asynchronous.
func (c *Coordinator) ApplyDelta(side models.Side, kind models.Kind, delta int) (int, error) {
	var total int
	var opErr error
	err := c.do(func() {
		kinds, ok := c.ledgers[side]
		if !ok {
			opErr = fmt.Errorf("unknown side %q", side)
			return
		}
		l, ok := kinds[kind]
		if !ok {
			opErr = fmt.Errorf("unknown counter kind %q", kind)
			return
		}
		total = l.ApplyLocalDelta(delta)
		c.updateSnapshot()
	})
	if err != nil {
		return 0, err
	}
	return total, opErr
}

// StartClock starts the first round.
func (c *Coordinator) StartClock() error {
	return c.clockOp(func() error { return c.mclock.Start() })
}

// PauseClock suspends the running round.
func (c *Coordinator) PauseClock() error {
	return c.clockOp(func() error { return c.mclock.Pause() })
}

// ResumeClock continues a paused round.
func (c *Coordinator) ResumeClock() error {
	return c.clockOp(func() error { return c.mclock.Resume() })
}

func (c *Coordinator) clockOp(op func() error) error {
	var opErr error
	err := c.do(func() {
		opErr = op()
		c.updateSnapshot()
	})
	if err != nil {
		return err
	}
	return opErr
}

// AdvanceRound skips to the next round, flushing both competitors at
// the boundary. In the last round it is a no-op and the operator gets a
// notice.
func (c *Coordinator) AdvanceRound() error {
	var opErr error
	err := c.do(func() {
		events, e := c.mclock.AdvanceRound()
		if e != nil {
			opErr = e
			if errors.Is(e, matchclock.ErrLastRound) {
				c.notify(fmt.Sprintf("Already in round %d of %d; cannot advance further.", c.mclock.Round(), c.cfg.TotalRounds))
			}
		} else {
			c.handleClockEvents(events)
		}
		c.updateSnapshot()
	})
	if err != nil {
		return err
	}
	return opErr
}

// EndMatch forces the match into its terminal state, flushing both
// competitors on the way.
func (c *Coordinator) EndMatch() error {
	return c.do(func() {
		c.handleClockEvents(c.mclock.EndMatch())
		c.updateSnapshot()
	})
}

// EndSession tears the session down: push channel closed, ticking
// stopped, pending callbacks suppressed. Unflushed deltas are discarded;
// flushes are expected to have happened at the preceding boundary.
func (c *Coordinator) EndSession() {
	c.stopOnce.Do(func() {
		reply := make(chan struct{})
		select {
		case c.cmds <- func() {
			c.teardown()
			close(reply)
		}:
			<-reply
		case <-c.done:
		}
	})
}

func (c *Coordinator) teardown() {
	for _, side := range bothSides {
		for kind, l := range c.ledgers[side] {
			if l.Pending() > 0 {
				log.Warn().
					Str("side", string(side)).
					Str("counter", string(kind)).
					Int("pending", l.Pending()).
					Str("instance", c.instanceID).
					Msg("discarding unflushed pending delta at session teardown")
			}
		}
	}
	if c.sub != nil {
		c.sub.Disconnect()
	}
	close(c.done)
	log.Info().Str("instance", c.instanceID).Int64("match_id", c.cfg.MatchID).Msg("session ended")
}

// DisplayedState returns the merged per-side view. Pure read, always
// available, also after teardown.
func (c *Coordinator) DisplayedState() map[models.Side]SideState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Sides
}

// ClockState returns the clock view of the latest snapshot.
func (c *Coordinator) ClockState() ClockSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Clock
}

// Notices delivers operator-visible failure messages. The channel is
// bounded; unread notices beyond the buffer are dropped with a log line.
func (c *Coordinator) Notices() <-chan Notice {
	return c.notices
}

// Done is closed when the session has been torn down.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// handleClockEvents reacts to lifecycle boundaries: every transition
// into rest, into a new round and into finished flushes both
// competitors. A flush failure never blocks the clock.
func (c *Coordinator) handleClockEvents(events []matchclock.Event) {
	for _, ev := range events {
		log.Info().
			Str("event", string(ev.Type)).
			Int("round", ev.Round).
			Str("instance", c.instanceID).
			Msg("clock boundary")
		c.flushAll()
	}
}

func (c *Coordinator) flushAll() {
	for _, side := range bothSides {
		c.flushSide(side)
	}
}

// flushSide sends one competitor's pending score delta to the backend.
// Nothing pending means trivial success with no network call.
func (c *Coordinator) flushSide(side models.Side) {
	l := c.ledgers[side][models.KindScore]
	if !l.Dirty() {
		metrics.Flushes.WithLabelValues("empty").Inc()
		return
	}
	comp := c.cfg.Competitor(side)
	if !comp.Tracked() || c.cfg.MatchID <= 0 {
		// Degraded mode: the points have no backend destination and
		// stay on the board locally.
		log.Debug().
			Str("side", string(side)).
			Int("pending", l.Pending()).
			Str("instance", c.instanceID).
			Msg("pending points have no backend destination, keeping them local")
		return
	}
	delta, ok := l.BeginFlush()
	if !ok {
		return
	}
	log.Info().
		Str("side", string(side)).
		Int("delta", delta).
		Str("instance", c.instanceID).
		Msg("flushing pending points")
	go func() {
		err := c.scores.PushPending(context.Background(), c.cfg.MatchID, comp.AthleteID, delta)
		c.post(result{kind: flushDone, side: side, delta: delta, err: err})
	}()
}

func (c *Coordinator) pullScore(side models.Side) {
	comp := c.cfg.Competitor(side)
	go func() {
		count, err := c.scores.PullScoreCount(context.Background(), comp.AthleteID)
		c.post(result{kind: pullDone, side: side, counter: models.KindScore, count: count, err: err})
	}()
}

func (c *Coordinator) pullPenalty(side models.Side) {
	comp := c.cfg.Competitor(side)
	go func() {
		count, err := c.scores.PullPenaltyCount(context.Background(), comp.AthleteID, c.cfg.MatchID)
		c.post(result{kind: pullDone, side: side, counter: models.KindPenalty, count: count, err: err})
	}()
}

// post hands a worker result to the loop. Results arriving after
// teardown are dropped so a dead session is never mutated.
func (c *Coordinator) post(r result) {
	select {
	case c.inbox <- r:
	case <-c.done:
	}
}

func (c *Coordinator) handleResult(r result) {
	switch r.kind {
	case pullDone:
		if r.err != nil {
			// Opportunistic: the next boundary or push will catch us up.
			log.Warn().
				Err(r.err).
				Str("side", string(r.side)).
				Str("counter", string(r.counter)).
				Str("instance", c.instanceID).
				Msg("authoritative pull failed, keeping last known count")
			return
		}
		c.ledgers[r.side][r.counter].ApplyAuthoritative(r.count)
	case flushDone:
		l := c.ledgers[r.side][models.KindScore]
		if r.err != nil {
			l.FailFlush()
			metrics.Flushes.WithLabelValues("failed").Inc()
			log.Error().
				Err(r.err).
				Str("side", string(r.side)).
				Int("delta", r.delta).
				Str("instance", c.instanceID).
				Msg("flush failed, pending points kept for retry")
			c.notify(fmt.Sprintf("Could not save %d pending point(s) for %s; they stay on the board and will be retried at the next round boundary.", r.delta, r.side))
			return
		}
		l.ConfirmFlush(r.delta)
		metrics.Flushes.WithLabelValues("confirmed").Inc()
		log.Info().
			Str("side", string(r.side)).
			Int("delta", r.delta).
			Str("instance", c.instanceID).
			Msg("flush confirmed")
		// The backend absorbed the delta; refresh the authoritative
		// count so the board converges without waiting for a push.
		c.pullScore(r.side)
	}
}

func (c *Coordinator) handleFeedEvent(ev feed.Event) {
	switch ev.Type {
	case feed.EventConnected:
		log.Info().
			Int64("match_id", c.cfg.MatchID).
			Str("instance", c.instanceID).
			Msg("push channel acknowledged, pulling initial counts")
		for _, side := range bothSides {
			if c.cfg.Competitor(side).Tracked() {
				c.pullScore(side)
			}
		}
	case feed.EventScoreUpdate:
		side, ok := c.sideOf(ev.AthleteID)
		if !ok {
			// Not part of this session; not an error.
			log.Debug().
				Int64("athlete_id", ev.AthleteID).
				Str("instance", c.instanceID).
				Msg("score update for unknown athlete, ignoring")
			return
		}
		c.ledgers[side][models.KindScore].ApplyAuthoritative(ev.Count)
		log.Debug().
			Str("side", string(side)).
			Int("count", ev.Count).
			Str("instance", c.instanceID).
			Msg("authoritative score pushed")
	}
}

func (c *Coordinator) sideOf(athleteID int64) (models.Side, bool) {
	if athleteID <= 0 {
		return "", false
	}
	for _, side := range bothSides {
		if c.cfg.Competitor(side).AthleteID == athleteID {
			return side, true
		}
	}
	return "", false
}

func (c *Coordinator) notify(text string) {
	select {
	case c.notices <- Notice{Text: text}:
	default:
		log.Warn().Str("notice", text).Str("instance", c.instanceID).Msg("notice buffer full, dropping notice")
	}
}

// updateSnapshot republishes the read-only view. Only the coordinator
// goroutine (or Start, before the loop exists) calls this.
func (c *Coordinator) updateSnapshot() {
	st := State{Sides: make(map[models.Side]SideState, len(bothSides))}
	for _, side := range bothSides {
		score := c.ledgers[side][models.KindScore]
		penalty := c.ledgers[side][models.KindPenalty]
		st.Sides[side] = SideState{
			Total:          score.Displayed(),
			Penalties:      penalty.Displayed(),
			PendingScore:   score.Pending(),
			PendingPenalty: penalty.Pending(),
		}
	}
	st.Clock = ClockSnapshot{
		Status:           c.mclock.State(),
		Round:            c.mclock.Round(),
		RemainingSeconds: c.mclock.Remaining(),
		Display:          c.mclock.FormatRemaining(),
	}
	c.mu.Lock()
	c.snap = st
	c.mu.Unlock()
}
