// Package feed maintains the persistent push channel to the scoring
// backend: one logical subscription per match, with keepalive while
// connected and an unconditional reconnect loop after any drop. The feed
// never mutates shared state itself; everything it learns is handed to
// the session coordinator over a bounded event channel.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ringsidehq/ringside/internal/metrics"
)

// heartbeatToken is the bare client-to-server keepalive frame. The
// server tolerates and ignores it; no response is expected.
const heartbeatToken = "ping"

// Config holds the transport-independent feed settings.
type Config struct {
	// WSBaseURL is the push-channel root, e.g. "ws://localhost:8080".
	WSBaseURL string
	// KeepaliveInterval is how often the heartbeat token is sent while
	// connected.
	KeepaliveInterval time.Duration
	// ReconnectBackoff is the fixed wait before re-dialing after a drop.
	ReconnectBackoff time.Duration
	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration
	// EventBuffer sizes the channel to the coordinator.
	EventBuffer int
}

// DefaultConfig returns the intervals the scoring backend expects.
func DefaultConfig(wsBaseURL string) Config {
	return Config{
		WSBaseURL:         wsBaseURL,
		KeepaliveInterval: 30 * time.Second,
		ReconnectBackoff:  3 * time.Second,
		DialTimeout:       5 * time.Second,
		EventBuffer:       64,
	}
}

// EventType classifies what the feed learned.
type EventType string

const (
	// EventConnected means the server acknowledged the subscription.
	// The coordinator reacts with one authoritative pull per competitor
	// to bridge the gap before the first push.
	EventConnected EventType = "CONNECTED"
	// EventScoreUpdate carries an authoritative score count push.
	EventScoreUpdate EventType = "SCORE_UPDATE"
)

// Event is one feed notification for the coordinator.
type Event struct {
	Type      EventType
	MatchID   int64
	AthleteID int64
	Count     int
}

// Client is the shared, reusable feed factory: configuration plus
// transport, no per-match state.
type Client struct {
	cfg    Config
	dialer Dialer
	clock  clockwork.Clock
}

// NewClient builds a feed client. A nil dialer gets the gorilla
// transport, a nil clock the real one.
func NewClient(cfg Config, dialer Dialer, clock clockwork.Clock) *Client {
	if dialer == nil {
		dialer = GorillaDialer{HandshakeTimeout: cfg.DialTimeout}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{cfg: cfg, dialer: dialer, clock: clock}
}

// Subscribe opens one logical subscription for a match and starts its
// connection loop. The caller owns the subscription and must call
// Disconnect when the session ends.
func (c *Client) Subscribe(matchID int64) *Subscription {
	s := &Subscription{
		cfg:     c.cfg,
		dialer:  c.dialer,
		clock:   c.clock,
		matchID: matchID,
		events:  make(chan Event, c.cfg.EventBuffer),
		stop:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Subscription is one live push-channel subscription keyed by match id.
type Subscription struct {
	cfg     Config
	dialer  Dialer
	clock   clockwork.Clock
	matchID int64

	events chan Event
	stop   chan struct{}

	mu       sync.Mutex
	conn     Conn
	stopOnce sync.Once
}

// Events is the bounded channel of feed notifications. It is never
// closed; select against session teardown instead.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Disconnect tears the subscription down: the keepalive stops, a live
// connection is closed, and any pending reconnect is suppressed.
func (s *Subscription) Disconnect() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		log.Info().Int64("match_id", s.matchID).Msg("push channel disconnected")
	})
}

func (s *Subscription) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// run is the connect / read / reconnect loop. Reconnection is
// unconditional and unbounded while the subscription is alive; only
// Disconnect ends it.
func (s *Subscription) run() {
	url := fmt.Sprintf("%s/scoreboard/%d", s.cfg.WSBaseURL, s.matchID)
	for {
		if s.stopped() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DialTimeout)
		conn, err := s.dialer.Dial(ctx, url)
		cancel()
		if err != nil {
			log.Warn().Err(err).Int64("match_id", s.matchID).Msg("push channel dial failed")
			if !s.waitBackoff() {
				return
			}
			continue
		}

		s.mu.Lock()
		if s.stopped() {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()

		log.Info().Int64("match_id", s.matchID).Str("url", url).Msg("push channel connected")

		kaStop := make(chan struct{})
		go s.keepalive(conn, kaStop)
		s.readLoop(conn)
		close(kaStop)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()

		if s.stopped() {
			return
		}
		metrics.FeedReconnects.Inc()
		log.Warn().
			Int64("match_id", s.matchID).
			Dur("backoff", s.cfg.ReconnectBackoff).
			Msg("push channel dropped, reconnecting after backoff")
		if !s.waitBackoff() {
			return
		}
	}
}

// waitBackoff sleeps the fixed backoff. Returns false when the
// subscription was disconnected during the wait, which cancels the
// pending reconnect.
func (s *Subscription) waitBackoff() bool {
	timer := s.clock.NewTimer(s.cfg.ReconnectBackoff)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return true
	case <-s.stop:
		return false
	}
}

// keepalive sends the heartbeat token at the fixed interval for the
// lifetime of one connection. Send failures are logged, not treated as
// disconnect signals; the read loop's close is authoritative.
func (s *Subscription) keepalive(conn Conn, connStop <-chan struct{}) {
	ticker := s.clock.NewTicker(s.cfg.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			if err := conn.WriteMessage([]byte(heartbeatToken)); err != nil {
				log.Warn().Err(err).Int64("match_id", s.matchID).Msg("keepalive send failed")
			}
		case <-connStop:
			return
		case <-s.stop:
			return
		}
	}
}

func (s *Subscription) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if !s.stopped() {
				log.Warn().Err(err).Int64("match_id", s.matchID).Msg("push channel read failed")
			}
			return
		}
		s.dispatch(data)
	}
}

// serverFrame is the union of the two frame shapes the backend sends.
type serverFrame struct {
	Status    string `json:"status"`
	Event     string `json:"event"`
	MatchID   int64  `json:"matchId"`
	AthleteID int64  `json:"athleteId"`
	Count     int    `json:"count"`
}

// dispatch parses one inbound frame. A malformed or unknown frame is
// dropped and the channel stays open.
func (s *Subscription) dispatch(data []byte) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		metrics.FeedFrames.WithLabelValues("malformed").Inc()
		log.Warn().Err(err).Int64("match_id", s.matchID).Msg("discarding malformed push frame")
		return
	}
	switch {
	case frame.Status == "connected":
		metrics.FeedFrames.WithLabelValues("connected").Inc()
		s.emit(Event{Type: EventConnected, MatchID: frame.MatchID})
	case frame.Event == "score_update":
		metrics.FeedFrames.WithLabelValues("score_update").Inc()
		s.emit(Event{Type: EventScoreUpdate, MatchID: s.matchID, AthleteID: frame.AthleteID, Count: frame.Count})
	default:
		metrics.FeedFrames.WithLabelValues("ignored").Inc()
		log.Debug().Int64("match_id", s.matchID).RawJSON("frame", data).Msg("ignoring unknown push frame")
	}
}

func (s *Subscription) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		log.Warn().Int64("match_id", s.matchID).Str("type", string(ev.Type)).Msg("feed event buffer full, dropping event")
	}
}
