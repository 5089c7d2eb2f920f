package simbackend

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ringsidehq/ringside/internal/metrics"
)

// HubConfig holds the websocket connection settings.
type HubConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultHubConfig returns settings suitable for a local sim backend.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     90 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Local tool, every origin is welcome.
			return true
		},
	}
}

// Hub fans score_update frames out to the boards subscribed to each
// match.
type Hub struct {
	boards map[int64]map[*boardConn]bool
	mu     sync.RWMutex

	upgrader websocket.Upgrader
	config   HubConfig
}

// boardConn is one subscribed viewing board.
type boardConn struct {
	id      string
	matchID int64
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
}

// NewHub creates an empty hub.
func NewHub(config HubConfig) *Hub {
	return &Hub{
		boards: make(map[int64]map[*boardConn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// connectedFrame is the acknowledgement sent once per subscription.
type connectedFrame struct {
	Status  string `json:"status"`
	MatchID int64  `json:"matchId"`
}

// scoreUpdateFrame is the push notification for an authoritative change.
type scoreUpdateFrame struct {
	Event     string `json:"event"`
	AthleteID int64  `json:"athleteId"`
	Count     int    `json:"count"`
}

// Serve upgrades the request and subscribes the board to matchID. The
// "connected" acknowledgement is queued before the pumps start so it is
// always the first frame the board sees.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, matchID int64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return err
	}

	board := &boardConn{
		id:      uuid.New().String()[:8],
		matchID: matchID,
		conn:    conn,
		send:    make(chan []byte, 64),
		hub:     h,
	}

	ack, _ := json.Marshal(connectedFrame{Status: "connected", MatchID: matchID})
	board.send <- ack

	h.register(board)
	go board.writePump()
	go board.readPump()

	log.Info().
		Str("board_id", board.id).
		Int64("match_id", matchID).
		Msg("board subscribed")
	return nil
}

func (h *Hub) register(board *boardConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.boards[board.matchID] == nil {
		h.boards[board.matchID] = make(map[*boardConn]bool)
	}
	h.boards[board.matchID][board] = true
}

func (h *Hub) unregister(board *boardConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.boards[board.matchID]
	if !ok {
		return
	}
	if _, ok := conns[board]; !ok {
		return
	}
	delete(conns, board)
	close(board.send)
	if len(conns) == 0 {
		delete(h.boards, board.matchID)
	}
	log.Info().
		Str("board_id", board.id).
		Int64("match_id", board.matchID).
		Msg("board unsubscribed")
}

// BroadcastScore pushes an authoritative score change to every board
// watching the match. Slow boards are dropped rather than allowed to
// stall the rest.
func (h *Hub) BroadcastScore(matchID, athleteID int64, count int) {
	frame, err := json.Marshal(scoreUpdateFrame{Event: "score_update", AthleteID: athleteID, Count: count})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal score update")
		return
	}

	h.mu.RLock()
	var targets []*boardConn
	for board := range h.boards[matchID] {
		targets = append(targets, board)
	}
	h.mu.RUnlock()

	for _, board := range targets {
		select {
		case board.send <- frame:
		default:
			log.Warn().
				Str("board_id", board.id).
				Msg("board send buffer full, dropping connection")
			h.unregister(board)
			board.conn.Close()
		}
	}
	metrics.HubBroadcasts.Inc()

	log.Debug().
		Int64("match_id", matchID).
		Int64("athlete_id", athleteID).
		Int("count", count).
		Int("boards", len(targets)).
		Msg("score update broadcast")
}

// ConnectionCount reports how many boards are subscribed in total.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.boards {
		total += len(conns)
	}
	return total
}

func (b *boardConn) writePump() {
	ticker := time.NewTicker(b.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		b.conn.Close()
		b.hub.unregister(b)
	}()

	for {
		select {
		case frame, ok := <-b.send:
			b.conn.SetWriteDeadline(time.Now().Add(b.hub.config.WriteTimeout))
			if !ok {
				b.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := b.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Warn().Err(err).Str("board_id", b.id).Msg("board write failed")
				return
			}
		case <-ticker.C:
			b.conn.SetWriteDeadline(time.Now().Add(b.hub.config.WriteTimeout))
			if err := b.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the board's inbound frames. The only thing a board is
// expected to send is its bare heartbeat token, which is tolerated and
// ignored.
func (b *boardConn) readPump() {
	defer func() {
		b.hub.unregister(b)
		b.conn.Close()
	}()

	b.conn.SetReadLimit(b.hub.config.MaxMessageSize)
	b.conn.SetReadDeadline(time.Now().Add(b.hub.config.ReadTimeout))
	b.conn.SetPongHandler(func(string) error {
		b.conn.SetReadDeadline(time.Now().Add(b.hub.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := b.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("board_id", b.id).Msg("unexpected board close")
			}
			return
		}
		log.Debug().
			Str("board_id", b.id).
			Str("message", string(message)).
			Msg("board heartbeat")
		b.conn.SetReadDeadline(time.Now().Add(b.hub.config.ReadTimeout))
	}
}
