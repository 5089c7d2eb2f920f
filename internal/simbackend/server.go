package simbackend

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/ringsidehq/ringside/internal/metrics"
)

// Server ties the store and the hub to the HTTP surface the station
// speaks.
type Server struct {
	store *Store
	hub   *Hub
}

// NewServer builds a server around a fresh store and hub.
func NewServer() *Server {
	return &Server{
		store: NewStore(),
		hub:   NewHub(DefaultHubConfig()),
	}
}

// Store exposes the backing store, mainly for seeding demo data.
func (s *Server) Store() *Store {
	return s.store
}

// Hub exposes the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

type countResponse struct {
	Count int `json:"count"`
}

type idRef struct {
	ID int64 `json:"id"`
}

type scoreDetailRequest struct {
	Match   idRef `json:"match"`
	Athlete idRef `json:"athlete"`
	Value   int   `json:"value"`
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /score/athlete/{id}/count", s.handleScoreCount)
	mux.HandleFunc("GET /penalty/athlete/{id}/match/{matchId}/count", s.handlePenaltyCount)
	mux.HandleFunc("POST /score-detail/", s.handleScoreDetail)
	mux.HandleFunc("GET /scoreboard/{matchId}", s.handleScoreboard)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

func (s *Server) handleScoreCount(w http.ResponseWriter, r *http.Request) {
	athleteID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: s.store.ScoreCount(athleteID)})
}

func (s *Server) handlePenaltyCount(w http.ResponseWriter, r *http.Request) {
	athleteID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	matchID, ok := pathID(w, r, "matchId")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: s.store.PenaltyCount(athleteID, matchID)})
}

// handleScoreDetail absorbs a station's flushed pending delta and pushes
// the new authoritative count to every subscribed board.
func (s *Server) handleScoreDetail(w http.ResponseWriter, r *http.Request) {
	var req scoreDetailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid score detail body", http.StatusBadRequest)
		return
	}
	if req.Athlete.ID <= 0 || req.Value <= 0 {
		http.Error(w, "athlete id and value must be positive", http.StatusBadRequest)
		return
	}

	count := s.store.AddScore(req.Athlete.ID, req.Value)
	log.Info().
		Int64("match_id", req.Match.ID).
		Int64("athlete_id", req.Athlete.ID).
		Int("value", req.Value).
		Int("count", count).
		Msg("score detail recorded")
	s.hub.BroadcastScore(req.Match.ID, req.Athlete.ID, count)

	writeJSON(w, http.StatusCreated, countResponse{Count: count})
}

func (s *Server) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	matchID, ok := pathID(w, r, "matchId")
	if !ok {
		return
	}
	s.hub.Serve(w, r, matchID)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
