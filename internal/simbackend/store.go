// Package simbackend is a small in-memory scoring backend implementing
// the wire contract the station speaks: the pull endpoints, the
// score-detail flush endpoint and the push channel. It exists for local
// bring-up and demos; nothing is persisted.
package simbackend

import "sync"

type penaltyKey struct {
	athleteID int64
	matchID   int64
}

// Store holds the authoritative counts.
type Store struct {
	mu        sync.Mutex
	scores    map[int64]int
	penalties map[penaltyKey]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		scores:    make(map[int64]int),
		penalties: make(map[penaltyKey]int),
	}
}

// ScoreCount returns an athlete's authoritative score.
func (s *Store) ScoreCount(athleteID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[athleteID]
}

// AddScore adds points to an athlete's score and returns the new count.
func (s *Store) AddScore(athleteID int64, points int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.scores[athleteID] + points
	if next < 0 {
		next = 0
	}
	s.scores[athleteID] = next
	return next
}

// PenaltyCount returns an athlete's penalty count within one match.
func (s *Store) PenaltyCount(athleteID, matchID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.penalties[penaltyKey{athleteID: athleteID, matchID: matchID}]
}

// AddPenalty adds penalties for an athlete within one match and returns
// the new count.
func (s *Store) AddPenalty(athleteID, matchID int64, n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := penaltyKey{athleteID: athleteID, matchID: matchID}
	next := s.penalties[key] + n
	if next < 0 {
		next = 0
	}
	s.penalties[key] = next
	return next
}
