package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ringsidehq/ringside/internal/metrics"
)

// Per-call deadlines. Pulls are opportunistic and retried at the next
// natural trigger point, so they get a short leash; a flush carries
// operator input and may take a little longer.
const (
	PullTimeout = 2 * time.Second
	PushTimeout = 5 * time.Second
)

// ScoreClient talks to the scoring backend's pull and flush endpoints.
type ScoreClient struct {
	base *BaseClient
}

// NewScoreClient creates a score client rooted at baseURL.
func NewScoreClient(baseURL string) *ScoreClient {
	return &ScoreClient{base: NewBaseClient(baseURL)}
}

// NewScoreClientWith wraps an already configured BaseClient, e.g. one
// carrying an auth token.
func NewScoreClientWith(base *BaseClient) *ScoreClient {
	return &ScoreClient{base: base}
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

// PullScoreCount fetches the authoritative score count for an athlete.
func (c *ScoreClient) PullScoreCount(ctx context.Context, athleteID int64) (int, error) {
	return c.pullCount(ctx, fmt.Sprintf("/score/athlete/%d/count", athleteID))
}

// PullPenaltyCount fetches the authoritative penalty count for an
// athlete within one match.
func (c *ScoreClient) PullPenaltyCount(ctx context.Context, athleteID, matchID int64) (int, error) {
	return c.pullCount(ctx, fmt.Sprintf("/penalty/athlete/%d/match/%d/count", athleteID, matchID))
}

func (c *ScoreClient) pullCount(ctx context.Context, endpoint string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, PullTimeout)
	defer cancel()
	body, err := c.base.Get(ctx, endpoint)
	if err != nil {
		metrics.PullFailures.WithLabelValues(string(KindOf(err))).Inc()
		return 0, fmt.Errorf("pull %s: %w", endpoint, err)
	}
	var resp countResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		metrics.PullFailures.WithLabelValues(string(FailureDecode)).Inc()
		return 0, &APIError{Kind: FailureDecode, Err: err}
	}
	if resp.Count < 0 {
		log.Warn().Int("count", resp.Count).Str("endpoint", endpoint).Msg("backend returned negative count, clamping to zero")
		resp.Count = 0
	}
	return resp.Count, nil
}

// PushPending flushes an operator's pending delta to the backend. It is
// fire-once: no retry happens inside this call, the caller decides what
// a failure means. Deltas of zero or less are a programming error.
func (c *ScoreClient) PushPending(ctx context.Context, matchID, athleteID int64, delta int) error {
	if delta <= 0 {
		return fmt.Errorf("push pending: delta must be positive, got %d", delta)
	}
	payload, err := json.Marshal(scoreDetailRequest{
		Match:   idRef{ID: matchID},
		Athlete: idRef{ID: athleteID},
		Value:   delta,
	})
	if err != nil {
		return fmt.Errorf("push pending: marshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, PushTimeout)
	defer cancel()
	if _, err := c.base.Post(ctx, "/score-detail/", payload); err != nil {
		return fmt.Errorf("push pending for athlete %d: %w", athleteID, err)
	}
	return nil
}
