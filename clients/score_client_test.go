package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPullScoreCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/score/athlete/11/count", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int{"count": 7})
	}))
	defer srv.Close()

	client := NewScoreClient(srv.URL)
	count, err := client.PullScoreCount(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestPullPenaltyCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/penalty/athlete/11/match/42/count", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int{"count": 2})
	}))
	defer srv.Close()

	client := NewScoreClient(srv.URL)
	count, err := client.PullPenaltyCount(context.Background(), 11, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPullClampsNegativeCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"count": -3})
	}))
	defer srv.Close()

	client := NewScoreClient(srv.URL)
	count, err := client.PullScoreCount(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPullStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewScoreClient(srv.URL)
	_, err := client.PullScoreCount(context.Background(), 11)
	require.Error(t, err)
	assert.Equal(t, FailureStatus, KindOf(err))
}

func TestPullDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewScoreClient(srv.URL)
	_, err := client.PullScoreCount(context.Background(), 11)
	require.Error(t, err)
	assert.Equal(t, FailureDecode, KindOf(err))
}

func TestPullTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewScoreClient(srv.URL)
	_, err := client.PullScoreCount(context.Background(), 11)
	require.Error(t, err)
	assert.Equal(t, FailureTransport, KindOf(err))
}

func TestPushPending(t *testing.T) {
	var got scoreDetailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/score-detail/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]int{"count": 10})
	}))
	defer srv.Close()

	client := NewScoreClient(srv.URL)
	require.NoError(t, client.PushPending(context.Background(), 42, 11, 3))
	assert.Equal(t, int64(42), got.Match.ID)
	assert.Equal(t, int64(11), got.Athlete.ID)
	assert.Equal(t, 3, got.Value)
}

func TestPushPendingRejectsNonPositiveDelta(t *testing.T) {
	client := NewScoreClient("http://unreachable.invalid")
	assert.Error(t, client.PushPending(context.Background(), 42, 11, 0))
	assert.Error(t, client.PushPending(context.Background(), 42, 11, -1))
}

func TestPushPendingStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewScoreClient(srv.URL)
	err := client.PushPending(context.Background(), 42, 11, 3)
	require.Error(t, err)
	assert.Equal(t, FailureStatus, KindOf(err))
}

func TestBearerTokenHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]int{"count": 0})
	}))
	defer srv.Close()

	base := NewBaseClient(srv.URL)
	base.SetBearerToken("sekrit")
	client := NewScoreClientWith(base)
	_, err := client.PullScoreCount(context.Background(), 11)
	require.NoError(t, err)
}
