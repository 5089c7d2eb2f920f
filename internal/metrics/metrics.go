// Package metrics registers the Prometheus instruments shared by the
// sync core and the sim backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ringside"

var (
	// FeedReconnects counts reconnect attempts scheduled after a drop.
	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "reconnects_total",
		Help:      "Reconnect attempts scheduled after the push channel dropped.",
	})

	// FeedFrames counts inbound push frames by outcome.
	FeedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "frames_total",
		Help:      "Inbound push frames by type (connected, score_update, ignored, malformed).",
	}, []string{"type"})

	// PullFailures counts failed authoritative pulls by error kind.
	PullFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "pull_failures_total",
		Help:      "Failed authoritative count pulls by error kind.",
	}, []string{"kind"})

	// Flushes counts pending-delta flushes by outcome.
	Flushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "flushes_total",
		Help:      "Pending delta flushes by outcome (confirmed, failed, empty).",
	}, []string{"outcome"})

	// HubBroadcasts counts score_update frames fanned out by the sim backend.
	HubBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "simbackend",
		Name:      "broadcasts_total",
		Help:      "score_update frames broadcast to connected boards.",
	})
)

// Handler serves the default registry, for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
