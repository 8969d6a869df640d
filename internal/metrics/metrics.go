package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain metrics for the social core. Registered once on the default registry.
var (
	FeedAssemblyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "circle_feed_assembly_seconds",
			Help:    "Time spent assembling a feed page",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circle_notifications_total",
			Help: "Notification fan-out outcomes",
		},
		[]string{"type", "outcome"}, // outcome: created, self_suppressed, hidden_suppressed, delivery_failed
	)

	ModerationResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circle_moderation_resolutions_total",
			Help: "Resolved reports by action and side-effect outcome",
		},
		[]string{"action", "outcome"},
	)

	Toggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circle_toggles_total",
			Help: "Like, save, follow and block toggles",
		},
		[]string{"kind", "state"}, // state: on, off, noop
	)
)
