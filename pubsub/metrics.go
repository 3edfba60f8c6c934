package pubsub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a frame is dropped by the dispatcher.
const (
	dropMalformed           = "malformed"
	dropUnknownID           = "unknown_id"
	dropOrphaned            = "orphaned"
	dropUnknownSubscription = "unknown_subscription"
	dropUnsubscribing       = "unsubscribing"
)

var (
	droppedFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainrpc",
			Subsystem: "pubsub",
			Name:      "dropped_frames_total",
			Help:      "Inbound frames dropped by the dispatcher, by reason",
		},
		[]string{"reason"},
	)

	deliveredNotifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chainrpc",
			Subsystem: "pubsub",
			Name:      "notifications_total",
			Help:      "Notifications delivered to subscribers",
		},
	)

	activeSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chainrpc",
			Subsystem: "pubsub",
			Name:      "subscriptions",
			Help:      "Subscriptions currently registered",
		},
	)
)
