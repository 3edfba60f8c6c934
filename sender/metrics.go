package sender

import (
	"errors"
	"time"

	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainrpc",
			Subsystem: "sender",
			Name:      "requests_total",
			Help:      "Total number of JSON-RPC requests sent, by outcome",
		},
		[]string{"method", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chainrpc",
			Subsystem: "sender",
			Name:      "request_duration_seconds",
			Help:      "JSON-RPC request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method"},
	)
)

// Observe records one request attempt that started at start.
func Observe(method string, start time.Time, err error) {
	requestCounter.WithLabelValues(method, Outcome(err)).Inc()
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// Outcome names the class of err for metrics and logs.
func Outcome(err error) string {
	var (
		transport *jsonrpc.TransportError
		protocol  *jsonrpc.ProtocolError
		decode    *jsonrpc.DecodeError
		remote    *jsonrpc.Error
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &protocol):
		return "protocol"
	case errors.As(err, &decode):
		return "decode"
	case errors.As(err, &remote):
		return "remote"
	default:
		return "error"
	}
}
