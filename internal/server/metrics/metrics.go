// Package metrics declares the Prometheus collectors of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Credential channels used as the "channel" label.
const (
	ChannelPassword     = "password"
	ChannelWebSession   = "web_session"
	ChannelUserAPIKey   = "user_api_key"
	ChannelCalcKey      = "calc_key"
	ChannelSessionToken = "session_token"
	ChannelAppKey       = "app_key"
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeError     = "error"
	OutcomeForbidden = "forbidden"
)

var (
	// AuthAttempts counts authentication attempts.
	// Labels:
	//   - channel: one of the Channel* constants
	//   - outcome: "success", "failure", "forbidden", "error"
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinet_auth_attempts_total",
			Help: "Total number of authentication attempts per credential channel",
		},
		[]string{"channel", "outcome"},
	)

	// LeaderboardMutations counts score changes.
	// Labels:
	//   - op: "increment", "decrement", "set", "delete"
	//   - created: "true" when the entry was created by the call
	LeaderboardMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinet_leaderboard_mutations_total",
			Help: "Total number of leaderboard entry mutations",
		},
		[]string{"op", "created"},
	)

	// FileUploads counts per-file upload outcomes.
	// Labels:
	//   - outcome: "stored", "quota_exceeded", "exists", "invalid", "error"
	FileUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinet_file_uploads_total",
			Help: "Total number of files processed by upload requests",
		},
		[]string{"outcome"},
	)

	// HTTPRequestDuration measures request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tinet_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)
)
