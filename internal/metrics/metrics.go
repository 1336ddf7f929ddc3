package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	WaitingListJoins    prometheus.Counter
	DrawsRun            prometheus.Counter
	EntrantsInvited     prometheus.Counter
	InvitationsAccepted prometheus.Counter

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		WaitingListJoins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventlottery_waiting_list_joins_total",
			Help: "Total number of successful waiting list joins",
		}),
		DrawsRun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventlottery_draws_total",
			Help: "Total number of lottery draws run (including backfill draws)",
		}),
		EntrantsInvited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventlottery_entrants_invited_total",
			Help: "Total number of entrants moved from waiting to invited",
		}),
		InvitationsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventlottery_invitations_accepted_total",
			Help: "Total number of invitations accepted",
		}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventlottery_http_requests_total",
			Help: "HTTP requests by method, route pattern, and status code",
		}, []string{"method", "pattern", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventlottery_http_request_duration_seconds",
			Help:    "HTTP request duration by method and route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "pattern"}),
	}
}
