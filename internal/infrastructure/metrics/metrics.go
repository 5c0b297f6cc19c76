package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "userregistry"

// Counter labels.
const (
	UserCreated      = "user_created_total"
	UserUpdated      = "user_updated_total"
	UserDeactivated  = "user_deactivated_total"
	EmailConflict    = "email_conflict_total"
	EventPublishFail = "event_publish_failed_total"
	AppRequests      = "app_requests_total"
)

func NewCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	return promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "general_counters",
			Help:      "Service level counters keyed by result.",
		},
		[]string{"result"})
}

func NewHTTPLatency(reg prometheus.Registerer) *prometheus.HistogramVec {
	return promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"})
}
