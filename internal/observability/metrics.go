package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	chatMessagesSent    *prometheus.CounterVec
	chatThreadsEnsured  *prometheus.CounterVec
	chatSendFailures    *prometheus.CounterVec
	subscriptionsActive *prometheus.GaugeVec
	realtimeEventsTotal *prometheus.CounterVec
	uploadRequestsTotal *prometheus.CounterVec
	uploadRejectedTotal *prometheus.CounterVec
	uploadLatency       prometheus.Histogram
	cacheLookupsTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefix_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homefix_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefix_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		chatMessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefix_chat_messages_sent_total",
			Help: "Chat messages written, labelled by content kind.",
		}, []string{"kind"})

		chatThreadsEnsured = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefix_chat_threads_ensured_total",
			Help: "Thread ensure calls, labelled by outcome (created or existing).",
		}, []string{"outcome"})

		chatSendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefix_chat_send_failures_total",
			Help: "Rejected or failed chat sends, labelled by reason.",
		}, []string{"reason"})

		subscriptionsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "homefix_subscriptions_active",
			Help: "Live subscriptions currently open, labelled by kind.",
		}, []string{"kind"})

		realtimeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefix_realtime_events_total",
			Help: "Realtime change events dispatched, labelled by origin.",
		}, []string{"origin"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefix_upload_requests_total",
			Help: "Successful uploads by normalised MIME type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefix_upload_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "homefix_upload_latency_seconds",
			Help:    "Upload processing latency.",
			Buckets: prometheus.DefBuckets,
		})

		cacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homefix_cache_lookups_total",
			Help: "Redis cache lookups by cache name and result.",
		}, []string{"cache", "result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			chatMessagesSent,
			chatThreadsEnsured,
			chatSendFailures,
			subscriptionsActive,
			realtimeEventsTotal,
			uploadRequestsTotal,
			uploadRejectedTotal,
			uploadLatency,
			cacheLookupsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ChatMessagesSent counts persisted chat messages.
func ChatMessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesSent
}

// ChatThreadsEnsured counts ensure-thread outcomes.
func ChatThreadsEnsured() *prometheus.CounterVec {
	RegisterMetrics()
	return chatThreadsEnsured
}

// ChatSendFailures counts rejected sends.
func ChatSendFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return chatSendFailures
}

// SubscriptionsActive tracks open live subscriptions.
func SubscriptionsActive() *prometheus.GaugeVec {
	RegisterMetrics()
	return subscriptionsActive
}

// RealtimeEvents counts dispatched realtime events.
func RealtimeEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsTotal
}

// UploadRequests counts accepted uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency observes upload processing time.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}

// CacheLookups counts cache hits and misses.
func CacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheLookupsTotal
}
