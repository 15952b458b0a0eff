package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingTransitions counts committed booking status changes by target status.
	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindbridge_booking_transitions_total",
		Help: "Committed booking status transitions by target status",
	}, []string{"status"})

	// BookingRejections counts refused workflow requests by reason
	// (forbidden, invalid_transition, validation).
	BookingRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindbridge_booking_workflow_refusals_total",
		Help: "Booking workflow requests refused before any mutation",
	}, []string{"operation", "reason"})

	// ProvisioningOutcomes counts meeting provisioning results by outcome.
	ProvisioningOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindbridge_meeting_provisioning_outcomes_total",
		Help: "Meeting link provisioning outcomes",
	}, []string{"operation", "outcome"})

	// NotificationResults counts email notification attempts by kind and result.
	NotificationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindbridge_notification_results_total",
		Help: "Email notification attempts by kind and result",
	}, []string{"kind", "result"})

	// CollaboratorLatency records external collaborator call latency.
	CollaboratorLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mindbridge_collaborator_call_seconds",
		Help:    "Latency of calls to external collaborators",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"collaborator", "operation"})

	// JobResults counts background job executions by task type and result.
	JobResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindbridge_job_results_total",
		Help: "Background job executions by task type and result",
	}, []string{"task", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mindbridge_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindbridge_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts read-through cache lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindbridge_cache_lookups_total",
		Help: "Read-through cache lookups by result",
	}, []string{"cache", "result"})

	// WebSocketConnections is the gauge of open notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mindbridge_websocket_connections",
		Help: "Number of open notification WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindbridge_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// ObserveCollaborator returns a func that records the call latency when
// called, typically deferred.
func ObserveCollaborator(collaborator, operation string) func() {
	start := time.Now()
	return func() {
		CollaboratorLatency.WithLabelValues(collaborator, operation).Observe(time.Since(start).Seconds())
	}
}

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, elapsed time.Duration) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}
