package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Update metrics
	updatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_bot_updates_received_total",
		Help: "Total number of updates received",
	}, []string{"kind"})

	updatesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_bot_updates_processed_total",
		Help: "Total number of updates processed",
	}, []string{"status"})

	// Command metrics
	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	// Join request metrics
	joinRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_bot_join_requests_total",
		Help: "Total number of join requests handled",
	}, []string{"decision", "status"})

	joinNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_bot_join_notifications_total",
		Help: "Total number of join request notifications sent to requesters",
	}, []string{"status"})

	// Broadcast metrics
	broadcastSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_bot_broadcast_sends_total",
		Help: "Total number of broadcast deliveries",
	}, []string{"status"})

	broadcastDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "telegram_bot_broadcast_duration_seconds",
		Help:    "Duration of broadcast runs",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telegram_bot_cache_hits_total",
		Help: "Total number of cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telegram_bot_cache_misses_total",
		Help: "Total number of cache misses",
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telegram_bot_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_bot_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telegram_bot_storage_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	knownUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "telegram_bot_known_users",
		Help: "Number of known users",
	})

	configuredChats = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "telegram_bot_configured_chats",
		Help: "Number of chats with stored settings",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordUpdateReceived records a received update by kind
func (m *Metrics) RecordUpdateReceived(kind string) {
	updatesReceived.WithLabelValues(kind).Inc()
}

// RecordUpdateProcessed records a processed update
func (m *Metrics) RecordUpdateProcessed(status string) {
	updatesProcessed.WithLabelValues(status).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordJoinRequest records a join request decision
func (m *Metrics) RecordJoinRequest(decision, status string) {
	joinRequests.WithLabelValues(decision, status).Inc()
}

// RecordJoinNotification records a requester notification attempt
func (m *Metrics) RecordJoinNotification(status string) {
	joinNotifications.WithLabelValues(status).Inc()
}

// RecordBroadcastSend records one broadcast delivery attempt
func (m *Metrics) RecordBroadcastSend(status string) {
	broadcastSends.WithLabelValues(status).Inc()
}

// RecordBroadcastRun records a finished broadcast run
func (m *Metrics) RecordBroadcastRun(duration time.Duration) {
	broadcastDuration.Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded() {
	rateLimitExceeded.Inc()
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, status).Inc()
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetKnownUsers sets the number of known users
func (m *Metrics) SetKnownUsers(count float64) {
	knownUsers.Set(count)
}

// SetConfiguredChats sets the number of chats with stored settings
func (m *Metrics) SetConfiguredChats(count float64) {
	configuredChats.Set(count)
}
