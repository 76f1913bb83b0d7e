// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	LogsReceived     prometheus.Counter
	EventsClassified *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec

	// Ledger metrics
	TradesCreated   *prometheus.CounterVec
	StateSaveErrors prometheus.Counter
	WalletsFollowed prometheus.Gauge

	// Discovery metrics
	WalletsDiscovered prometheus.Counter
	WalletsPromoted   prometheus.Counter
	DiscoveriesPurged prometheus.Counter

	// Subscription metrics
	SubscriptionActive prometheus.Gauge
	ReconnectAttempts  prometheus.Counter
	Resubscribes       prometheus.Counter

	// Collaborator metrics
	NotifierFailures *prometheus.CounterVec
	ArchiveErrors    prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "copy_watch"
	}

	return &Metrics{
		LogsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "logs_received_total",
			Help:      "Total number of raw log notifications received",
		}),
		EventsClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_classified_total",
			Help:      "Total number of classified events by type",
		}, []string{"event_type"}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped by reason",
		}, []string{"reason"}),

		TradesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_created_total",
			Help:      "Total number of trades created by type",
		}, []string{"trade_type"}),
		StateSaveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "state_save_errors_total",
			Help:      "Total number of failed state persistence attempts",
		}),
		WalletsFollowed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "wallets_followed",
			Help:      "Current number of active followed wallets",
		}),

		WalletsDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "wallets_discovered_total",
			Help:      "Total number of new wallets discovered via transfers",
		}),
		WalletsPromoted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "wallets_promoted_total",
			Help:      "Total number of discovered wallets promoted to followed",
		}),
		DiscoveriesPurged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "discoveries_purged_total",
			Help:      "Total number of discovery records purged by retention sweep",
		}),

		SubscriptionActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Whether the log subscription is currently live (1) or not (0)",
		}),
		ReconnectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "reconnect_attempts_total",
			Help:      "Total number of stream reconnect attempts",
		}),
		Resubscribes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "resubscribes_total",
			Help:      "Total number of resubscriptions after watch set changes",
		}),

		NotifierFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "failures_total",
			Help:      "Total number of failed notification deliveries by kind",
		}, []string{"kind"}),
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "errors_total",
			Help:      "Total number of failed event archive writes",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordLogReceived increments the raw logs received counter.
func RecordLogReceived() {
	DefaultMetrics.LogsReceived.Inc()
}

// RecordEventClassified increments the classified events counter.
func RecordEventClassified(eventType string) {
	DefaultMetrics.EventsClassified.WithLabelValues(eventType).Inc()
}

// RecordEventDropped increments the dropped events counter.
func RecordEventDropped(reason string) {
	DefaultMetrics.EventsDropped.WithLabelValues(reason).Inc()
}

// RecordTradeCreated increments the trades created counter.
func RecordTradeCreated(tradeType string) {
	DefaultMetrics.TradesCreated.WithLabelValues(tradeType).Inc()
}

// RecordStateSaveError increments the state persistence failure counter.
func RecordStateSaveError() {
	DefaultMetrics.StateSaveErrors.Inc()
}

// UpdateWalletsFollowed updates the followed wallets gauge.
func UpdateWalletsFollowed(n int) {
	DefaultMetrics.WalletsFollowed.Set(float64(n))
}

// RecordWalletDiscovered increments the wallets discovered counter.
func RecordWalletDiscovered() {
	DefaultMetrics.WalletsDiscovered.Inc()
}

// RecordWalletPromoted increments the wallets promoted counter.
func RecordWalletPromoted() {
	DefaultMetrics.WalletsPromoted.Inc()
}

// RecordDiscoveriesPurged adds to the purged discoveries counter.
func RecordDiscoveriesPurged(n int) {
	DefaultMetrics.DiscoveriesPurged.Add(float64(n))
}

// SetSubscriptionActive updates the subscription liveness gauge.
func SetSubscriptionActive(active bool) {
	if active {
		DefaultMetrics.SubscriptionActive.Set(1)
	} else {
		DefaultMetrics.SubscriptionActive.Set(0)
	}
}

// RecordReconnectAttempt increments the reconnect attempts counter.
func RecordReconnectAttempt() {
	DefaultMetrics.ReconnectAttempts.Inc()
}

// RecordResubscribe increments the resubscribe counter.
func RecordResubscribe() {
	DefaultMetrics.Resubscribes.Inc()
}

// RecordNotifierFailure increments the notifier failure counter.
func RecordNotifierFailure(kind string) {
	DefaultMetrics.NotifierFailures.WithLabelValues(kind).Inc()
}

// RecordArchiveError increments the archive write failure counter.
func RecordArchiveError() {
	DefaultMetrics.ArchiveErrors.Inc()
}
