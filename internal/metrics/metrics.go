// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lebot"

var (
	// EventsHandled counts routed chat events by result kind
	// ("ignored" when the router produced no response).
	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_handled_total",
		Help:      "Chat events handled, by result kind.",
	}, []string{"kind"})

	// EventDuration observes time spent routing one event.
	EventDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_duration_seconds",
		Help:      "Time spent handling one chat event.",
		Buckets:   prometheus.DefBuckets,
	})

	// LedgerEntries counts appended ledger entries by kind.
	LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_entries_total",
		Help:      "Ledger entries appended, by kind.",
	}, []string{"kind"})

	// LedgerClears counts successful clears of non-empty ledgers.
	LedgerClears = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_clears_total",
		Help:      "Ledgers cleared.",
	})

	// PersistenceErrors counts failed store writes.
	PersistenceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_errors_total",
		Help:      "Failed ledger or admin writes.",
	})

	// Throttled counts events dropped by a rate limiter, by scope.
	Throttled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "throttled_total",
		Help:      "Events dropped by rate limiting, by scope.",
	}, []string{"scope"})

	// SnapshotsTaken counts balance snapshot rows written by the scheduler.
	SnapshotsTaken = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_taken_total",
		Help:      "Balance snapshot rows written.",
	})

	// RPCRequests counts ledger RPC calls by procedure and result code
	// ("ok" on success).
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Ledger RPC calls, by procedure and code.",
	}, []string{"procedure", "code"})
)
