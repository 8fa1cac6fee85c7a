package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors a Controller updates as it
// processes transactions, reconciles, and compactions. Callers that run
// multiple Controllers in one process should register a shared Metrics via
// Config.Metrics and a distinguishing label elsewhere, since these
// collectors carry no per-controller labels themselves.
//
// TxRejected is created and registered, but no Controller method
// increments it. LogSize is set only at the end of Compact, so between
// compactions it does not reflect transactions added by Emit or UpdateState.
type Metrics struct {
	TxEmitted          prometheus.Counter
	TxRejected         prometheus.Counter
	ReconcileCalls     prometheus.Counter
	ReconcileCacheHits prometheus.Counter
	Compactions        prometheus.Counter
	CheckpointsPruned  prometheus.Counter
	LogSize            prometheus.Gauge
}

// NewMetrics returns a Metrics with fresh, unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		TxEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synclog_tx_emitted_total",
			Help: "Transactions appended to the local log via Emit.",
		}),
		TxRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synclog_tx_rejected_total",
			Help: "Transactions whose ops failed to apply or were rejected by the validator.",
		}),
		ReconcileCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synclog_reconcile_calls_total",
			Help: "Calls to ReconcileState.",
		}),
		ReconcileCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synclog_reconcile_cache_hits_total",
			Help: "ReconcileState calls served from the memoized diff cache.",
		}),
		Compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synclog_compactions_total",
			Help: "Checkpoint compactions performed.",
		}),
		CheckpointsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synclog_checkpoints_pruned_total",
			Help: "Checkpoints dropped because another checkpoint became canonical.",
		}),
		LogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synclog_log_size",
			Help: "Transactions currently held in the local log.",
		}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.TxEmitted, m.TxRejected, m.ReconcileCalls, m.ReconcileCacheHits,
		m.Compactions, m.CheckpointsPruned, m.LogSize,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
