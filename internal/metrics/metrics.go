package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the gateway's process-wide counters.
// Each instance registers on its own registerer so tests can use a fresh registry.
type Metrics struct {
	// Throughput metrics - Track operation volume
	OperationsTotal       prometheus.Counter
	OperationsSuccessful  prometheus.Counter
	OperationsFailed      prometheus.Counter
	OperationsRetried     prometheus.Counter
	XDRGenerated          prometheus.Counter
	TransactionsSubmitted prometheus.Counter

	// Cache metrics - Track effectiveness of per-contract caching
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Performance metrics - Track RPC latency
	RPCCallDuration *prometheus.HistogramVec

	// Error metrics - Track failures by kind
	ErrorsTotal *prometheus.CounterVec

	// State metrics - Track current system state
	RegisteredContracts prometheus.Gauge
	QueueDepth          prometheus.Gauge
}

// New creates and registers the gateway metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_operations_total",
			Help: "Total number of contract operations attempted",
		}),
		OperationsSuccessful: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_operations_successful_total",
			Help: "Total number of contract operations that succeeded",
		}),
		OperationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_operations_failed_total",
			Help: "Total number of contract operations that failed",
		}),
		OperationsRetried: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_operations_retried_total",
			Help: "Total number of queued operation retries",
		}),
		XDRGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_xdr_generated_total",
			Help: "Total number of transaction envelopes generated",
		}),
		TransactionsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_transactions_submitted_total",
			Help: "Total number of signed transactions submitted to the queue",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_cache_hits_total",
			Help: "Total number of reads served from a contract cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_cache_misses_total",
			Help: "Total number of reads that missed the contract cache",
		}),
		RPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_rpc_call_duration_seconds",
				Help:    "Time taken by RPC calls executed through the circuit breaker",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_errors_total",
				Help: "Total number of failed operations by error kind",
			},
			[]string{"kind"},
		),
		RegisteredContracts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_registered_contracts",
			Help: "Number of contracts currently registered",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_queue_depth",
			Help: "Number of write operations waiting in the queue",
		}),
	}
}

// ObserveCall records the duration of one RPC call
func (m *Metrics) ObserveCall(operation string, started time.Time) {
	m.RPCCallDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Snapshot is a JSON view of the counters
type Snapshot struct {
	TotalOperations       uint64  `json:"total_operations"`
	SuccessfulOperations  uint64  `json:"successful_operations"`
	FailedOperations      uint64  `json:"failed_operations"`
	RetriedOperations     uint64  `json:"retried_operations"`
	CacheHits             uint64  `json:"cache_hits"`
	CacheMisses           uint64  `json:"cache_misses"`
	XDRGenerated          uint64  `json:"xdr_generated"`
	TransactionsSubmitted uint64  `json:"transactions_submitted"`
	RegisteredContracts   int     `json:"registered_contracts"`
	QueueDepth            int     `json:"queue_depth"`
	CacheHitRate          float64 `json:"cache_hit_rate"`
	SuccessRate           float64 `json:"success_rate"`
}

// Snapshot reads the current values back from the collectors
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		TotalOperations:       counterValue(m.OperationsTotal),
		SuccessfulOperations:  counterValue(m.OperationsSuccessful),
		FailedOperations:      counterValue(m.OperationsFailed),
		RetriedOperations:     counterValue(m.OperationsRetried),
		CacheHits:             counterValue(m.CacheHits),
		CacheMisses:           counterValue(m.CacheMisses),
		XDRGenerated:          counterValue(m.XDRGenerated),
		TransactionsSubmitted: counterValue(m.TransactionsSubmitted),
		RegisteredContracts:   int(gaugeValue(m.RegisteredContracts)),
		QueueDepth:            int(gaugeValue(m.QueueDepth)),
	}

	// percentages, 0 when nothing has been recorded yet
	if lookups := s.CacheHits + s.CacheMisses; lookups > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(lookups) * 100
	}
	if s.TotalOperations > 0 {
		s.SuccessRate = float64(s.SuccessfulOperations) / float64(s.TotalOperations) * 100
	}
	return s
}

func counterValue(c prometheus.Counter) uint64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return uint64(m.GetCounter().GetValue())
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
