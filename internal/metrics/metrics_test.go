package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSnapshot_ReadsCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	for i := 0; i < 4; i++ {
		m.OperationsTotal.Inc()
	}
	m.OperationsSuccessful.Add(3)
	m.OperationsFailed.Inc()
	m.OperationsRetried.Add(3)
	m.CacheHits.Inc()
	m.CacheMisses.Add(3)
	m.XDRGenerated.Inc()
	m.TransactionsSubmitted.Add(2)
	m.RegisteredContracts.Set(6)
	m.QueueDepth.Set(1)

	s := m.Snapshot()

	tests := []struct {
		name     string
		got      uint64
		expected uint64
	}{
		{"total", s.TotalOperations, 4},
		{"successful", s.SuccessfulOperations, 3},
		{"failed", s.FailedOperations, 1},
		{"retried", s.RetriedOperations, 3},
		{"cache hits", s.CacheHits, 1},
		{"cache misses", s.CacheMisses, 3},
		{"xdr generated", s.XDRGenerated, 1},
		{"submitted", s.TransactionsSubmitted, 2},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s: expected %d, got: %d", tt.name, tt.expected, tt.got)
		}
	}

	if s.RegisteredContracts != 6 || s.QueueDepth != 1 {
		t.Errorf("Unexpected gauges: contracts=%d depth=%d", s.RegisteredContracts, s.QueueDepth)
	}
	if s.CacheHitRate != 25 {
		t.Errorf("Expected cache hit rate 25, got: %v", s.CacheHitRate)
	}
	if s.SuccessRate != 75 {
		t.Errorf("Expected success rate 75, got: %v", s.SuccessRate)
	}
}

func TestSnapshot_EmptyRates(t *testing.T) {
	s := New(prometheus.NewRegistry()).Snapshot()
	if s.CacheHitRate != 0 || s.SuccessRate != 0 {
		t.Errorf("Expected zero rates, got: %v / %v", s.CacheHitRate, s.SuccessRate)
	}
}

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveCall("simulate", time.Now())
	m.ErrorsTotal.WithLabelValues("circuit_open").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"gateway_operations_total",
		"gateway_cache_hits_total",
		"gateway_rpc_call_duration_seconds",
		"gateway_errors_total",
		"gateway_queue_depth",
	} {
		if !names[want] {
			t.Errorf("Expected %s to be registered", want)
		}
	}
}
