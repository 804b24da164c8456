package metrics

import (
	"testing"
	"time"

	"astraguard/aegis/pkg/mission"

	"github.com/prometheus/client_golang/prometheus"
)

func Benchmark_Collector_RecordDecision(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	d := testDecision()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordDecision(d, 120*time.Microsecond)
	}
}

func Benchmark_Collector_RecordDecision_Parallel(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	d := testDecision()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			collector.RecordDecision(d, 120*time.Microsecond)
		}
	})
}

func Benchmark_Collector_RecordPhaseTransition(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordPhaseTransition(mission.PhaseLaunch, mission.PhaseDeployment, "applied")
	}
}

func Benchmark_Collector_RecordHTTPRequest(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordHTTPRequest("POST", "/v1/decisions", 200, 3*time.Millisecond)
	}
}

func Benchmark_CardinalityLimiter_Allow(b *testing.B) {
	limiter := NewCardinalityLimiter(500)
	limiter.Allow("thermal_runaway")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow("thermal_runaway")
	}
}
