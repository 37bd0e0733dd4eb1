package main

import (
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	r, err := run(loadConfig{
		Workers: 2,
		Jobs:    200,
		Work:    0,
		Backend: "memory",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if r.Stats.Enqueued != 200 {
		t.Errorf("Enqueued = %d, want 200", r.Stats.Enqueued)
	}
	if r.Stats.Finished != 200 {
		t.Errorf("Finished = %d, want 200", r.Stats.Finished)
	}
	if r.Throughput <= 0 {
		t.Errorf("Throughput = %v, want > 0", r.Throughput)
	}
	if r.P50 > r.P99 || r.P99 > r.Max {
		t.Errorf("latency ordering broken: p50=%v p99=%v max=%v", r.P50, r.P99, r.Max)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	if got := percentile(sorted, 0); got != 1 {
		t.Errorf("p0 = %v, want 1", got)
	}
	if got := percentile(sorted, 0.50); got != 5 {
		t.Errorf("p50 = %v, want 5", got)
	}
	if got := percentile(sorted, 1); got != 10 {
		t.Errorf("p100 = %v, want 10", got)
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Errorf("empty percentile = %v, want 0", got)
	}
}
