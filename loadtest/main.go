package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/fluxorio/threadpool/pkg/threadpool"
	"github.com/fluxorio/threadpool/pkg/transport"
)

// loadConfig is one load run: how many workers, how many jobs, how much
// simulated work per job, and which transport carries them.
type loadConfig struct {
	Workers int
	Jobs    int
	Work    time.Duration
	Backend string
	NATSURL string
}

// report is the outcome of one load run.
type report struct {
	Wall       time.Duration
	Throughput float64 // jobs per second
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	Max        time.Duration
	Stats      threadpool.Stats
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := loadConfig{}
	flag.IntVar(&cfg.Workers, "workers", 8, "worker count")
	flag.IntVar(&cfg.Jobs, "jobs", 100000, "jobs to submit")
	flag.DurationVar(&cfg.Work, "work", 0, "simulated work per job, e.g. 1ms")
	flag.StringVar(&cfg.Backend, "transport", "memory", "transport backend: memory or nats")
	flag.StringVar(&cfg.NATSURL, "nats-url", "", "NATS server URL (nats transport only)")
	flag.Parse()

	log.Printf("Starting load run: %d workers, %d jobs, %v work each, %s transport",
		cfg.Workers, cfg.Jobs, cfg.Work, cfg.Backend)

	r, err := run(cfg)
	if err != nil {
		log.Fatalf("Load run failed: %v", err)
	}

	fmt.Printf("\nWall time:        %v\n", r.Wall.Round(time.Millisecond))
	fmt.Printf("Throughput:       %.0f jobs/s\n", r.Throughput)
	fmt.Printf("Latency p50:      %v\n", r.P50)
	fmt.Printf("Latency p95:      %v\n", r.P95)
	fmt.Printf("Latency p99:      %v\n", r.P99)
	fmt.Printf("Latency max:      %v\n", r.Max)
	fmt.Printf("Enqueued:         %d\n", r.Stats.Enqueued)
	fmt.Printf("Finished:         %d\n", r.Stats.Finished)
}

// run submits cfg.Jobs jobs and waits for all of them, measuring the
// enqueue-to-finish latency of each.
func run(cfg loadConfig) (report, error) {
	var opts []threadpool.Option
	if cfg.Backend == "nats" {
		tr, err := transport.NewNATS(transport.NATSConfig{
			URL:  cfg.NATSURL,
			Name: "loadtest",
		})
		if err != nil {
			return report{}, err
		}
		defer tr.Close()
		opts = append(opts, threadpool.WithTransport(tr))
	}

	pool, err := threadpool.New(
		threadpool.Config{Workers: cfg.Workers, Name: "loadtest"},
		opts...,
	)
	if err != nil {
		return report{}, err
	}

	latencies := make([]time.Duration, cfg.Jobs)
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(cfg.Jobs)
	for i := 0; i < cfg.Jobs; i++ {
		i := i
		enqueued := time.Now()
		err := pool.Execute(func() {
			if cfg.Work > 0 {
				time.Sleep(cfg.Work)
			}
			latencies[i] = time.Since(enqueued)
			wg.Done()
		})
		if err != nil {
			return report{}, err
		}
	}
	wg.Wait()
	wall := time.Since(start)

	stats := pool.Stats()
	if err := pool.Close(); err != nil {
		return report{}, err
	}

	sort.Slice(latencies, func(a, b int) bool { return latencies[a] < latencies[b] })
	return report{
		Wall:       wall,
		Throughput: float64(cfg.Jobs) / wall.Seconds(),
		P50:        percentile(latencies, 0.50),
		P95:        percentile(latencies, 0.95),
		P99:        percentile(latencies, 0.99),
		Max:        percentile(latencies, 1),
		Stats:      stats,
	}, nil
}

// percentile picks the q-th percentile from sorted latencies.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * q)
	return sorted[idx]
}
