package prometheus

import (
	"time"

	"github.com/fluxorio/threadpool/pkg/threadpool"
)

// Observer feeds pool events into a Metrics instance, labeled with the pool
// name. Wire it with threadpool.WithObserver.
type Observer struct {
	pool string
	m    *Metrics
}

var _ threadpool.Observer = (*Observer)(nil)

// NewObserver creates an observer for the named pool. A nil Metrics uses the
// shared instance on DefaultRegisterer.
func NewObserver(pool string, m *Metrics) *Observer {
	if m == nil {
		m = GetMetrics()
	}
	return &Observer{pool: pool, m: m}
}

// WorkerStarted implements threadpool.Observer.
func (o *Observer) WorkerStarted(string) {
	o.m.WorkersLive.WithLabelValues(o.pool).Inc()
}

// WorkerExited implements threadpool.Observer.
func (o *Observer) WorkerExited(_ string, abnormal bool) {
	o.m.WorkersLive.WithLabelValues(o.pool).Dec()

	reason := "terminate"
	if abnormal {
		reason = "abnormal"
	}
	o.m.WorkerExitsTotal.WithLabelValues(o.pool, reason).Inc()
}

// JobEnqueued implements threadpool.Observer.
func (o *Observer) JobEnqueued() {
	o.m.JobsEnqueuedTotal.WithLabelValues(o.pool).Inc()
}

// JobStarted implements threadpool.Observer. Duration is recorded at finish,
// so there is nothing to do here.
func (o *Observer) JobStarted(string) {}

// JobFinished implements threadpool.Observer.
func (o *Observer) JobFinished(worker string, elapsed time.Duration) {
	o.m.JobsFinishedTotal.WithLabelValues(o.pool, worker).Inc()
	o.m.JobDuration.WithLabelValues(o.pool, worker).Observe(elapsed.Seconds())
}
