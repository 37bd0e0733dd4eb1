package threadpool

import "time"

// Observer receives pool lifecycle events. Callbacks run inline on the pool's
// goroutines, so implementations should return quickly and must not call back
// into the pool. The worker argument is the worker name, "<pool>-<index>".
type Observer interface {
	// WorkerStarted fires when a worker goroutine is launched.
	WorkerStarted(worker string)

	// WorkerExited fires when a worker goroutine ends. abnormal is true when
	// the worker died of a job panic or a transport failure rather than a
	// terminate message.
	WorkerExited(worker string, abnormal bool)

	// JobEnqueued fires when Execute accepts a job.
	JobEnqueued()

	// JobStarted fires when a worker picks a job up.
	JobStarted(worker string)

	// JobFinished fires when a job returns. It does not fire for jobs that
	// panic.
	JobFinished(worker string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) WorkerStarted(string)              {}
func (nopObserver) WorkerExited(string, bool)         {}
func (nopObserver) JobEnqueued()                      {}
func (nopObserver) JobStarted(string)                 {}
func (nopObserver) JobFinished(string, time.Duration) {}

// MultiObserver fans every event out to each of the given observers, in
// order. Nil entries are skipped.
func MultiObserver(observers ...Observer) Observer {
	filtered := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	return multiObserver(filtered)
}

type multiObserver []Observer

func (m multiObserver) WorkerStarted(worker string) {
	for _, o := range m {
		o.WorkerStarted(worker)
	}
}

func (m multiObserver) WorkerExited(worker string, abnormal bool) {
	for _, o := range m {
		o.WorkerExited(worker, abnormal)
	}
}

func (m multiObserver) JobEnqueued() {
	for _, o := range m {
		o.JobEnqueued()
	}
}

func (m multiObserver) JobStarted(worker string) {
	for _, o := range m {
		o.JobStarted(worker)
	}
}

func (m multiObserver) JobFinished(worker string, elapsed time.Duration) {
	for _, o := range m {
		o.JobFinished(worker, elapsed)
	}
}
