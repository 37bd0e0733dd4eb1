package threadpool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/fluxorio/threadpool/pkg/transport"
)

// worker owns one consumer handle and the goroutine that drains it. The
// goroutine runs until it takes a terminate message, the transport fails, or
// a job panics.
type worker struct {
	id   int
	name string
	pool *Pool
	cons transport.Consumer

	done chan struct{}
	err  error // Written before done is closed
}

func newWorker(id int, pool *Pool, cons transport.Consumer) *worker {
	return &worker{
		id:   id,
		name: fmt.Sprintf("%s-%d", pool.name, id),
		pool: pool,
		cons: cons,
		done: make(chan struct{}),
	}
}

// start launches the worker goroutine. The live counter is bumped here, not
// in run, so the pool's stats already count the worker when start returns.
func (w *worker) start() {
	atomic.AddInt32(&w.pool.live, 1)
	go w.run()
}

// run is the receive/execute loop. The deferred finish runs before done is
// closed, so everything it writes is visible to join.
func (w *worker) run() {
	defer close(w.done)
	defer w.finish()

	w.pool.log.Debugf("worker %s: started", w.name)
	for {
		msg, err := w.cons.Receive()
		if err != nil {
			// A closed transport under a live pool is an orderly way down;
			// anything else is a transport fault worth surfacing on join.
			if !errors.Is(err, transport.ErrClosed) {
				w.err = fmt.Errorf("worker %s: receive: %w", w.name, err)
			}
			w.pool.log.Warnf("worker %s: queue gone, exiting: %v", w.name, err)
			return
		}
		if msg.IsTerminate() {
			w.pool.log.Debugf("worker %s: terminate received", w.name)
			return
		}
		w.execute(msg.Job())
	}
}

// execute runs one job with timing and accounting around it. A panicking job
// unwinds through here into finish's recover; JobFinished does not fire for
// it.
func (w *worker) execute(job transport.Job) {
	w.pool.obs.JobStarted(w.name)
	start := time.Now()
	job()
	elapsed := time.Since(start)
	atomic.AddInt64(&w.pool.finished, 1)
	w.pool.obs.JobFinished(w.name, elapsed)
}

// finish settles the worker's exit: it converts a panic into the worker's
// error, releases the consumer and runs the exit accounting exactly once,
// however run ended. Closing the consumer hands messages already routed to
// this worker back to the rest of the pool, which keeps a panicking worker
// from taking queued jobs down with it.
func (w *worker) finish() {
	if v := recover(); v != nil {
		w.err = &PanicError{Worker: w.name, Value: v, Stack: debug.Stack()}
		w.pool.log.Errorf("worker %s: job panicked: %v", w.name, v)
	}
	if err := w.cons.Close(); err != nil {
		w.pool.log.Warnf("worker %s: consumer close: %v", w.name, err)
	}
	atomic.AddInt32(&w.pool.live, -1)
	w.pool.obs.WorkerExited(w.name, w.err != nil)
	w.pool.log.Debugf("worker %s: exited", w.name)
}

// join blocks until the worker goroutine has ended and reports how it died.
// A nil return means a clean exit.
func (w *worker) join() error {
	<-w.done
	return w.err
}
