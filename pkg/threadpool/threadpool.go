// Package threadpool implements a fixed-size worker pool on top of an
// unbounded message queue.
//
// A Pool owns N workers that compete for jobs on a shared transport. Execute
// hands a job to the queue and returns immediately; Close delivers one
// terminate message per worker through the same queue, then joins the workers
// in creation order. Jobs run at most once; a job that panics kills its
// worker, and the panic is reported by Close rather than taking the process
// down.
//
// The queue defaults to an in-process one; WithTransport swaps in any
// transport.Transport, e.g. the NATS-backed one.
package threadpool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/fluxorio/threadpool/pkg/transport"
)

// Job is a unit of work submitted to the pool.
type Job = transport.Job

// Config configures a Pool.
type Config struct {
	// Workers is the number of worker goroutines. Must be positive; there is
	// no default, a pool with no workers would accept jobs and run none.
	Workers int `yaml:"workers" json:"workers"`

	// Name identifies the pool in logs, worker names and metrics labels.
	// Default: "threadpool-" plus a random suffix.
	Name string `yaml:"name" json:"name"`
}

// Pool is a fixed-size worker pool. All methods are safe for concurrent use.
//
// The zero Pool is not usable; construct with New. A Pool must be closed to
// release its workers.
type Pool struct {
	name string
	conf Config

	log Logger
	obs Observer

	tr            transport.Transport
	ownsTransport bool
	producer      transport.Producer
	workers       []*worker

	closed    int32 // Atomic flag
	closeOnce sync.Once
	closeErr  error

	enqueued int64 // Atomic
	finished int64 // Atomic
	live     int32 // Atomic
}

// New creates a pool and starts conf.Workers workers. On partial failure the
// workers that did start are terminated and joined before New returns, so a
// failed New leaks nothing.
func New(conf Config, opts ...Option) (*Pool, error) {
	if conf.Workers <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidWorkerCount, conf.Workers)
	}

	name := conf.Name
	if name == "" {
		name = "threadpool-" + uuid.NewString()[:8]
	}

	p := &Pool{
		name: name,
		conf: conf,
		log:  NopLogger(),
		obs:  nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tr == nil {
		p.tr = transport.NewMemory()
		p.ownsTransport = true
	}
	p.producer = p.tr.Producer()

	p.workers = make([]*worker, 0, conf.Workers)
	for i := 0; i < conf.Workers; i++ {
		cons, err := p.tr.Consumer()
		if err != nil {
			p.abortSpawn()
			return nil, fmt.Errorf("%w %d: %w", ErrSpawn, i, err)
		}
		w := newWorker(i, p, cons)
		p.workers = append(p.workers, w)
		w.start()
		p.obs.WorkerStarted(w.name)
	}

	p.log.Infof("pool %s: started %d workers", p.name, conf.Workers)
	return p, nil
}

// abortSpawn unwinds a partially constructed pool. Started workers get a
// terminate each and are joined; if the queue cannot carry the terminates the
// transport is closed instead, which also releases them.
func (p *Pool) abortSpawn() {
	atomic.StoreInt32(&p.closed, 1)
	for range p.workers {
		if err := p.producer.Send(transport.NewTerminate()); err != nil {
			_ = p.tr.Close()
			break
		}
	}
	for _, w := range p.workers {
		_ = w.join()
	}
	if p.ownsTransport {
		_ = p.tr.Close()
	}
}

// Execute submits a job for asynchronous execution by some worker. It never
// blocks waiting for a free worker; the queue underneath is unbounded.
// Returns ErrNilJob for a nil job and ErrPoolClosed once Close has begun.
//
// A nil return means the job was enqueued, not that it will run: a job that
// races Close can land behind the terminate messages and stay undelivered.
// Callers that need every job to run must stop submitting before closing.
func (p *Pool) Execute(job Job) error {
	if job == nil {
		return ErrNilJob
	}
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrPoolClosed
	}

	if err := p.producer.Send(transport.NewJob(job)); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return ErrPoolClosed
		}
		return fmt.Errorf("threadpool: submit: %w", err)
	}

	atomic.AddInt64(&p.enqueued, 1)
	p.obs.JobEnqueued()
	return nil
}

// Close shuts the pool down and waits for the workers to drain. One terminate
// message per worker goes through the queue, behind every job enqueued before
// the close, then the workers are joined in creation order.
//
// The returned error joins one entry per worker that died abnormally
// (errors.As with *PanicError picks job panics out of it). Close is
// idempotent: later calls return the first result without closing again.
func (p *Pool) Close() error {
	p.closeOnce.Do(p.close)
	return p.closeErr
}

func (p *Pool) close() {
	atomic.StoreInt32(&p.closed, 1)
	p.log.Debugf("pool %s: closing", p.name)

	var errs []error
	for range p.workers {
		if err := p.producer.Send(transport.NewTerminate()); err != nil {
			// No way to reach the workers through the queue; closing the
			// transport unblocks their receive instead.
			errs = append(errs, fmt.Errorf("threadpool: send terminate: %w", err))
			_ = p.tr.Close()
			break
		}
	}

	for _, w := range p.workers {
		if err := w.join(); err != nil {
			errs = append(errs, err)
		}
	}

	if p.ownsTransport {
		if err := p.tr.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	p.closeErr = errors.Join(errs...)
	p.log.Infof("pool %s: closed", p.name)
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.conf.Workers
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	// Workers is the configured worker count.
	Workers int

	// LiveWorkers is the number of workers currently running. It drops below
	// Workers when jobs panic and reaches zero after Close.
	LiveWorkers int

	// Enqueued counts jobs accepted by Execute.
	Enqueued int64

	// Finished counts jobs that ran to completion.
	Finished int64

	// QueueDepth is the number of undelivered messages, as reported by the
	// transport.
	QueueDepth int
}

// Stats returns a snapshot of the pool's counters. The fields are sampled
// independently, so a snapshot taken while jobs are moving is approximate.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:     p.conf.Workers,
		LiveWorkers: int(atomic.LoadInt32(&p.live)),
		Enqueued:    atomic.LoadInt64(&p.enqueued),
		Finished:    atomic.LoadInt64(&p.finished),
		QueueDepth:  p.tr.Size(),
	}
}
