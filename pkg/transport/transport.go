// Package transport defines the queue contract between job producers and pool
// workers, together with the message protocol carried over it.
//
// A Transport is an unbounded multi-producer/multi-consumer queue with
// competing-consumers delivery: every message is delivered to exactly one
// consumer. Two backends are provided: an in-memory queue (NewMemory) and a
// NATS-backed queue (NewNATS). The pool treats the queue as a collaborator and
// only relies on the contract below, so further backends can be plugged in.
package transport

import "errors"

var (
	// ErrClosed is returned by Send and Receive once the transport is closed.
	ErrClosed = errors.New("transport: closed")

	// ErrUnknownJob is returned by a Receive that decoded a job message whose
	// job is not registered locally. It indicates a corrupted stream, e.g. a
	// foreign producer publishing on a private subject.
	ErrUnknownJob = errors.New("transport: unknown job id")
)

// Job is a zero-argument unit of work. A Job is invoked exactly once, by the
// single consumer its message was delivered to; ownership passes from the
// submitting caller to the message and from the message to that consumer.
type Job func()

type messageKind uint8

const (
	kindJob messageKind = iota + 1
	kindTerminate
)

// Message is the unit carried over a Transport: either a job wrapper or a
// terminate signal. A Message is immutable once constructed; the only way to
// build one is NewJob or NewTerminate.
type Message struct {
	kind messageKind
	job  Job
}

// NewJob wraps a job for transport.
func NewJob(job Job) Message {
	return Message{kind: kindJob, job: job}
}

// NewTerminate builds the shutdown signal. A consumer that receives it must
// stop receiving; terminate messages compete with job messages in the same
// queue, there is no priority between them.
func NewTerminate() Message {
	return Message{kind: kindTerminate}
}

// IsTerminate reports whether the message is the shutdown signal.
func (m Message) IsTerminate() bool {
	return m.kind == kindTerminate
}

// Job returns the wrapped job, or nil for a terminate message.
func (m Message) Job() Job {
	return m.job
}

// Producer is the send side of a Transport. Producer handles are cheap, may be
// shared freely and are safe for concurrent use; a Send never blocks waiting
// for queue space (the queue is unbounded).
type Producer interface {
	// Send enqueues one message. Returns ErrClosed (possibly wrapped) once the
	// transport is closed. A nil error means enqueued, not delivered.
	Send(msg Message) error
}

// Consumer is one bound handle onto the shared receive side of a Transport.
// All consumers of a transport compete for the same messages.
//
// A consumer that stops receiving must be closed. Backends that route
// messages to consumers at delivery time (NATS) re-home anything already
// routed to the closed consumer onto the surviving ones; skipping Close can
// strand those messages.
type Consumer interface {
	// Receive blocks until a message is delivered to this consumer. After
	// the transport is closed, queued messages are still drained; once the
	// queue is empty Receive returns ErrClosed (possibly wrapped).
	Receive() (Message, error)

	// Close unbinds the consumer. Idempotent. Receiving after Close returns
	// ErrClosed. Closing a consumer does not close the transport.
	Close() error
}

// Transport is an unbounded MPMC queue. Delivery is per-producer FIFO into a
// single logical queue; each message reaches exactly one consumer.
type Transport interface {
	// Producer returns a send handle. Handles remain valid until Close.
	Producer() Producer

	// Consumer binds a new consumer to the shared queue. Binding can fail on
	// backends that allocate per-consumer resources (e.g. a NATS
	// subscription); the in-memory backend never fails.
	Consumer() (Consumer, error)

	// Size reports the number of undelivered messages. Exact for the
	// in-memory backend; best effort on distributed ones, which may only
	// account for jobs.
	Size() int

	// Close tears the queue down. Idempotent. Subsequent Sends fail and
	// consumers unblock with ErrClosed once drained.
	Close() error
}
