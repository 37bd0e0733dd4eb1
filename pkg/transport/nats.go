package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NATSConfig configures the NATS-backed transport.
type NATSConfig struct {
	// URL is the NATS server URL, e.g. "nats://127.0.0.1:4222".
	// Default: nats.DefaultURL.
	URL string

	// Subject is the subject all messages travel on. Workers join one queue
	// group on it, so each message is delivered to exactly one of them.
	// Default: a fresh private subject under "threadpool.".
	Subject string

	// Name is an optional NATS connection name.
	Name string
}

// natsTransport carries messages over a NATS subject with one queue group.
//
// Jobs are closures and cannot cross the wire, so the payload is a kind byte
// plus a varint job id; the closure itself stays in a local registry keyed by
// that id. Producers and consumers must therefore share the process. What the
// backend buys over the in-memory queue is NATS delivery mechanics: server-side
// competing consumers, per-connection flow control, and an external view of
// the job stream for monitoring.
type natsTransport struct {
	nc      *nats.Conn
	subject string

	ctx    context.Context
	cancel context.CancelFunc
	closed int32 // Atomic flag

	mu     sync.Mutex
	nextID uint64
	jobs   map[uint64]Job
}

// NewNATS connects to NATS and creates a transport on cfg.Subject. The caller
// owns the returned transport; Close tears down the connection.
func NewNATS(cfg NATSConfig) (Transport, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, func(o *nats.Options) error {
		if cfg.Name != "" {
			o.Name = cfg.Name
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transport: connect %s: %w", url, err)
	}

	subject := cfg.Subject
	if subject == "" {
		subject = "threadpool." + uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &natsTransport{
		nc:      nc,
		subject: subject,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[uint64]Job),
	}, nil
}

// Producer implements Transport.
func (t *natsTransport) Producer() Producer {
	return t
}

// Consumer implements Transport. Each call opens a synchronous queue
// subscription; all of them share the subject as queue group, so messages are
// load-balanced across consumers. Pending limits are lifted because the queue
// contract is unbounded.
//
// The server routes each message to one member at publish time. A consumer
// that stops receiving must be closed, or messages routed to it are stranded.
func (t *natsTransport) Consumer() (Consumer, error) {
	if t.IsClosed() {
		return nil, ErrClosed
	}

	sub, err := t.nc.QueueSubscribeSync(t.subject, t.subject)
	if err != nil {
		return nil, fmt.Errorf("transport: subscribe %s: %w", t.subject, err)
	}
	if err := sub.SetPendingLimits(-1, -1); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("transport: set pending limits: %w", err)
	}

	return &natsConsumer{transport: t, sub: sub}, nil
}

// Send implements Producer. A terminate message is a bare kind byte; a job
// message registers the closure locally and publishes its id.
func (t *natsTransport) Send(msg Message) error {
	if t.IsClosed() {
		return ErrClosed
	}

	if msg.IsTerminate() {
		if err := t.nc.Publish(t.subject, []byte{byte(kindTerminate)}); err != nil {
			return fmt.Errorf("transport: publish terminate: %w", err)
		}
		return nil
	}

	id, ok := t.register(msg.Job())
	if !ok {
		return ErrClosed
	}
	payload := binary.AppendUvarint([]byte{byte(kindJob)}, id)
	if err := t.nc.Publish(t.subject, payload); err != nil {
		t.deregister(id)
		return fmt.Errorf("transport: publish job: %w", err)
	}
	return nil
}

// Size implements Transport. It counts registered, not yet delivered jobs,
// which trails the server's own pending count by at most the in-flight window.
func (t *natsTransport) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Close implements Transport. Idempotent. Blocked consumers are released via
// context cancellation; undelivered jobs are dropped with the registry.
func (t *natsTransport) Close() error {
	if !atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		return nil
	}

	t.cancel()
	_ = t.nc.Drain()
	t.nc.Close()

	t.mu.Lock()
	t.jobs = nil
	t.mu.Unlock()
	return nil
}

// IsClosed reports whether Close has been called.
func (t *natsTransport) IsClosed() bool {
	return atomic.LoadInt32(&t.closed) == 1
}

// register stores a job and returns its wire id. The registry is discarded on
// Close, so a send racing Close reports failure here rather than leaking the
// closure.
func (t *natsTransport) register(job Job) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.jobs == nil {
		return 0, false
	}
	t.nextID++
	id := t.nextID
	t.jobs[id] = job
	return id, true
}

func (t *natsTransport) deregister(id uint64) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if ok {
		delete(t.jobs, id)
	}
	return job, ok
}

type natsConsumer struct {
	transport *natsTransport
	sub       *nats.Subscription
	closed    int32 // Atomic flag
}

// Receive implements Consumer. It blocks on the subscription until a message
// arrives or the transport is closed.
func (c *natsConsumer) Receive() (Message, error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return Message{}, ErrClosed
	}
	nm, err := c.sub.NextMsgWithContext(c.transport.ctx)
	if err != nil {
		if c.transport.IsClosed() {
			return Message{}, ErrClosed
		}
		return Message{}, fmt.Errorf("transport: receive: %w", err)
	}
	return c.transport.decode(nm.Data)
}

// Close implements Consumer. Idempotent. It removes the subscription from the
// queue group and republishes whatever the server had already routed here, so
// the remaining consumers take over those messages. The Flush round-trip
// guarantees the unsubscribe is processed before the drain loop starts: by
// then every message ever sent to this subscription sits in its local pending
// buffer, and nothing new arrives while it drains.
func (c *natsConsumer) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if err := c.sub.Drain(); err != nil {
		return nil
	}
	_ = c.transport.nc.Flush()
	for {
		nm, err := c.sub.NextMsg(time.Millisecond)
		if err != nil {
			return nil
		}
		_ = c.transport.nc.Publish(c.transport.subject, nm.Data)
	}
}

func (t *natsTransport) decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, fmt.Errorf("transport: empty payload")
	}

	switch messageKind(data[0]) {
	case kindTerminate:
		return NewTerminate(), nil

	case kindJob:
		id, n := binary.Uvarint(data[1:])
		if n <= 0 {
			return Message{}, fmt.Errorf("transport: malformed job id")
		}
		job, ok := t.deregister(id)
		if !ok {
			return Message{}, fmt.Errorf("%w: %d", ErrUnknownJob, id)
		}
		return NewJob(job), nil

	default:
		return Message{}, fmt.Errorf("transport: unknown message kind %#x", data[0])
	}
}
