package transport

import (
	"sync"
	"sync/atomic"
)

// memoryTransport is an in-process unbounded queue. Producers append under a
// mutex; consumers share one condition variable and compete for the head of
// the queue, which gives competing-consumers delivery with per-producer FIFO.
type memoryTransport struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Message
	closed bool
}

// NewMemory creates an in-memory transport. It never rejects a consumer bind
// and its Size is exact.
func NewMemory() Transport {
	t := &memoryTransport{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Producer implements Transport. The transport itself is the send handle.
func (t *memoryTransport) Producer() Producer {
	return t
}

// Consumer implements Transport. Every consumer pulls from the same queue, so
// binding cannot fail.
func (t *memoryTransport) Consumer() (Consumer, error) {
	return &memoryConsumer{t: t}, nil
}

// memoryConsumer is a bind handle onto the shared queue. Messages are pulled
// rather than routed, so an abandoned handle cannot strand anything and Close
// only invalidates the handle itself.
type memoryConsumer struct {
	t      *memoryTransport
	closed int32 // Atomic flag
}

// Receive implements Consumer.
func (c *memoryConsumer) Receive() (Message, error) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return Message{}, ErrClosed
	}
	return c.t.receive()
}

// Close implements Consumer. Idempotent.
func (c *memoryConsumer) Close() error {
	atomic.StoreInt32(&c.closed, 1)
	return nil
}

// Send implements Producer. It appends and wakes one waiting consumer. The
// queue grows without bound, so Send never blocks.
func (t *memoryTransport) Send(msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.queue = append(t.queue, msg)
	t.cond.Signal()
	return nil
}

// receive blocks until a message is available or the transport is closed and
// drained. Messages enqueued before Close are still delivered, so a shutdown
// signal already in flight reaches its consumer.
func (t *memoryTransport) receive() (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.queue) == 0 {
		if t.closed {
			return Message{}, ErrClosed
		}
		t.cond.Wait()
	}
	msg := t.queue[0]
	t.queue[0] = Message{}
	t.queue = t.queue[1:]
	return msg, nil
}

// Size implements Transport.
func (t *memoryTransport) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Close implements Transport. Idempotent. Waiting consumers are woken; they
// drain the remaining queue and then observe ErrClosed.
func (t *memoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.cond.Broadcast()
	return nil
}
