package output

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/Iron-Ham/svcdeck/internal/logging"
)

// mailbox is an unbounded FIFO in front of one sink, drained by its own
// goroutine. push never blocks on the sink.
type mailbox struct {
	id        uint64
	serviceID string // empty for aggregate sinks
	sink      Sink

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Chunk
	pending int // queued plus currently being delivered
	closed  bool
	done    chan struct{}
}

func newMailbox(id uint64, serviceID string, sink Sink) *mailbox {
	m := &mailbox{
		id:        id,
		serviceID: serviceID,
		sink:      sink,
		done:      make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) push(c Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.queue = append(m.queue, c)
	m.pending++
	m.cond.Broadcast()
}

// run delivers queued chunks in order until the mailbox is closed and empty.
func (m *mailbox) run(logger *logging.Logger) {
	defer close(m.done)

	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.closed {
			m.cond.Wait()
		}
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		batch := m.queue
		m.queue = nil
		m.mu.Unlock()

		for _, c := range batch {
			m.deliver(c, logger)
		}

		m.mu.Lock()
		m.pending -= len(batch)
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}

func (m *mailbox) deliver(c Chunk, logger *logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("output sink panicked",
				"subscription", m.id,
				"service", c.ServiceID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	m.sink.Deliver(c)
}

// flush blocks until everything pushed so far has been delivered.
func (m *mailbox) flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.pending > 0 && !m.closed {
		m.cond.Wait()
	}
}

// close lets the goroutine finish the queued chunks and then exit.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

// discard drops queued chunks and stops the goroutine.
func (m *mailbox) discard() {
	m.mu.Lock()
	m.pending -= len(m.queue)
	m.queue = nil
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
}
