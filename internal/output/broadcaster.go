package output

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/Iron-Ham/svcdeck/internal/logging"
)

// DefaultTailBytes is the per-service tail size used when none is configured.
const DefaultTailBytes = 64 * 1024

// Stream identifies which pipe a chunk was read from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// Chunk is one piece of output captured from a service.
type Chunk struct {
	ServiceID string
	Stream    Stream
	Data      []byte
	Time      time.Time
}

// Sink receives chunks. Deliver is called from a goroutine owned by the
// sink's subscription, one chunk at a time, in publish order.
type Sink interface {
	Deliver(Chunk)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Chunk)

// Deliver calls f(c).
func (f SinkFunc) Deliver(c Chunk) { f(c) }

// Subscription identifies a registered sink.
type Subscription struct {
	id        uint64
	serviceID string
	aggregate bool
}

// Valid reports whether s was returned by Subscribe or SubscribeAll.
func (s Subscription) Valid() bool { return s.id != 0 }

// Broadcaster fans service output out to per-service and aggregate sinks.
//
// Publish appends to each matching sink's mailbox under a single lock, so
// every sink sees chunks in publish order and an aggregate sink sees each
// service's chunks in the same relative order as that service's own sinks.
// A slow sink only delays itself. Sinks are drained independently, so
// there is no order between sinks: a per-service sink may receive a chunk
// after the aggregate sink has.
type Broadcaster struct {
	mu         sync.Mutex
	perService map[string][]*mailbox
	aggregate  []*mailbox
	tails      map[string]*RingBuffer
	tailBytes  int
	nextID     uint64
	closed     bool

	logger *logging.Logger
}

// NewBroadcaster creates a Broadcaster keeping tailBytes of recent output per
// service. A tailBytes of zero or less disables the tail.
func NewBroadcaster(tailBytes int, logger *logging.Logger) *Broadcaster {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Broadcaster{
		perService: make(map[string][]*mailbox),
		tails:      make(map[string]*RingBuffer),
		tailBytes:  tailBytes,
		logger:     logger.WithComponent("output"),
	}
}

// Subscribe registers sink for chunks published under serviceID.
// It returns an invalid Subscription once the broadcaster is closed.
func (b *Broadcaster) Subscribe(serviceID string, sink Sink) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Subscription{}
	}
	m := b.newMailboxLocked(serviceID, sink)
	b.perService[serviceID] = append(b.perService[serviceID], m)
	return Subscription{id: m.id, serviceID: serviceID}
}

// SubscribeAll registers sink for chunks from every service.
func (b *Broadcaster) SubscribeAll(sink Sink) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Subscription{}
	}
	m := b.newMailboxLocked("", sink)
	b.aggregate = append(b.aggregate, m)
	return Subscription{id: m.id, aggregate: true}
}

func (b *Broadcaster) newMailboxLocked(serviceID string, sink Sink) *mailbox {
	b.nextID++
	m := newMailbox(b.nextID, serviceID, sink)
	go m.run(b.logger)
	return m
}

// Unsubscribe removes a subscription. Chunks still queued for it are
// dropped. Returns false if the subscription is unknown.
func (b *Broadcaster) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed *mailbox
	if sub.aggregate {
		b.aggregate, removed = removeMailbox(b.aggregate, sub.id)
	} else {
		var rest []*mailbox
		rest, removed = removeMailbox(b.perService[sub.serviceID], sub.id)
		if len(rest) == 0 {
			delete(b.perService, sub.serviceID)
		} else {
			b.perService[sub.serviceID] = rest
		}
	}
	if removed == nil {
		return false
	}
	removed.discard()
	return true
}

// removeMailbox returns a new slice without the mailbox with the given id.
// Slices are never edited in place.
func removeMailbox(list []*mailbox, id uint64) ([]*mailbox, *mailbox) {
	for i, m := range list {
		if m.id != id {
			continue
		}
		next := make([]*mailbox, 0, len(list)-1)
		next = append(next, list[:i]...)
		return append(next, list[i+1:]...), m
	}
	return list, nil
}

// Publish delivers c to the sinks for serviceID, then to aggregate sinks.
// It never waits on a sink. The chunk's ServiceID is set to serviceID.
func (b *Broadcaster) Publish(serviceID string, c Chunk) {
	c.ServiceID = serviceID
	if c.Time.IsZero() {
		c.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	if b.tailBytes > 0 {
		tail, ok := b.tails[serviceID]
		if !ok {
			tail = NewRingBuffer(b.tailBytes)
			b.tails[serviceID] = tail
		}
		_, _ = tail.Write(c.Data)
	}

	for _, m := range b.perService[serviceID] {
		m.push(c)
	}
	for _, m := range b.aggregate {
		m.push(c)
	}
}

// Tail returns a copy of the most recent output published for serviceID.
func (b *Broadcaster) Tail(serviceID string) []byte {
	b.mu.Lock()
	tail := b.tails[serviceID]
	b.mu.Unlock()

	if tail == nil {
		return nil
	}
	return tail.Bytes()
}

// Services returns the sorted IDs of every service that has published output.
func (b *Broadcaster) Services() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.tails))
	for id := range b.tails {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResetTail discards the stored tail for serviceID, e.g. before a restart.
func (b *Broadcaster) ResetTail(serviceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tail := b.tails[serviceID]; tail != nil {
		tail.Reset()
	}
}

// Writer returns an io.Writer that publishes each Write as one chunk for
// serviceID on the given stream. The written bytes are copied.
func (b *Broadcaster) Writer(serviceID string, stream Stream) io.Writer {
	return &serviceWriter{b: b, serviceID: serviceID, stream: stream}
}

type serviceWriter struct {
	b         *Broadcaster
	serviceID string
	stream    Stream
}

func (w *serviceWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data := make([]byte, len(p))
	copy(data, p)
	w.b.Publish(w.serviceID, Chunk{Stream: w.stream, Data: data})
	return len(p), nil
}

// Flush blocks until every chunk published before the call has been
// delivered. It must not be called from inside a sink.
func (b *Broadcaster) Flush() {
	for _, m := range b.mailboxes() {
		m.flush()
	}
}

// Close delivers what is queued, stops every delivery goroutine and
// rejects further publishes and subscriptions. It is idempotent.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	boxes := b.mailboxesLocked()
	b.perService = make(map[string][]*mailbox)
	b.aggregate = nil
	b.mu.Unlock()

	for _, m := range boxes {
		m.close()
	}
	for _, m := range boxes {
		<-m.done
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	return len(b.mailboxes())
}

func (b *Broadcaster) mailboxes() []*mailbox {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mailboxesLocked()
}

func (b *Broadcaster) mailboxesLocked() []*mailbox {
	boxes := make([]*mailbox, 0, len(b.aggregate))
	for _, list := range b.perService {
		boxes = append(boxes, list...)
	}
	return append(boxes, b.aggregate...)
}
