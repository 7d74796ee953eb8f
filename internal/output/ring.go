package output

import "sync"

// RingBuffer is a thread-safe circular buffer holding the most recent N
// bytes written to it. Older bytes are overwritten once it is full.
//
// The buffer keeps two positions: start (oldest byte) and end (next write).
// With a 5-byte buffer:
//
//	Write "abc": [a, b, c, _, _]  start=0, end=3
//	Write "de":  [a, b, c, d, e]  start=0, end=0, full
//	Write "fg":  [f, g, c, d, e]  start=2, end=2 → Bytes() returns "cdefg"
//
// RingBuffer implements io.Writer.
type RingBuffer struct {
	mu    sync.RWMutex
	data  []byte
	start int
	end   int
	full  bool
}

// NewRingBuffer creates a ring buffer with the given capacity in bytes.
// A capacity below one is raised to one.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{data: make([]byte, max(size, 1))}
}

// Write appends p, overwriting the oldest bytes when needed.
// It always returns len(p), nil.
func (r *RingBuffer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(p)
	size := len(r.data)
	if n >= size {
		// Only the last size bytes survive.
		copy(r.data, p[n-size:])
		r.start, r.end, r.full = 0, 0, true
		return n, nil
	}

	free := size - r.len()
	first := copy(r.data[r.end:], p)
	copy(r.data, p[first:])
	r.end = (r.end + n) % size

	if n >= free {
		r.full = true
		r.start = r.end
	}
	return n, nil
}

// Bytes returns a copy of the buffered data, oldest first.
func (r *RingBuffer) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]byte, 0, r.len())
	if r.full || r.end < r.start {
		out = append(out, r.data[r.start:]...)
		return append(out, r.data[:r.end]...)
	}
	return append(out, r.data[r.start:r.end]...)
}

// Len returns the number of bytes currently stored.
func (r *RingBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.len()
}

// Cap returns the buffer capacity in bytes.
func (r *RingBuffer) Cap() int {
	return len(r.data)
}

func (r *RingBuffer) len() int {
	switch {
	case r.full:
		return len(r.data)
	case r.end >= r.start:
		return r.end - r.start
	default:
		return len(r.data) - r.start + r.end
	}
}

// Reset discards all stored data and keeps the allocation.
func (r *RingBuffer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start, r.end, r.full = 0, 0, false
}
