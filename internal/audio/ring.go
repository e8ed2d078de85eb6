package audio

import (
	"fmt"
	"sync/atomic"
)

// Ring is a bounded single-producer/single-consumer ring buffer of int16
// samples. Exactly one goroutine may call Push and exactly one may call
// PopExact; under that topology no locks are needed. Head and tail are
// monotonically increasing, so occupancy is simply tail-head and no slot is
// wasted.
type Ring struct {
	buf []int16

	head atomic.Uint64 // consumer position
	tail atomic.Uint64 // producer position
}

// NewRing creates a ring holding up to capacity samples.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be positive, got %d", capacity)
	}

	return &Ring{buf: make([]int16, capacity)}, nil
}

// Cap returns the ring capacity in samples.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Len returns the number of samples currently buffered.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Free returns the remaining capacity in samples.
func (r *Ring) Free() int {
	return len(r.buf) - r.Len()
}

// Push writes as many samples as fit and returns the number written. It
// never blocks; the caller decides what a short write means (the producer
// treats it as a drop and accounts only the delivered count).
func (r *Ring) Push(samples []int16) int {
	head := r.head.Load()
	tail := r.tail.Load()

	free := len(r.buf) - int(tail-head)
	n := len(samples)
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	start := int(tail % uint64(len(r.buf)))
	copied := copy(r.buf[start:], samples[:n])
	if copied < n {
		copy(r.buf, samples[copied:n])
	}

	r.tail.Store(tail + uint64(n))
	return n
}

// PopExact removes exactly len(dst) samples into dst. It either succeeds
// fully or, when fewer samples are buffered, fails without consuming
// anything. A failure here means producer and consumer have desynchronized;
// callers treat it as an unrecoverable logic error, not a retry condition.
func (r *Ring) PopExact(dst []int16) error {
	head := r.head.Load()
	tail := r.tail.Load()

	occupied := int(tail - head)
	if occupied < len(dst) {
		return fmt.Errorf("ring underflow: need %d samples, have %d", len(dst), occupied)
	}

	start := int(head % uint64(len(r.buf)))
	copied := copy(dst, r.buf[start:])
	if copied < len(dst) {
		copy(dst[copied:], r.buf)
	}

	r.head.Store(head + uint64(len(dst)))
	return nil
}

// Skip discards n buffered samples, used when an utterance is dropped
// without transcription. Like PopExact it is all-or-nothing.
func (r *Ring) Skip(n int) error {
	head := r.head.Load()
	tail := r.tail.Load()

	if int(tail-head) < n {
		return fmt.Errorf("ring underflow: need %d samples, have %d", n, int(tail-head))
	}

	r.head.Store(head + uint64(n))
	return nil
}
