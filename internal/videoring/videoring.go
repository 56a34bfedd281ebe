// Package videoring implements the multi-frame video ring buffer of spec
// 4.C: a single-producer/single-consumer ring of frame records with a
// drain-to-latest read policy, so the render thread absorbs network
// jitter without ever accumulating steady-state latency.
package videoring

import (
	"sync"
	"time"

	"github.com/n0remac/ascii-chat-server/internal/bufpool"
)

// Frame is one ring entry (spec 4.C: "{magic, source_id, sequence,
// timestamp, size, bytes}").
type Frame struct {
	SourceID  uint32
	Sequence  uint64
	Timestamp time.Time
	Bytes     []byte // owned: caller must Release via the ring's pool
}

// drainThreshold and drainMax implement spec 4.C's drain policy: drain
// when occupancy/capacity > 0.3, discarding the min(occupancy-1, 20)
// oldest frames before returning the next one.
const (
	drainThreshold = 0.3
	drainMax       = 20
)

// Ring is a power-of-two-sized SPSC ring of Frames, guarded by its own
// mutex so the render thread may read concurrently with the receive
// thread's writes (spec 4.C).
type Ring struct {
	mu       sync.Mutex
	buf      []Frame
	capacity int
	head     int // next write index
	tail     int // next read index
	count    int
	nextSeq  uint64

	pool *bufpool.Pool
}

// New creates a ring whose capacity is rounded up to the next power of two.
func New(capacity int, pool *bufpool.Pool) *Ring {
	c := nextPow2(capacity)
	return &Ring{buf: make([]Frame, c), capacity: c, pool: pool}
}

func nextPow2(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Capacity returns the ring's fixed capacity.
func (r *Ring) Capacity() int {
	return r.capacity
}

// Occupancy returns the current number of unread frames.
func (r *Ring) Occupancy() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// WriteMultiFrame appends one frame, overwriting the oldest unread frame
// if the ring is full (the ring itself never blocks a producer; the
// drain policy on the read side is what actually bounds latency).
func (r *Ring) WriteMultiFrame(sourceID uint32, bytes []byte, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == r.capacity {
		// Ring is full: drop the oldest frame to make room.
		old := r.buf[r.tail]
		if old.Bytes != nil && r.pool != nil {
			r.pool.Put(old.Bytes)
		}
		r.tail = (r.tail + 1) % r.capacity
		r.count--
	}

	r.nextSeq++
	r.buf[r.head] = Frame{
		SourceID:  sourceID,
		Sequence:  r.nextSeq,
		Timestamp: ts,
		Bytes:     bytes,
	}
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// DrainAll releases every frame still buffered in the ring back to the
// pool, leaving it empty. Called during client teardown so a frame that
// arrived but was never rendered doesn't leak its pooled buffer (spec
// §9: "pool in-use driven to zero").
func (r *Ring) DrainAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.count > 0 {
		f := r.buf[r.tail]
		r.buf[r.tail] = Frame{}
		r.tail = (r.tail + 1) % r.capacity
		r.count--
		if f.Bytes != nil && r.pool != nil {
			r.pool.Put(f.Bytes)
		}
	}
}

// ReadMultiFrame implements spec 4.C's drain-to-latest policy: if
// occupancy/capacity > 0.3, it discards the min(occupancy-1, 20) oldest
// frames, releasing their bytes back to the pool, and returns the frame
// after them. That is the newest frame when occupancy-1 <= 20; with a
// larger backlog it is the 21st-oldest, and the rest stay buffered for
// later reads. Otherwise it returns just the single oldest unread
// frame (no drain needed). Returns ok=false if the ring is empty.
func (r *Ring) ReadMultiFrame() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return Frame{}, false
	}

	ratio := float64(r.count) / float64(r.capacity)
	if ratio <= drainThreshold {
		f := r.buf[r.tail]
		r.buf[r.tail] = Frame{}
		r.tail = (r.tail + 1) % r.capacity
		r.count--
		return f, true
	}

	toRead := r.count - 1
	if toRead > drainMax {
		toRead = drainMax
	}
	var latest Frame
	for i := 0; i <= toRead; i++ {
		f := r.buf[r.tail]
		r.buf[r.tail] = Frame{}
		r.tail = (r.tail + 1) % r.capacity
		r.count--
		if i < toRead {
			// skipped frame: release its bytes back to the pool.
			if f.Bytes != nil && r.pool != nil {
				r.pool.Put(f.Bytes)
			}
		} else {
			latest = f
		}
	}
	return latest, true
}
