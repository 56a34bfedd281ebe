// Package bufpool implements the process-wide payload buffer pool and
// packet-node pool described in spec §5/§9: size-classed free lists with
// their own mutexes, flushed only after every queue and ring buffer that
// could be holding a borrowed buffer has been torn down.
package bufpool

import "sync"

// size classes, from a PING (0 bytes) up to 16 MiB, in a handful of
// buckets rather than one-bucket-per-length. Larger requests, such as a
// full 4096x4096 RGB frame (about 48 MiB; §3: width, height <= 4096), get
// an exact-size buffer and a bucket keyed by that size (see classFor).
var classes = []int{64, 256, 1024, 4096, 16384, 65536, 262144, 1 << 20, 4 << 20, 16 << 20}

// Pool is a size-classed free list of []byte buffers.
type Pool struct {
	mu      sync.Mutex
	buckets map[int][][]byte

	gets, puts, misses int64
}

// New creates an empty pool. Buffers are allocated lazily on first Get.
func New() *Pool {
	return &Pool{buckets: make(map[int][][]byte, len(classes))}
}

func classFor(n int) int {
	for _, c := range classes {
		if n <= c {
			return c
		}
	}
	return n
}

// Get returns a buffer with length n, reused from the pool when possible.
func (p *Pool) Get(n int) []byte {
	c := classFor(n)
	p.mu.Lock()
	p.gets++
	bucket := p.buckets[c]
	if len(bucket) == 0 {
		p.misses++
		p.mu.Unlock()
		return make([]byte, n, c)
	}
	buf := bucket[len(bucket)-1]
	p.buckets[c] = bucket[:len(bucket)-1]
	p.mu.Unlock()
	return buf[:n]
}

// Put returns a buffer to the pool for reuse. Callers must not touch buf
// after calling Put — ownership transfers back to the pool.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	c := cap(buf)
	p.mu.Lock()
	p.puts++
	p.buckets[c] = append(p.buckets[c], buf[:0])
	p.mu.Unlock()
}

// Stats reports lifetime counters, useful for the stats timer (spec 4.J.3).
func (p *Pool) Stats() (gets, puts, misses int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gets, p.puts, p.misses
}

// InUse reports how many Get calls have not yet been matched by a Put.
// A healthy shutdown drives this to zero once every queue and ring has
// released its buffers (spec §9).
func (p *Pool) InUse() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gets - p.puts
}

// Flush drops every pooled buffer. Call only after every queue and ring
// buffer backed by this pool has been destroyed.
func (p *Pool) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets = make(map[int][][]byte, len(classes))
}

// NodePool recycles the small queue-entry structs so steady-state
// enqueue/dequeue churn doesn't hit the allocator.
type NodePool[T any] struct {
	mu   sync.Mutex
	free []*T
	max  int
}

func NewNodePool[T any](max int) *NodePool[T] {
	return &NodePool[T]{max: max}
}

func (p *NodePool[T]) Get() *T {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return new(T)
	}
	n := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return n
}

func (p *NodePool[T]) Put(n *T) {
	if n == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) >= p.max {
		return
	}
	var zero T
	*n = zero
	p.free = append(p.free, n)
}

// Flush drops every pooled node.
func (p *NodePool[T]) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = nil
}
