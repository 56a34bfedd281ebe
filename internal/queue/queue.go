// Package queue implements the bounded packet queue described in spec
// 4.B: a FIFO of (header, payload, sender_id) tuples that never blocks a
// producer — it drops on overflow and fails closed on shutdown.
package queue

import (
	"errors"
	"sync"

	"github.com/n0remac/ascii-chat-server/internal/bufpool"
	"github.com/n0remac/ascii-chat-server/internal/wire"
)

// Result is the outcome of an Enqueue call.
type Result int

const (
	OK Result = iota
	Full
	Shutdown
)

// Entry is one queued packet, with explicit payload ownership.
type Entry struct {
	Type     wire.Type
	Payload  []byte
	SenderID uint32
	owned    bool // true if Payload was copied into a pool buffer we own
}

// Stats mirrors spec 4.B's get_stats().
type Stats struct {
	Enqueued, Dequeued, Dropped uint64
}

// node is one link in the queue's own singly-linked FIFO, recycled
// through a bufpool.NodePool (spec 4.B: "bounded by a max node-pool
// size... backed by a node pool") instead of letting container/list
// allocate and garbage-collect one element per enqueue.
type node struct {
	entry Entry
	next  *node
}

// Queue is a FIFO bounded by MaxEntries, backed by an optional process-
// global payload pool and a bounded pool of its own link nodes.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	head, tail *node
	len        int
	max        int
	pool       *bufpool.Pool
	nodes      *bufpool.NodePool[node]

	shutdown bool
	stats    Stats
}

// New creates a queue with room for maxEntries packets. pool may be nil,
// in which case Enqueue(copy=true) allocates directly. nodePoolMax bounds
// how many freed link nodes the queue keeps around for reuse rather than
// returning to the allocator; callers size it from clients.Config's
// VideoNodePool/AudioNodePool.
func New(maxEntries int, pool *bufpool.Pool, nodePoolMax int) *Queue {
	q := &Queue{max: maxEntries, pool: pool, nodes: bufpool.NewNodePool[node](nodePoolMax)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a packet. If copy is true, payload is duplicated into a
// pool-owned buffer (ownership transfers to the queue); otherwise the
// caller's slice is taken as-is and the caller must not mutate it after
// this call returns OK.
func (q *Queue) Enqueue(typ wire.Type, payload []byte, senderID uint32, copy_ bool) Result {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shutdown {
		return Shutdown
	}
	if q.len >= q.max {
		q.stats.Dropped++
		return Full
	}

	n := q.nodes.Get()
	n.entry = Entry{Type: typ, SenderID: senderID}
	if copy_ {
		var dst []byte
		if q.pool != nil {
			dst = q.pool.Get(len(payload))
		} else {
			dst = make([]byte, len(payload))
		}
		copy(dst, payload)
		n.entry.Payload = dst
		n.entry.owned = true
	} else {
		n.entry.Payload = payload
	}
	n.next = nil

	if q.tail == nil {
		q.head = n
		q.tail = n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.len++
	q.stats.Enqueued++
	q.cond.Signal()
	return OK
}

// TryDequeue returns the oldest entry without blocking, or ok=false if empty.
func (q *Queue) TryDequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.head
	if n == nil {
		return Entry{}, false
	}
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.len--
	q.stats.Dequeued++
	e := n.entry
	q.nodes.Put(n)
	return e, true
}

// Release returns an entry's payload to the pool, if the queue owns it
// (it was enqueued with copy=true and the queue has a pool). For any other
// entry it does nothing, so consumers may call it on every dequeued entry.
func (q *Queue) Release(e Entry) {
	if e.owned && q.pool != nil {
		q.pool.Put(e.Payload)
	}
}

// DrainAll dequeues and releases every remaining entry, leaving the
// queue empty. Called during client teardown so packets still in flight
// when a connection closes don't leak their pooled payload buffers
// (spec §9: "pool in-use driven to zero").
func (q *Queue) DrainAll() {
	for {
		e, ok := q.TryDequeue()
		if !ok {
			return
		}
		q.Release(e)
	}
}

// ErrShutdown indicates the queue has been shut down.
var ErrShutdown = errors.New("queue: shutdown")

// Shutdown marks the queue closed: future Enqueues fail, and any waiter
// parked in a blocking wait (not used by this queue's try-only consumers,
// but kept for parity with spec 4.B's "wakes any waiting consumer") wakes.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return
	}
	q.shutdown = true
	q.cond.Broadcast()
}

// IsShutdown reports whether Shutdown has been called.
func (q *Queue) IsShutdown() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shutdown
}

// Stats returns (enqueued, dequeued, dropped).
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Len reports the current occupancy, mainly for tests and stats.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.len
}
