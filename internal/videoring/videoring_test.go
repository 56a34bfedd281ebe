package videoring

import (
	"testing"
	"time"

	"github.com/n0remac/ascii-chat-server/internal/bufpool"
)

func TestCapacityRoundsToPowerOfTwo(t *testing.T) {
	r := New(10, nil)
	if r.Capacity() != 16 {
		t.Fatalf("capacity = %d, want 16", r.Capacity())
	}
}

func TestReadEmptyReturnsFalse(t *testing.T) {
	r := New(4, nil)
	if _, ok := r.ReadMultiFrame(); ok {
		t.Fatal("expected empty ring to return ok=false")
	}
}

func TestBelowThresholdReadsOldest(t *testing.T) {
	r := New(16, nil) // capacity 16; write 2 frames, occupancy/capacity = 0.125 <= 0.3
	r.WriteMultiFrame(1, []byte("a"), time.Now())
	r.WriteMultiFrame(1, []byte("b"), time.Now())
	f, ok := r.ReadMultiFrame()
	if !ok || string(f.Bytes) != "a" {
		t.Fatalf("got %q, ok=%v, want oldest frame \"a\"", f.Bytes, ok)
	}
	if r.Occupancy() != 1 {
		t.Fatalf("occupancy = %d, want 1", r.Occupancy())
	}
}

func TestDrainToLatestAboveThreshold(t *testing.T) {
	pool := bufpool.New()
	r := New(16, pool) // capacity 16; threshold crossed at occupancy > 4.8 -> 5
	n := 8
	for i := 0; i < n; i++ {
		payload := pool.Get(1)
		payload[0] = byte(i)
		r.WriteMultiFrame(1, payload, time.Now())
	}
	if pool.InUse() != int64(n) {
		t.Fatalf("InUse before read = %d, want %d", pool.InUse(), n)
	}

	f, ok := r.ReadMultiFrame()
	if !ok {
		t.Fatal("expected a frame")
	}
	if f.Bytes[0] != byte(n-1) {
		t.Fatalf("drained frame = %d, want newest write %d", f.Bytes[0], n-1)
	}
	if r.Occupancy() != 0 {
		t.Fatalf("occupancy after drain = %d, want 0 (8-1=7 <= drainMax 20)", r.Occupancy())
	}
	// n-1 frames were discarded and released; the returned one is still
	// owned by the caller, who must release it themselves after use.
	if pool.InUse() != 1 {
		t.Fatalf("InUse after drain = %d, want 1 (only the returned frame still outstanding)", pool.InUse())
	}
	pool.Put(f.Bytes)
	if pool.InUse() != 0 {
		t.Fatalf("InUse after caller release = %d, want 0", pool.InUse())
	}
}

func TestDrainCappedAtDrainMax(t *testing.T) {
	pool := bufpool.New()
	r := New(64, pool) // capacity 64
	n := 40
	for i := 0; i < n; i++ {
		payload := pool.Get(1)
		payload[0] = byte(i)
		r.WriteMultiFrame(1, payload, time.Now())
	}
	// occupancy=40, capacity=64, ratio=0.625>0.3 -> drains min(39,20)=20 extra
	// plus the one returned = 21 consumed, leaving 19 in the ring.
	f, ok := r.ReadMultiFrame()
	if !ok {
		t.Fatal("expected a frame")
	}
	if f.Bytes[0] != 20 {
		t.Fatalf("returned frame index = %d, want 20 (the 21st write)", f.Bytes[0])
	}
	if r.Occupancy() != n-21 {
		t.Fatalf("occupancy = %d, want %d", r.Occupancy(), n-21)
	}
	pool.Put(f.Bytes)
	if pool.InUse() != int64(n-21) {
		t.Fatalf("InUse = %d, want %d (remaining unread frames)", pool.InUse(), n-21)
	}
}

func TestFullRingOverwritesOldest(t *testing.T) {
	pool := bufpool.New()
	r := New(4, pool)
	for i := 0; i < 4; i++ {
		payload := pool.Get(1)
		payload[0] = byte(i)
		r.WriteMultiFrame(1, payload, time.Now())
	}
	payload := pool.Get(1)
	payload[0] = 99
	r.WriteMultiFrame(1, payload, time.Now()) // overwrites index 0
	if r.Occupancy() != 4 {
		t.Fatalf("occupancy = %d, want 4", r.Occupancy())
	}
}
