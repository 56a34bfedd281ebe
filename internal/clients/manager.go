package clients

import (
	"fmt"
	"io"
	"sync"

	"github.com/n0remac/ascii-chat-server/internal/audiomix"
	"github.com/n0remac/ascii-chat-server/internal/audioring"
	"github.com/n0remac/ascii-chat-server/internal/bufpool"
	"github.com/n0remac/ascii-chat-server/internal/logging"
	"github.com/n0remac/ascii-chat-server/internal/queue"
	"github.com/n0remac/ascii-chat-server/internal/videoring"
)

var log = logging.Tag("clients")

// Config bounds the manager's resource allocation per client (spec 4.H/4.C/4.D/4.B).
type Config struct {
	MaxClients    int
	VideoRingSize int // frames
	AudioRingSize int // samples
	OutQueueSize  int // packets

	// VideoNodePool/AudioNodePool bound how many freed queue.Queue link
	// nodes OutVideo/OutAudio each keep around for reuse (spec 4.B's
	// "max node-pool size").
	VideoNodePool int
	AudioNodePool int
}

func DefaultConfig() Config {
	return Config{
		MaxClients:    32,
		VideoRingSize: 8,
		AudioRingSize: 48000, // 1s @ 48kHz mono
		OutQueueSize:  64,
		VideoNodePool: 64,
		AudioNodePool: 64,
	}
}

// Manager is the global client registry of spec 4.H: a fixed-capacity
// slot array plus an id->record map, guarded by a readers-writer lock.
type Manager struct {
	cfg   Config
	pool  *bufpool.Pool
	mixer *audiomix.Mixer

	mu      sync.RWMutex
	slots   []*Record // len == cfg.MaxClients; nil == free
	byID    map[uint32]*Record
	nextID  uint32
	count   int

	// OnConnect/OnDisconnect are optional audit hooks (internal/store),
	// invoked outside the manager lock after the corresponding state
	// change has been published.
	OnConnect    func(rec *Record)
	OnDisconnect func(rec *Record)
}

// NewManager creates an empty manager. pool and mixer may be shared
// process-wide singletons (spec §9).
func NewManager(cfg Config, pool *bufpool.Pool, mixer *audiomix.Mixer) *Manager {
	return &Manager{
		cfg:   cfg,
		pool:  pool,
		mixer: mixer,
		slots: make([]*Record, cfg.MaxClients),
		byID:  make(map[uint32]*Record),
	}
}

// ErrFull is returned when every slot is occupied.
var ErrFull = fmt.Errorf("clients: manager full")

// AddClient allocates a slot, assigns a monotonic non-zero id, creates
// every owned subresource, registers the client's audio ring with the
// mixer, and publishes it into the id->record map — all while holding
// the writer's lock, which is released before the caller starts threads
// (spec 4.H). Any failure mid-allocation rolls back everything it did.
func (m *Manager) AddClient(peerAddr string, port int, conn io.Closer) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := -1
	for i, s := range m.slots {
		if s == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, ErrFull
	}

	id := m.allocateID()
	rec := newRecord(id, peerAddr, port, conn)

	rec.VideoRing = videoring.New(m.cfg.VideoRingSize, m.pool)
	rec.AudioRing = audioring.New(m.cfg.AudioRingSize)
	rec.OutVideo = queue.New(m.cfg.OutQueueSize, m.pool, m.cfg.VideoNodePool)
	rec.OutAudio = queue.New(m.cfg.OutQueueSize, m.pool, m.cfg.AudioNodePool)

	rec.Active.Store(true)

	if m.mixer != nil {
		m.mixer.AddSource(id, rec.AudioRing)
	}

	m.slots[slot] = rec
	m.byID[id] = rec
	m.count++

	if m.OnConnect != nil {
		m.OnConnect(rec)
	}
	return rec, nil
}

// allocateID returns the next non-zero monotonic id (spec §3: "client_id
// == 0 iff slot is free"; spec testable property 6: ids strictly
// increase even across slot reuse).
func (m *Manager) allocateID() uint32 {
	m.nextID++
	if m.nextID == 0 {
		m.nextID = 1
	}
	return m.nextID
}

// FindByID is the O(1) lookup of spec 4.H.
func (m *Manager) FindByID(id uint32) (*Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	return r, ok
}

// findByIDLinear is the debug-check linear scan spec 4.H calls for.
func (m *Manager) findByIDLinear(id uint32) (*Record, bool) {
	for _, s := range m.slots {
		if s != nil && s.ClientID == id {
			return s, true
		}
	}
	return nil, false
}

// Enumerate returns a snapshot slice of every active record, for
// fan-out enumeration (compositor, stats) under the readers' lock (spec
// §5). Render threads must never hold the manager lock themselves;
// they call Enumerate once per tick and then work off the snapshot.
func (m *Manager) Enumerate() []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, m.count)
	for _, s := range m.slots {
		if s != nil && s.Active.Load() {
			out = append(out, s)
		}
	}
	return out
}

// Count reports the number of occupied slots (spec §3: "client_count").
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// ActiveCount reports the number of slots whose record is still active.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.slots {
		if s != nil && s.Active.Load() {
			n++
		}
	}
	return n
}

// ReapInactive finds every record whose receive thread has cleared
// active (spec 4.J item 2: "scan for records with active == false and
// reap them") and removes it. Returns the number reaped.
func (m *Manager) ReapInactive() int {
	m.mu.RLock()
	var targets []uint32
	for _, s := range m.slots {
		if s != nil && !s.Active.Load() {
			targets = append(targets, s.ClientID)
		}
	}
	m.mu.RUnlock()

	for _, id := range targets {
		m.RemoveClient(id, false)
	}
	return len(targets)
}

// AllIDs returns every currently occupied slot's client id, for the
// shutdown drain of spec 4.J item 4 ("iterate the manager reaping every
// non-zero slot").
func (m *Manager) AllIDs() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uint32, 0, m.count)
	for _, s := range m.slots {
		if s != nil {
			out = append(out, s.ClientID)
		}
	}
	return out
}

// RemoveClient implements spec 4.H's remove_client: mark inactive, close
// the socket (unblocking the receive thread), shut down the two packet
// queues, join every thread in order {receive (unless calledFromReceive),
// send, video-render, audio-render}, then release subresources and free
// the slot. calledFromReceive must be true when invoked from within the
// client's own receive thread, so it does not wait on itself.
func (m *Manager) RemoveClient(id uint32, calledFromReceive bool) {
	m.mu.Lock()
	rec, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	rec.Active.Store(false)
	m.mu.Unlock()

	if rec.Conn != nil {
		_ = rec.Conn.Close()
	}
	rec.OutVideo.Shutdown()
	rec.OutAudio.Shutdown()

	if !calledFromReceive {
		rec.WaitThreadDone(ThreadReceive)
	}
	rec.WaitThreadDone(ThreadSend)
	rec.WaitThreadDone(ThreadVideoRender)
	rec.WaitThreadDone(ThreadAudioRender)

	// Every thread that could still be producing into these has exited,
	// so any buffered payload left behind is now unreachable and must be
	// released back to the pool before the slot is freed (spec §9: "pool
	// in-use driven to zero").
	rec.VideoRing.DrainAll()
	rec.OutVideo.DrainAll()
	rec.OutAudio.DrainAll()

	m.mu.Lock()
	if m.mixer != nil {
		m.mixer.RemoveSource(id)
	}
	for i, s := range m.slots {
		if s == rec {
			m.slots[i] = nil
			break
		}
	}
	delete(m.byID, id)
	m.count--
	remaining := m.count
	m.mu.Unlock()

	log.Infof("removed client %d (%s:%d), %d remaining", id, rec.PeerAddress, rec.Port, remaining)
	if m.OnDisconnect != nil {
		m.OnDisconnect(rec)
	}
}
