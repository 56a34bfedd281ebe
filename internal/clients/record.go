// Package clients implements the client record and global client manager
// of spec 4.H: a per-client state bundle plus a fixed-capacity registry
// guarded by a readers-writer lock.
package clients

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/n0remac/ascii-chat-server/internal/audioring"
	"github.com/n0remac/ascii-chat-server/internal/palette"
	"github.com/n0remac/ascii-chat-server/internal/queue"
	"github.com/n0remac/ascii-chat-server/internal/videoring"
	"github.com/n0remac/ascii-chat-server/internal/wire"
)

// ThreadKind names the four per-client threads of spec 4.I, in the join
// order spec 4.H's remove_client requires.
type ThreadKind int

const (
	ThreadReceive ThreadKind = iota
	ThreadSend
	ThreadVideoRender
	ThreadAudioRender
	threadCount
)

// Record is one active connection's full state bundle (spec §3).
type Record struct {
	// immutable for lifetime
	ClientID    uint32
	PeerAddress string
	Port        int
	ConnectedAt time.Time
	Conn        io.Closer // unblocks the receive thread when closed

	// AuditID is the internal/store correlation id for this connection's
	// audit-log row, set by Manager.OnConnect before the client's threads
	// start; empty when no store is configured.
	AuditID string

	// negotiated once, and derived state — guarded by StateMu (spec §3:
	// "mutated only by the owning client's receive thread... under the
	// record's local mutex").
	StateMu        sync.Mutex
	DisplayName    string
	CanSendVideo   bool
	CanSendAudio   bool
	WantsColor     bool
	WantsStretch   bool
	TermCaps       wire.TerminalCaps
	CapsNegotiated bool
	Palette        *palette.Palette // nil until CapsNegotiated

	// mutable session state
	IsSendingVideo atomic.Bool
	IsSendingAudio atomic.Bool
	Active         atomic.Bool
	FramesReceived atomic.Uint64
	FramesSent     atomic.Uint64

	// SentFirstFrame gates the one-time CLEAR_CONSOLE control packet a
	// freshly negotiated client receives just before its first ASCII_FRAME.
	SentFirstFrame atomic.Bool

	// owned subresources, created before publication, torn down only
	// after every thread below has exited.
	VideoRing *videoring.Ring
	AudioRing *audioring.Ring
	OutVideo  *queue.Queue
	OutAudio  *queue.Queue

	CachedFrameMu sync.Mutex
	CachedFrame   *palette.Image

	done [threadCount]chan struct{}
}

func newRecord(id uint32, peerAddr string, port int, conn io.Closer) *Record {
	r := &Record{
		ClientID:    id,
		PeerAddress: peerAddr,
		Port:        port,
		ConnectedAt: time.Now(),
		Conn:        conn,
	}
	for i := range r.done {
		r.done[i] = make(chan struct{})
	}
	return r
}

// MarkThreadDone signals that one of the four per-client threads has
// exited; RemoveClient waits on these before tearing down subresources
// (spec 4.H).
func (r *Record) MarkThreadDone(kind ThreadKind) {
	select {
	case <-r.done[kind]:
		// already closed; MarkThreadDone must be idempotent for threads
		// that exit via more than one code path.
	default:
		close(r.done[kind])
	}
}

// WaitThreadDone blocks until the given thread has exited.
func (r *Record) WaitThreadDone(kind ThreadKind) {
	<-r.done[kind]
}

// SnapshotCaps returns a copy of the negotiated capability state, safe to
// use from a render thread without holding StateMu across the whole tick
// (spec §5: "visible to that client's render threads by their next
// snapshot").
func (r *Record) SnapshotCaps() (caps wire.TerminalCaps, pal *palette.Palette, ready bool) {
	r.StateMu.Lock()
	defer r.StateMu.Unlock()
	return r.TermCaps, r.Palette, r.CapsNegotiated
}

// SetCachedFrame stores a validated decoded frame for use when the
// source has no fresh frame this tick (spec 4.F step 1).
func (r *Record) SetCachedFrame(img *palette.Image) {
	r.CachedFrameMu.Lock()
	r.CachedFrame = img
	r.CachedFrameMu.Unlock()
}

// GetCachedFrame returns the last validated frame, or nil.
func (r *Record) GetCachedFrame() *palette.Image {
	r.CachedFrameMu.Lock()
	defer r.CachedFrameMu.Unlock()
	return r.CachedFrame
}
