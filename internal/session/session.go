// Package session implements the four per-client threads of spec 4.I:
// receive, send, video-render, and audio-render, each a long-lived
// goroutine bound to one client.Record, communicating through the
// record's own subresources and fine-grained locks. The one use of the
// manager's readers-writer lock is the video-render thread's once-per-tick
// Manager.Enumerate snapshot, which takes and releases the readers' lock
// inside that call.
package session

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"

	"github.com/n0remac/ascii-chat-server/internal/audiomix"
	"github.com/n0remac/ascii-chat-server/internal/bufpool"
	"github.com/n0remac/ascii-chat-server/internal/clients"
	"github.com/n0remac/ascii-chat-server/internal/compositor"
	"github.com/n0remac/ascii-chat-server/internal/logging"
	"github.com/n0remac/ascii-chat-server/internal/palette"
	"github.com/n0remac/ascii-chat-server/internal/wire"
)

var log = logging.Tag("session")

// Paces for the two render threads (spec 4.I).
const (
	VideoRenderHz   = 60
	AudioBatchSize  = 256
	AudioSampleRate = 48000
)

var videoTick = time.Second / time.Duration(VideoRenderHz)
var audioTick = time.Second * time.Duration(AudioBatchSize) / time.Duration(AudioSampleRate)

// Session binds one connected client's I/O and render loops together.
type Session struct {
	Record  *clients.Record
	Manager *clients.Manager
	Mixer   *audiomix.Mixer
	Pool    *bufpool.Pool
	Conn    io.ReadWriteCloser

	// Done is closed by the server on shutdown, waking every interruptible
	// sleep in this session's threads (spec §5/§9: signal-handler
	// minimalism — only a flag flip and a broadcast happen here).
	Done <-chan struct{}
}

// Start launches the four per-client threads. The caller is expected to
// have already published Record into the Manager (spec 4.H: "released
// before starting threads").
func (s *Session) Start() {
	go s.receiveLoop()
	go s.sendLoop()
	go s.videoRenderLoop()
	go s.audioRenderLoop()
}

func (s *Session) shuttingDown() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}

// receiveLoop implements spec 4.I's receive thread.
func (s *Session) receiveLoop() {
	defer s.Record.MarkThreadDone(clients.ThreadReceive)
	for {
		pkt, err := wire.Receive(s.Conn, s.Pool)
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.shuttingDown() {
				log.Infof("client %d: receive error: %v", s.Record.ClientID, err)
			}
			s.Record.Active.Store(false)
			return
		}
		s.dispatch(pkt)
		pkt.Release()
		if s.shuttingDown() {
			return
		}
	}
}

func (s *Session) dispatch(pkt *wire.Packet) {
	rec := s.Record
	switch pkt.Type {
	case wire.TypeClientJoin:
		j, err := wire.DecodeClientJoin(pkt.Payload)
		if err != nil {
			log.Infof("client %d: bad CLIENT_JOIN: %v", rec.ClientID, err)
			return
		}
		rec.StateMu.Lock()
		rec.DisplayName = j.DisplayName
		rec.CanSendVideo = j.Capabilities&wire.CapVideo != 0
		rec.CanSendAudio = j.Capabilities&wire.CapAudio != 0
		rec.WantsColor = j.Capabilities&wire.CapColor != 0
		rec.WantsStretch = j.Capabilities&wire.CapStretch != 0
		rec.StateMu.Unlock()

	case wire.TypeStreamStart:
		if len(pkt.Payload) < 4 {
			return
		}
		bits := beUint32(pkt.Payload)
		if bits&wire.StreamVideo != 0 {
			rec.IsSendingVideo.Store(true)
		}
		if bits&wire.StreamAudio != 0 {
			rec.IsSendingAudio.Store(true)
		}

	case wire.TypeStreamStop:
		if len(pkt.Payload) < 4 {
			return
		}
		bits := beUint32(pkt.Payload)
		if bits&wire.StreamVideo != 0 {
			rec.IsSendingVideo.Store(false)
		}
		if bits&wire.StreamAudio != 0 {
			rec.IsSendingAudio.Store(false)
		}

	case wire.TypeImageFrame:
		if _, _, err := wire.ValidateImageFrame(pkt.Payload); err != nil {
			log.Infof("client %d: rejected IMAGE_FRAME: %v", rec.ClientID, err)
			return
		}
		owned := s.Pool.Get(len(pkt.Payload))
		copy(owned, pkt.Payload)
		rec.VideoRing.WriteMultiFrame(rec.ClientID, owned, time.Now())
		rec.FramesReceived.Add(1)

	case wire.TypeAudioBatch:
		_, samples, err := wire.ValidateAudioBatch(pkt.Payload)
		if err != nil {
			log.Infof("client %d: rejected AUDIO_BATCH: %v", rec.ClientID, err)
			return
		}
		rec.AudioRing.Write(samples)

	case wire.TypeAudioLegacy:
		samples := bytesToFloat32LE(pkt.Payload)
		rec.AudioRing.Write(samples)

	case wire.TypeClientCapabilities:
		caps, err := wire.DecodeTerminalCaps(pkt.Payload)
		if err != nil {
			log.Infof("client %d: bad CLIENT_CAPABILITIES: %v", rec.ClientID, err)
			return
		}
		s.negotiateCapabilities(caps)

	case wire.TypePing:
		rec.OutVideo.Enqueue(wire.TypePong, nil, 0, true)

	default:
		log.Infof("client %d: dropping unknown packet type %v", rec.ClientID, pkt.Type)
	}
}

// negotiateCapabilities updates terminal caps and rebuilds the palette
// LUT (spec 4.I: "recomputes palette LUT"). Rebuilding is idempotent
// (spec testable property 9), so concurrent re-negotiation is harmless.
func (s *Session) negotiateCapabilities(caps wire.TerminalCaps) {
	chars := palette.DefaultRamp
	if caps.PaletteType == wire.PaletteCustom && caps.CustomPalette != "" {
		chars = caps.CustomPalette
	}
	pal, err := palette.New(chars)
	if err != nil {
		log.Infof("client %d: palette build failed: %v", s.Record.ClientID, err)
		return
	}
	s.Record.StateMu.Lock()
	s.Record.TermCaps = caps
	s.Record.Palette = pal
	s.Record.CapsNegotiated = true
	s.Record.StateMu.Unlock()
}

// sendLoop implements spec 4.I's send thread: audio has strict priority
// over video.
func (s *Session) sendLoop() {
	defer s.Record.MarkThreadDone(clients.ThreadSend)
	rec := s.Record
	for {
		if s.shuttingDown() || !rec.Active.Load() {
			return
		}
		e, ok := rec.OutAudio.TryDequeue()
		q := rec.OutAudio
		if !ok {
			e, ok = rec.OutVideo.TryDequeue()
			q = rec.OutVideo
		}
		if !ok {
			select {
			case <-s.Done:
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}
		err := wire.Send(s.Conn, e.Type, e.Payload, e.SenderID, e.SenderID != 0)
		q.Release(e)
		if err != nil {
			if !s.shuttingDown() {
				log.Infof("client %d: send error: %v", rec.ClientID, err)
			}
			rec.Active.Store(false)
			return
		}
		rec.FramesSent.Add(1)
	}
}

// videoRenderLoop implements spec 4.I's video-render thread, paced to
// ~60Hz, skipping ticks entirely when no sender has a frame.
func (s *Session) videoRenderLoop() {
	defer s.Record.MarkThreadDone(clients.ThreadVideoRender)
	ticker := time.NewTicker(videoTick)
	defer ticker.Stop()
	for {
		select {
		case <-s.Done:
			return
		case <-ticker.C:
		}
		if !s.Record.Active.Load() {
			return
		}
		s.renderVideoTick()
	}
}

func (s *Session) renderVideoTick() {
	caps, pal, ready := s.Record.SnapshotCaps()
	if !ready || pal == nil || !pal.Ready() {
		return // spec 4.E: capability-not-negotiated is not an error, just skip
	}

	var sources []compositor.Source
	for _, other := range s.Manager.Enumerate() {
		if !other.IsSendingVideo.Load() {
			continue
		}
		img := s.collectFrame(other)
		if img == nil {
			continue
		}
		sources = append(sources, compositor.Source{ClientID: other.ClientID, Frame: img})
	}
	if len(sources) == 0 {
		return
	}

	target := compositor.Target{
		Width:     int(caps.Width),
		Height:    int(caps.Height),
		HalfBlock: caps.RenderMode == wire.RenderHalfBlock,
	}
	if target.Width <= 0 || target.Height <= 0 {
		return
	}
	canvas := compositor.Compose(sources, target)

	ascii, err := palette.Render(canvas, palette.Capabilities{ColorTier: caps.ColorTier, RenderMode: caps.RenderMode}, pal)
	if err != nil {
		return
	}

	if !s.Record.SentFirstFrame.Swap(true) {
		s.Record.OutVideo.Enqueue(wire.TypeClearConsole, nil, 0, true)
	}

	payload := wire.EncodeASCIIFrame(uint32(target.Width), uint32(target.Height), []byte(ascii), nil, 0)
	s.Record.OutVideo.Enqueue(wire.TypeASCIIFrame, payload, 0, true)
}

// collectFrame implements spec 4.F step 1/2: read a fresh frame from the
// source's ring (drain-to-latest), falling back to its cached last-good
// frame, validating dimensions either way.
func (s *Session) collectFrame(source *clients.Record) *palette.Image {
	if f, ok := source.VideoRing.ReadMultiFrame(); ok {
		width, height, err := wire.ValidateImageFrame(f.Bytes)
		if err != nil {
			log.Infof("source %d: dropping invalid cached-candidate frame: %v", source.ClientID, err)
			s.Pool.Put(f.Bytes)
			return source.GetCachedFrame()
		}
		rgb := f.Bytes[wire.ImageFrameHeaderSize:]
		img := &palette.Image{Width: int(width), Height: int(height), Pix: append([]byte(nil), rgb...)}
		source.SetCachedFrame(img)
		s.Pool.Put(f.Bytes)
		return img
	}
	return source.GetCachedFrame()
}

// audioRenderLoop implements spec 4.I's audio-render thread, paced to
// the audio batch period.
func (s *Session) audioRenderLoop() {
	defer s.Record.MarkThreadDone(clients.ThreadAudioRender)
	ticker := time.NewTicker(audioTick)
	defer ticker.Stop()
	samples := make([]float32, AudioBatchSize)
	for {
		select {
		case <-s.Done:
			return
		case <-ticker.C:
		}
		if !s.Record.Active.Load() {
			return
		}
		s.Mixer.ProcessExcluding(samples, s.Record.ClientID)
		payload := wire.EncodeAudioBatch(wire.AudioBatchHeader{
			SampleRate: AudioSampleRate,
			Channels:   1,
		}, samples)
		s.Record.OutAudio.Enqueue(wire.TypeAudioBatch, payload, 0, true)
	}
}

func beUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// bytesToFloat32LE decodes the legacy raw-PCM AUDIO packet (wire.TypeAudioLegacy):
// no header, just little-endian float32 samples back-to-back.
func bytesToFloat32LE(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}
