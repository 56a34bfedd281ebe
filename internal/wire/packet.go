// Package wire implements the framed packet I/O adapter (spec 4.A):
// a length-prefixed, big-endian binary protocol shared by every client
// transport this server supports (raw TCP in package server, WebSocket
// in internal/wstransport, WebRTC data channel in internal/relay).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/n0remac/ascii-chat-server/internal/bufpool"
)

// Magic identifies a well-formed packet header (spec §6: 0x41534349 = "ASCI").
const Magic uint32 = 0x41534349

// Type enumerates wire packet types. Numeric values are part of the wire
// protocol (spec §6) and must never be renumbered once shipped.
type Type uint16

const (
	TypeClientJoin         Type = 1
	TypeStreamStart        Type = 2
	TypeStreamStop         Type = 3
	TypeImageFrame         Type = 4
	TypeAudioBatch         Type = 5
	TypeAudioLegacy        Type = 6
	TypeClientCapabilities Type = 7
	TypePing               Type = 8
	TypePong               Type = 9
	TypeASCIIFrame         Type = 10
	TypeServerState        Type = 11
	TypeClearConsole       Type = 12
)

func (t Type) String() string {
	switch t {
	case TypeClientJoin:
		return "CLIENT_JOIN"
	case TypeStreamStart:
		return "STREAM_START"
	case TypeStreamStop:
		return "STREAM_STOP"
	case TypeImageFrame:
		return "IMAGE_FRAME"
	case TypeAudioBatch:
		return "AUDIO_BATCH"
	case TypeAudioLegacy:
		return "AUDIO"
	case TypeClientCapabilities:
		return "CLIENT_CAPABILITIES"
	case TypePing:
		return "PING"
	case TypePong:
		return "PONG"
	case TypeASCIIFrame:
		return "ASCII_FRAME"
	case TypeServerState:
		return "SERVER_STATE"
	case TypeClearConsole:
		return "CLEAR_CONSOLE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
	}
}

// Flags bits carried in the header.
const (
	FlagHasSenderID uint16 = 1 << 0
)

// MaxPayload bounds the length field to guard against a hostile or
// corrupt peer declaring an enormous allocation (spec §7: oversize length
// is a protocol violation, fatal to that one connection).
const MaxPayload = 64 << 20

const headerSize = 4 + 2 + 2 + 4 // magic + type + flags + length

// Header is the fixed portion of every packet.
type Header struct {
	Type     Type
	Flags    uint16
	Length   uint32 // length of Payload, NOT counting the optional SenderID
	SenderID uint32 // valid only if Flags&FlagHasSenderID != 0
}

// Packet is a fully decoded wire packet. Payload is owned by whoever holds
// the Packet; Release must be called exactly once, after which Payload
// must not be touched again.
type Packet struct {
	Header
	Payload []byte

	pool *bufpool.Pool
}

// Release returns Payload to the pool it was allocated from, if any.
func (p *Packet) Release() {
	if p.pool != nil && p.Payload != nil {
		p.pool.Put(p.Payload)
		p.Payload = nil
		p.pool = nil
	}
}

var (
	// ErrBadMagic is a protocol violation: the peer is not speaking this
	// protocol, or the stream has desynchronized.
	ErrBadMagic = errors.New("wire: bad magic")
	// ErrOversize is a protocol violation: declared length exceeds MaxPayload.
	ErrOversize = errors.New("wire: oversize payload length")
	// ErrShortPayload is an I/O error: the peer closed mid-payload.
	ErrShortPayload = errors.New("wire: short read on payload")
)

// Send writes one packet to w. senderID is ignored unless withSender is true.
func Send(w io.Writer, typ Type, payload []byte, senderID uint32, withSender bool) error {
	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], Magic)
	binary.BigEndian.PutUint16(hdr[4:6], uint16(typ))
	flags := uint16(0)
	if withSender {
		flags |= FlagHasSenderID
	}
	length := uint32(len(payload))
	if withSender {
		length += 4
	}
	binary.BigEndian.PutUint16(hdr[6:8], flags)
	binary.BigEndian.PutUint32(hdr[8:12], length)
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if withSender {
		var sid [4]byte
		binary.BigEndian.PutUint32(sid[:], senderID)
		if _, err := w.Write(sid[:]); err != nil {
			return fmt.Errorf("wire: write sender id: %w", err)
		}
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("wire: write payload: %w", err)
		}
	}
	return nil
}

// Receive reads one packet from r. Returned payload bytes come from pool
// if pool is non-nil (process-wide pooled allocator, spec 4.A); the
// caller must call (*Packet).Release when done with it.
//
// Returns (packet, nil) on success, (nil, io.EOF) on clean EOF before any
// bytes were read, and (nil, err) for any protocol violation or I/O error
// — both are fatal to the connection per spec §7.
func Receive(r io.Reader, pool *bufpool.Pool) (*Packet, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("wire: read header: %w", err)
	}
	magic := binary.BigEndian.Uint32(hdr[0:4])
	if magic != Magic {
		return nil, ErrBadMagic
	}
	typ := Type(binary.BigEndian.Uint16(hdr[4:6]))
	flags := binary.BigEndian.Uint16(hdr[6:8])
	length := binary.BigEndian.Uint32(hdr[8:12])
	if length > MaxPayload {
		return nil, ErrOversize
	}

	var senderID uint32
	payloadLen := length
	if flags&FlagHasSenderID != 0 {
		var sid [4]byte
		if _, err := io.ReadFull(r, sid[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrShortPayload, err)
		}
		senderID = binary.BigEndian.Uint32(sid[:])
		if payloadLen < 4 {
			return nil, ErrOversize
		}
		payloadLen -= 4
	}

	var payload []byte
	if pool != nil {
		payload = pool.Get(int(payloadLen))
	} else {
		payload = make([]byte, payloadLen)
	}
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if pool != nil {
				pool.Put(payload)
			}
			return nil, fmt.Errorf("%w: %v", ErrShortPayload, err)
		}
	}

	return &Packet{
		Header: Header{
			Type:     typ,
			Flags:    flags,
			Length:   payloadLen,
			SenderID: senderID,
		},
		Payload: payload,
		pool:    pool,
	}, nil
}
