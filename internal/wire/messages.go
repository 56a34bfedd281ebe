package wire

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
)

// Capability bitfield, carried in CLIENT_JOIN (spec §6).
const (
	CapVideo   uint32 = 1 << 0
	CapAudio   uint32 = 1 << 1
	CapColor   uint32 = 1 << 2
	CapStretch uint32 = 1 << 3
)

// StreamType bitfield, carried in STREAM_START/STREAM_STOP (spec §6).
const (
	StreamVideo uint32 = 1 << 0
	StreamAudio uint32 = 1 << 1
)

// ColorTier is the receiver's negotiated color depth (spec §3).
type ColorTier uint8

const (
	ColorNone ColorTier = iota
	Color16
	Color256
	ColorTrue
)

// RenderMode is the receiver's negotiated glyph layout (spec §3, §4.E).
type RenderMode uint8

const (
	RenderForeground RenderMode = iota
	RenderBackground
	RenderHalfBlock
)

// PaletteType distinguishes the stock ramp from a client-declared custom
// character string (spec §3).
type PaletteType uint8

const (
	PaletteStandard PaletteType = iota
	PaletteCustom
)

// ClientJoin is the decoded payload of a CLIENT_JOIN packet.
type ClientJoin struct {
	DisplayName  string
	Capabilities uint32
}

// EncodeClientJoin serializes name+capabilities: u32 namelen, name bytes, u32 caps.
func EncodeClientJoin(j ClientJoin) []byte {
	name := []byte(j.DisplayName)
	buf := make([]byte, 4+len(name)+4)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(name)))
	copy(buf[4:], name)
	binary.BigEndian.PutUint32(buf[4+len(name):], j.Capabilities)
	return buf
}

func DecodeClientJoin(b []byte) (ClientJoin, error) {
	if len(b) < 4 {
		return ClientJoin{}, fmt.Errorf("wire: CLIENT_JOIN too short")
	}
	nlen := int(binary.BigEndian.Uint32(b[0:4]))
	if nlen < 0 || 4+nlen+4 > len(b) {
		return ClientJoin{}, fmt.Errorf("wire: CLIENT_JOIN bad name length")
	}
	name := string(b[4 : 4+nlen])
	caps := binary.BigEndian.Uint32(b[4+nlen : 4+nlen+4])
	return ClientJoin{DisplayName: name, Capabilities: caps}, nil
}

// TerminalCaps is the decoded payload of a CLIENT_CAPABILITIES packet (spec §3).
type TerminalCaps struct {
	ColorTier     ColorTier
	RenderMode    RenderMode
	UTF8          bool
	Width, Height uint32
	PaletteType   PaletteType
	CustomPalette string // only meaningful if PaletteType == PaletteCustom
}

// EncodeTerminalCaps: u8 tier, u8 mode, u8 utf8, u8 palette_type,
// u32 width, u32 height, u32 custom_len, custom bytes.
func EncodeTerminalCaps(c TerminalCaps) []byte {
	custom := []byte(c.CustomPalette)
	buf := make([]byte, 4+4+4+4+len(custom))
	buf[0] = byte(c.ColorTier)
	buf[1] = byte(c.RenderMode)
	if c.UTF8 {
		buf[2] = 1
	}
	buf[3] = byte(c.PaletteType)
	binary.BigEndian.PutUint32(buf[4:8], c.Width)
	binary.BigEndian.PutUint32(buf[8:12], c.Height)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(custom)))
	copy(buf[16:], custom)
	return buf
}

func DecodeTerminalCaps(b []byte) (TerminalCaps, error) {
	if len(b) < 16 {
		return TerminalCaps{}, fmt.Errorf("wire: CLIENT_CAPABILITIES too short")
	}
	clen := int(binary.BigEndian.Uint32(b[12:16]))
	if clen < 0 || 16+clen > len(b) {
		return TerminalCaps{}, fmt.Errorf("wire: CLIENT_CAPABILITIES bad custom length")
	}
	return TerminalCaps{
		ColorTier:     ColorTier(b[0]),
		RenderMode:    RenderMode(b[1]),
		UTF8:          b[2] != 0,
		PaletteType:   PaletteType(b[3]),
		Width:         binary.BigEndian.Uint32(b[4:8]),
		Height:        binary.BigEndian.Uint32(b[8:12]),
		CustomPalette: string(b[16 : 16+clen]),
	}, nil
}

// ImageFrameHeaderSize is the fixed prefix of an IMAGE_FRAME payload (spec §3).
const ImageFrameHeaderSize = 4 + 4 // width, height

// ValidateImageFrame enforces spec §3/§6: total length == 8 + 3*w*h,
// and w, h in [1, 4096].
func ValidateImageFrame(payload []byte) (width, height uint32, err error) {
	if len(payload) < ImageFrameHeaderSize {
		return 0, 0, fmt.Errorf("wire: IMAGE_FRAME too short")
	}
	width = binary.BigEndian.Uint32(payload[0:4])
	height = binary.BigEndian.Uint32(payload[4:8])
	if width < 1 || width > 4096 || height < 1 || height > 4096 {
		return 0, 0, fmt.Errorf("wire: IMAGE_FRAME dimensions out of range: %dx%d", width, height)
	}
	want := uint64(ImageFrameHeaderSize) + uint64(width)*uint64(height)*3
	if uint64(len(payload)) != want {
		return 0, 0, fmt.Errorf("wire: IMAGE_FRAME length mismatch: declared %dx%d wants %d got %d", width, height, want, len(payload))
	}
	return width, height, nil
}

// EncodeImageFrame builds the §3 wire format from raw RGB bytes.
func EncodeImageFrame(width, height uint32, rgb []byte) []byte {
	buf := make([]byte, ImageFrameHeaderSize+len(rgb))
	binary.BigEndian.PutUint32(buf[0:4], width)
	binary.BigEndian.PutUint32(buf[4:8], height)
	copy(buf[8:], rgb)
	return buf
}

// AudioBatchHeaderSize is the fixed prefix of an AUDIO_BATCH payload (spec §3).
const AudioBatchHeaderSize = 4 + 4 + 4 + 4

// BatchMax bounds a single audio batch (spec §3: total_samples <= 2*BatchMax).
const BatchMax = 4096

// AudioBatchHeader is the decoded fixed prefix of an AUDIO_BATCH payload.
type AudioBatchHeader struct {
	BatchCount   uint32
	TotalSamples uint32
	SampleRate   uint32
	Channels     uint32
}

// ValidateAudioBatch enforces spec §3/§6: payload length == header + 4*n,
// n <= 2*BatchMax.
func ValidateAudioBatch(payload []byte) (AudioBatchHeader, []float32, error) {
	if len(payload) < AudioBatchHeaderSize {
		return AudioBatchHeader{}, nil, fmt.Errorf("wire: AUDIO_BATCH too short")
	}
	hdr := AudioBatchHeader{
		BatchCount:   binary.BigEndian.Uint32(payload[0:4]),
		TotalSamples: binary.BigEndian.Uint32(payload[4:8]),
		SampleRate:   binary.BigEndian.Uint32(payload[8:12]),
		Channels:     binary.BigEndian.Uint32(payload[12:16]),
	}
	if hdr.TotalSamples > 2*BatchMax {
		return hdr, nil, fmt.Errorf("wire: AUDIO_BATCH total_samples %d exceeds 2*BATCH_MAX", hdr.TotalSamples)
	}
	want := uint64(AudioBatchHeaderSize) + uint64(hdr.TotalSamples)*4
	if uint64(len(payload)) != want {
		return hdr, nil, fmt.Errorf("wire: AUDIO_BATCH length mismatch: wants %d got %d", want, len(payload))
	}
	samples := make([]float32, hdr.TotalSamples)
	for i := range samples {
		off := AudioBatchHeaderSize + i*4
		bits := binary.LittleEndian.Uint32(payload[off : off+4])
		samples[i] = math.Float32frombits(bits)
	}
	return hdr, samples, nil
}

// EncodeAudioBatch builds the §3 wire format from float samples.
func EncodeAudioBatch(hdr AudioBatchHeader, samples []float32) []byte {
	hdr.TotalSamples = uint32(len(samples))
	buf := make([]byte, AudioBatchHeaderSize+len(samples)*4)
	binary.BigEndian.PutUint32(buf[0:4], hdr.BatchCount)
	binary.BigEndian.PutUint32(buf[4:8], hdr.TotalSamples)
	binary.BigEndian.PutUint32(buf[8:12], hdr.SampleRate)
	binary.BigEndian.PutUint32(buf[12:16], hdr.Channels)
	for i, s := range samples {
		off := AudioBatchHeaderSize + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s))
	}
	return buf
}

// AsciiFrameHeaderSize is the fixed prefix of an ASCII_FRAME payload (spec §3).
const AsciiFrameHeaderSize = 4 + 4 + 4 + 4 + 4 + 4

// EncodeASCIIFrame builds the §3 outbound packet payload: header + ASCII/ANSI bytes.
func EncodeASCIIFrame(width, height uint32, ascii []byte, compressed []byte, flags uint32) []byte {
	payload := ascii
	compressedSize := uint32(0)
	if compressed != nil {
		payload = compressed
		compressedSize = uint32(len(compressed))
	}
	checksum := crc32.ChecksumIEEE(payload)
	buf := make([]byte, AsciiFrameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], width)
	binary.BigEndian.PutUint32(buf[4:8], height)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(ascii)))
	binary.BigEndian.PutUint32(buf[12:16], compressedSize)
	binary.BigEndian.PutUint32(buf[16:20], checksum)
	binary.BigEndian.PutUint32(buf[20:24], flags)
	copy(buf[AsciiFrameHeaderSize:], payload)
	return buf
}

// AsciiFrame is the decoded form of an ASCII_FRAME payload.
type AsciiFrame struct {
	Width, Height               uint32
	OriginalSize, CompressedSize uint32
	Checksum                    uint32
	Flags                       uint32
	Payload                     []byte
}

// DecodeASCIIFrame parses the header and validates the CRC-32 (spec §6:
// "a client may drop any frame whose CRC fails").
func DecodeASCIIFrame(b []byte) (AsciiFrame, error) {
	if len(b) < AsciiFrameHeaderSize {
		return AsciiFrame{}, fmt.Errorf("wire: ASCII_FRAME too short")
	}
	f := AsciiFrame{
		Width:          binary.BigEndian.Uint32(b[0:4]),
		Height:         binary.BigEndian.Uint32(b[4:8]),
		OriginalSize:   binary.BigEndian.Uint32(b[8:12]),
		CompressedSize: binary.BigEndian.Uint32(b[12:16]),
		Checksum:       binary.BigEndian.Uint32(b[16:20]),
		Flags:          binary.BigEndian.Uint32(b[20:24]),
		Payload:        b[AsciiFrameHeaderSize:],
	}
	if crc32.ChecksumIEEE(f.Payload) != f.Checksum {
		return f, fmt.Errorf("wire: ASCII_FRAME checksum mismatch")
	}
	return f, nil
}

// EncodeServerState builds a SERVER_STATE payload (spec §6).
func EncodeServerState(connected, active uint32) []byte {
	buf := make([]byte, 4+4+8) // + reserved
	binary.BigEndian.PutUint32(buf[0:4], connected)
	binary.BigEndian.PutUint32(buf[4:8], active)
	return buf
}
