package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/n0remac/ascii-chat-server/internal/bufpool"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	cases := []struct {
		name       string
		typ        Type
		payload    []byte
		senderID   uint32
		withSender bool
	}{
		{"ping-no-sender", TypePing, nil, 0, false},
		{"join", TypeClientJoin, EncodeClientJoin(ClientJoin{DisplayName: "alice", Capabilities: CapVideo | CapColor}), 0, false},
		{"image-frame-with-sender", TypeImageFrame, EncodeImageFrame(2, 2, make([]byte, 12)), 42, true},
		{"audio-batch", TypeAudioBatch, EncodeAudioBatch(AudioBatchHeader{SampleRate: 48000, Channels: 1}, []float32{0.5, -0.25, 1, -1}), 7, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Send(&buf, tc.typ, tc.payload, tc.senderID, tc.withSender); err != nil {
				t.Fatalf("Send: %v", err)
			}
			pkt, err := Receive(&buf, nil)
			if err != nil {
				t.Fatalf("Receive: %v", err)
			}
			if pkt.Type != tc.typ {
				t.Errorf("type = %v, want %v", pkt.Type, tc.typ)
			}
			if tc.withSender && pkt.SenderID != tc.senderID {
				t.Errorf("senderID = %d, want %d", pkt.SenderID, tc.senderID)
			}
			if !bytes.Equal(pkt.Payload, tc.payload) {
				t.Errorf("payload = %v, want %v", pkt.Payload, tc.payload)
			}
		})
	}
}

func TestReceiveBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0})
	_, err := Receive(buf, nil)
	if err != ErrBadMagic {
		t.Fatalf("got %v, want ErrBadMagic", err)
	}
}

func TestReceiveOversize(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x41, 0x53, 0x43, 0x49}) // magic
	buf.Write([]byte{0, 4})                   // type
	buf.Write([]byte{0, 0})                   // flags
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF}) // length: huge
	_, err := Receive(&buf, nil)
	if err != ErrOversize {
		t.Fatalf("got %v, want ErrOversize", err)
	}
}

func TestReceiveTruncatedHeader(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x41, 0x53, 0x43})
	_, err := Receive(buf, nil)
	if err == nil {
		t.Fatal("expected error on truncated header")
	}
}

func TestReceiveTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, TypeImageFrame, make([]byte, 100), 0, false); err != nil {
		t.Fatal(err)
	}
	truncated := bytes.NewBuffer(buf.Bytes()[:len(buf.Bytes())-10])
	_, err := Receive(truncated, nil)
	if err == nil {
		t.Fatal("expected error on truncated payload")
	}
}

func TestReceiveCleanEOF(t *testing.T) {
	_, err := Receive(bytes.NewReader(nil), nil)
	if err != io.EOF {
		t.Fatalf("got %v, want io.EOF", err)
	}
}

func TestReceiveUsesPool(t *testing.T) {
	pool := bufpool.New()
	var buf bytes.Buffer
	payload := []byte("hello world")
	if err := Send(&buf, TypePing, payload, 0, false); err != nil {
		t.Fatal(err)
	}
	pkt, err := Receive(&buf, pool)
	if err != nil {
		t.Fatal(err)
	}
	if pool.InUse() != 1 {
		t.Fatalf("InUse = %d, want 1", pool.InUse())
	}
	pkt.Release()
	if pool.InUse() != 0 {
		t.Fatalf("InUse after release = %d, want 0", pool.InUse())
	}
}

func TestValidateImageFrame(t *testing.T) {
	good := EncodeImageFrame(4, 3, make([]byte, 36))
	if _, _, err := ValidateImageFrame(good); err != nil {
		t.Fatalf("valid frame rejected: %v", err)
	}
	bad := EncodeImageFrame(4, 3, make([]byte, 10))
	if _, _, err := ValidateImageFrame(bad); err == nil {
		t.Fatal("expected error for length mismatch")
	}
	tooBig := EncodeImageFrame(5000, 10, make([]byte, 5000*10*3))
	if _, _, err := ValidateImageFrame(tooBig); err == nil {
		t.Fatal("expected error for oversize dimensions")
	}
}

func TestValidateAudioBatch(t *testing.T) {
	samples := make([]float32, 10)
	good := EncodeAudioBatch(AudioBatchHeader{SampleRate: 48000, Channels: 1}, samples)
	if _, got, err := ValidateAudioBatch(good); err != nil || len(got) != 10 {
		t.Fatalf("valid batch rejected: err=%v len=%d", err, len(got))
	}

	tooMany := EncodeAudioBatch(AudioBatchHeader{}, make([]float32, 2*BatchMax+1))
	if _, _, err := ValidateAudioBatch(tooMany); err == nil {
		t.Fatal("expected error for total_samples > 2*BATCH_MAX")
	}
}

func TestASCIIFrameChecksum(t *testing.T) {
	payload := EncodeASCIIFrame(10, 5, []byte("ascii-art"), nil, 0)
	f, err := DecodeASCIIFrame(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(f.Payload) != "ascii-art" {
		t.Fatalf("payload = %q", f.Payload)
	}
	corrupt := append([]byte(nil), payload...)
	corrupt[len(corrupt)-1] ^= 0xFF
	if _, err := DecodeASCIIFrame(corrupt); err == nil {
		t.Fatal("expected checksum mismatch")
	}
}
