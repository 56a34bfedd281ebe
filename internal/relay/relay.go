package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/n0remac/ascii-chat-server/internal/logging"
)

var log = logging.Tag("relay")

// Config names the ICE servers this relay offers clients, mirroring the
// teacher's own sfuIceServers plus a TURN server secured by
// GenerateTURNCredentials (the teacher only used public STUN; a TURN
// relay is this component's whole reason for existing, since STUN alone
// cannot traverse symmetric NATs).
type Config struct {
	STUNURLs    []string
	TURNURL     string
	TURNSecret  string
	TURNTTL     time.Duration
	DataChannel string // label, spec names no particular value
}

func DefaultConfig() Config {
	return Config{
		STUNURLs:    []string{"stun:stun.l.google.com:19302"},
		DataChannel: "ascii-chat",
		TURNTTL:     time.Hour,
	}
}

// ICEServers builds the webrtc.ICEServer list for a given user identity,
// minting fresh TURN credentials per call (spec §1: the relay is a
// collaborator behind a narrow interface, not a long-lived credential
// cache).
func (c Config) ICEServers(user string) []webrtc.ICEServer {
	servers := []webrtc.ICEServer{{URLs: c.STUNURLs}}
	if c.TURNURL != "" && c.TURNSecret != "" {
		username, password := GenerateTURNCredentials(c.TURNSecret, user, c.TURNTTL)
		servers = append(servers, webrtc.ICEServer{
			URLs:       []string{c.TURNURL},
			Username:   username,
			Credential: password,
		})
	}
	return servers
}

// ErrDataChannelClosed is returned by Read/Write after the underlying
// data channel has closed.
var ErrDataChannelClosed = errors.New("relay: data channel closed")

// Conn adapts a pion/webrtc DataChannel (callback-driven, message-
// oriented) into the blocking io.ReadWriteCloser the wire package's
// Send/Receive expect — the same adaptation internal/wstransport makes
// for gorilla/websocket, so internal/server's AddConn works unmodified
// across every transport.
type Conn struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	incoming chan []byte
	closed   chan struct{}

	readBuf []byte
}

// NewConn wires a Conn to an already-created DataChannel, registering
// the OnMessage/OnClose callbacks that feed Read.
func NewConn(pc *webrtc.PeerConnection, dc *webrtc.DataChannel) *Conn {
	c := &Conn{
		pc:       pc,
		dc:       dc,
		incoming: make(chan []byte, 256),
		closed:   make(chan struct{}),
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case c.incoming <- msg.Data:
		case <-c.closed:
		}
	})
	dc.OnClose(func() {
		select {
		case <-c.closed:
		default:
			close(c.closed)
		}
	})
	return c
}

func (c *Conn) Read(p []byte) (int, error) {
	for len(c.readBuf) == 0 {
		select {
		case data, ok := <-c.incoming:
			if !ok {
				return 0, ErrDataChannelClosed
			}
			c.readBuf = data
		case <-c.closed:
			return 0, ErrDataChannelClosed
		}
	}
	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, ErrDataChannelClosed
	default:
	}
	if err := c.dc.Send(p); err != nil {
		return 0, fmt.Errorf("relay: data channel send: %w", err)
	}
	return len(p), nil
}

func (c *Conn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	_ = c.dc.Close()
	return c.pc.Close()
}

// NewPeerConnection creates a PeerConnection configured with this
// relay's ICE servers and a single ordered DataChannel, returning a Conn
// ready to be handed to server.Server.AddConn once the DataChannel opens
// (the caller is responsible for the signaling exchange that negotiates
// the SDP offer/answer — spec §1 scopes signaling transport itself out
// of this component).
func (cfg Config) NewPeerConnection(user string) (*webrtc.PeerConnection, *webrtc.DataChannel, error) {
	api := webrtc.NewAPI()
	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: cfg.ICEServers(user)})
	if err != nil {
		return nil, nil, fmt.Errorf("relay: new peer connection: %w", err)
	}
	ordered := true
	dc, err := pc.CreateDataChannel(cfg.DataChannel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		_ = pc.Close()
		return nil, nil, fmt.Errorf("relay: create data channel: %w", err)
	}
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log.Infof("user %s: ICE state %s", user, state)
	})
	return pc, dc, nil
}
