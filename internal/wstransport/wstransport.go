// Package wstransport adapts a gorilla/websocket connection to the
// plain io.ReadWriteCloser the wire package's Send/Receive expect, so a
// browser-hosted terminal emulator can speak the exact same framed
// packet protocol spec 4.A defines over a WebSocket instead of a bare
// TCP socket (spec §1 names this alternate transport as an external
// collaborator; this is that collaborator).
package wstransport

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Upgrader mirrors the teacher's permissive CORS policy (websocket.go,
// webrtc/sfu.go): same-origin checks are the HTTP layer's job, not this
// adapter's.
var Upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Conn adapts a *websocket.Conn to io.ReadWriteCloser: each Write call
// becomes one binary WebSocket message, and Read transparently
// concatenates incoming messages into a continuous byte stream, so
// wire.Send/wire.Receive (which only need ordered bytes, not message
// boundaries) work unmodified over this transport.
type Conn struct {
	ws      *websocket.Conn
	readBuf []byte
}

// New wraps an already-upgraded WebSocket connection.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Upgrade upgrades an incoming HTTP request to a WebSocket and wraps it.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return New(ws), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	for len(c.readBuf) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.readBuf = data
	}
	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer. gorilla/websocket's Close merely tears
// down the TCP connection; it does not send a close frame (spec §7
// treats this the same as any other transport's abrupt disconnect).
func (c *Conn) Close() error {
	return c.ws.Close()
}

// RemoteAddr exposes the underlying connection's peer address, for
// callers that want to log or pass it to Server.AddConn.
func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
