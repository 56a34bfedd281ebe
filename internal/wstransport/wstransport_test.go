package wstransport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestConnRoundTripsBytesAcrossMessageBoundaries(t *testing.T) {
	serverConnCh := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		if err != nil {
			t.Errorf("server upgrade: %v", err)
			return
		}
		serverConnCh <- c
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	clientWS, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("client dial: %v", err)
	}
	defer clientWS.Close()
	client := New(clientWS)

	var serverConn *Conn
	select {
	case serverConn = <-serverConnCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never completed upgrade")
	}
	defer serverConn.Close()

	// Write in two separate Write calls (two WS messages); read back in
	// one larger buffer than either message, to prove Read concatenates
	// across message boundaries rather than truncating at the first.
	if _, err := client.Write([]byte("hello ")); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if _, err := client.Write([]byte("world")); err != nil {
		t.Fatalf("write 2: %v", err)
	}

	got := make([]byte, 0, 11)
	buf := make([]byte, 6)
	for len(got) < 11 {
		n, err := serverConn.Read(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}
}
