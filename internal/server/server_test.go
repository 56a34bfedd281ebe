package server

import (
	"net"
	"testing"
	"time"
)

func listenTCP(t *testing.T) *net.TCPListener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	tl, ok := l.(*net.TCPListener)
	if !ok {
		t.Fatal("expected *net.TCPListener")
	}
	return tl
}

func newTestServer(t *testing.T) (*Server, string) {
	l := listenTCP(t)
	cfg := DefaultConfig()
	cfg.AcceptTimeout = 20 * time.Millisecond
	cfg.StatsPeriod = time.Hour // keep the stats goroutine quiet in tests
	cfg.Clients.MaxClients = 4
	cfg.Clients.VideoRingSize = 4
	cfg.Clients.AudioRingSize = 64
	cfg.Clients.OutQueueSize = 8
	s := New(cfg, l)
	return s, l.Addr().String()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestAcceptAddsClientAndShutdownReapsIt(t *testing.T) {
	s, addr := newTestServer(t)
	runDone := make(chan struct{})
	go func() {
		s.Run()
		close(runDone)
	}()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	waitFor(t, time.Second, func() bool { return s.manager.Count() == 1 })

	s.Shutdown()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	if s.manager.Count() != 0 {
		t.Fatalf("manager count after shutdown = %d, want 0", s.manager.Count())
	}
	if n := s.pool.InUse(); n != 0 {
		t.Fatalf("pool in-use after shutdown = %d, want 0", n)
	}
}

func TestReapInactiveFreesDisconnectedClientSlot(t *testing.T) {
	s, addr := newTestServer(t)
	runDone := make(chan struct{})
	go func() {
		s.Run()
		close(runDone)
	}()
	defer func() {
		s.Shutdown()
		<-runDone
	}()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return s.manager.Count() == 1 })

	conn.Close() // receive thread observes EOF, clears active

	waitFor(t, time.Second, func() bool { return s.manager.Count() == 0 })
}

func TestShutdownIsIdempotent(t *testing.T) {
	s, _ := newTestServer(t)
	s.Shutdown()
	s.Shutdown() // must not panic on double-close
}
