// Package server implements the top-level lifecycle of spec 4.J: the
// accept loop, the reap-inactive scan riding the same timeout, the
// coarse-period stats timer, and the signal-driven graceful shutdown
// sequence.
package server

import (
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/n0remac/ascii-chat-server/internal/audiomix"
	"github.com/n0remac/ascii-chat-server/internal/bufpool"
	"github.com/n0remac/ascii-chat-server/internal/clients"
	"github.com/n0remac/ascii-chat-server/internal/logging"
	"github.com/n0remac/ascii-chat-server/internal/session"
	"github.com/n0remac/ascii-chat-server/internal/store"
	"github.com/n0remac/ascii-chat-server/internal/wire"
	"github.com/n0remac/ascii-chat-server/internal/wstransport"
)

var log = logging.Tag("server")

// Config bounds the server's accept/reap/stats cadence (spec 4.J).
type Config struct {
	AcceptTimeout time.Duration // T_accept
	StatsPeriod   time.Duration
	Clients       clients.Config
}

func DefaultConfig() Config {
	return Config{
		AcceptTimeout: 200 * time.Millisecond,
		StatsPeriod:   30 * time.Second,
		Clients:       clients.DefaultConfig(),
	}
}

// Server owns the listener, the client manager, the shared mixer and
// pool, and the should_exit shutdown state (spec §5, §7).
type Server struct {
	cfg      Config
	listener *net.TCPListener
	manager  *clients.Manager
	mixer    *audiomix.Mixer
	pool     *bufpool.Pool
	store    *store.Store

	shouldExit atomic.Bool
	done       chan struct{} // closed exactly once, broadcasts shutdown
	doneOnce   sync.Once

	statsWG sync.WaitGroup
}

// New wires the process-wide singletons (spec §9: pools and mixer are
// created once, here, and shared by every client record).
func New(cfg Config, listener *net.TCPListener) *Server {
	pool := bufpool.New()
	mixer := audiomix.New()
	return &Server{
		cfg:      cfg,
		listener: listener,
		manager:  clients.NewManager(cfg.Clients, pool, mixer),
		mixer:    mixer,
		pool:     pool,
		done:     make(chan struct{}),
	}
}

// Manager exposes the client registry for the admin control plane
// (internal/admin, internal/httpadmin), which reads it and, for the gRPC
// KickClient call, removes clients through Manager.RemoveClient.
func (s *Server) Manager() *clients.Manager { return s.manager }

// Pool exposes the shared buffer pool for the admin control plane's
// Stats call.
func (s *Server) Pool() *bufpool.Pool { return s.pool }

// SetStore attaches an audit-log backend, wiring the manager's
// connect/disconnect hooks to it. Call before the first AddConn/accept.
func (s *Server) SetStore(st *store.Store) {
	s.store = st
	s.manager.OnConnect = func(rec *clients.Record) {
		id, err := st.RecordConnect(rec.ClientID, rec.PeerAddress, rec.Port)
		if err != nil {
			log.Warnf("audit: record connect for client %d: %v", rec.ClientID, err)
			return
		}
		rec.AuditID = id
	}
	s.manager.OnDisconnect = func(rec *clients.Record) {
		if rec.AuditID == "" {
			return
		}
		reason := "reaped"
		if !rec.Active.Load() {
			reason = "disconnected"
		}
		if err := st.RecordDisconnect(rec.AuditID, reason); err != nil {
			log.Warnf("audit: record disconnect for client %d: %v", rec.ClientID, err)
		}
	}
}

// Shutdown implements spec 4.J item 4 / §7's "signal-handler minimalism":
// the only work done here is flipping the exit flag, broadcasting the
// shutdown condition (closing done), and tearing down the listener so
// the accept loop unblocks. Everything else happens on the accept
// goroutine as it observes shouldExit.
func (s *Server) Shutdown() {
	s.shouldExit.Store(true)
	s.doneOnce.Do(func() { close(s.done) })
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// Run drives the accept loop until Shutdown is called, then reaps every
// remaining client and returns. Run is the main-thread loop of spec 4.J.
func (s *Server) Run() {
	s.statsWG.Add(1)
	go s.statsLoop()

	for {
		if s.shouldExit.Load() {
			break
		}
		conn, err := s.acceptWithTimeout()
		if err != nil {
			if s.shouldExit.Load() {
				break
			}
			s.reapInactive()
			continue
		}
		if conn != nil {
			s.addClient(conn)
		}
		s.reapInactive()
	}

	s.statsWG.Wait()
	s.drainAllClients()
	log.Infof("shutdown complete, pool in-use = %d", s.pool.InUse())
}

// acceptWithTimeout implements spec 4.J item 2: a bounded accept so the
// same loop iteration doubles as the reap-scan interval.
func (s *Server) acceptWithTimeout() (net.Conn, error) {
	if err := s.listener.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout)); err != nil {
		return nil, err
	}
	return s.listener.Accept()
}

func (s *Server) addClient(conn net.Conn) {
	peerAddr, port := splitHostPort(conn.RemoteAddr().String())
	s.AddConn(conn, peerAddr, port)
}

// AddConn registers any framed-transport connection as a new client —
// not just raw TCP. internal/wstransport's WebSocket adapter and
// internal/relay's WebRTC data-channel adapter both satisfy
// io.ReadWriteCloser and can be handed to this directly, so every
// transport ends up running the exact same session/manager machinery
// (spec §1 treats alternate transports as external collaborators behind
// this one seam).
func (s *Server) AddConn(conn io.ReadWriteCloser, peerAddr string, port int) {
	rec, err := s.manager.AddClient(peerAddr, port, conn)
	if err != nil {
		log.Infof("rejecting connection from %s: %v", peerAddr, err)
		_ = conn.Close()
		return
	}

	sess := &session.Session{
		Record:  rec,
		Manager: s.manager,
		Mixer:   s.mixer,
		Pool:    s.pool,
		Conn:    conn,
		Done:    s.done,
	}
	sess.Start()
	log.Infof("client %d connected from %s:%d (%d active)", rec.ClientID, peerAddr, port, s.manager.ActiveCount())
	s.broadcastServerState()
}

// HandleWebSocket is an http.HandlerFunc-compatible method that upgrades
// the request to a WebSocket (internal/wstransport) and runs it through
// the exact same AddConn path as a raw TCP accept, so browser clients
// join the same client manager and session machinery (spec §11's
// WebSocket fallback transport).
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wstransport.Upgrade(w, r)
	if err != nil {
		log.Infof("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	peerAddr, port := splitHostPort(conn.RemoteAddr())
	s.AddConn(conn, peerAddr, port)
}

// reapInactive implements spec 4.J item 2's "on timeout, scan for
// records with active == false and reap them" and spec §4.J's control
// flow: the reaper waits for that client's threads to join before
// freeing its slot and id.
func (s *Server) reapInactive() {
	if s.manager.ReapInactive() > 0 {
		s.broadcastServerState()
	}
}

// drainAllClients implements spec 4.J item 4's final step: "iterate the
// manager reaping every non-zero slot."
func (s *Server) drainAllClients() {
	for {
		ids := s.manager.AllIDs()
		if len(ids) == 0 {
			return
		}
		for _, id := range ids {
			s.manager.RemoveClient(id, false)
		}
	}
}

// broadcastServerState implements the supplemented SERVER_STATE feature:
// every active client is told the current roster size on any change.
func (s *Server) broadcastServerState() {
	active := s.manager.Enumerate()
	payload := wire.EncodeServerState(uint32(s.manager.Count()), uint32(len(active)))
	for _, rec := range active {
		rec.OutVideo.Enqueue(wire.TypeServerState, payload, 0, true)
	}
}

// statsLoop implements spec 4.J item 3: at a coarse period, log
// per-client queue stats, buffer-pool utilization, and the client map
// size.
func (s *Server) statsLoop() {
	defer s.statsWG.Done()
	ticker := time.NewTicker(s.cfg.StatsPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.logStats()
		}
	}
}

func (s *Server) logStats() {
	gets, puts, misses := s.pool.Stats()
	active := s.manager.Enumerate()
	log.Infof("stats: clients=%d active=%d pool(gets=%d puts=%d misses=%d inuse=%d)",
		s.manager.Count(), len(active), gets, puts, misses, s.pool.InUse())
	for _, rec := range active {
		vs := rec.OutVideo.Stats()
		as := rec.OutAudio.Stats()
		log.Infof("client %d: video(enq=%d deq=%d drop=%d) audio(enq=%d deq=%d drop=%d)",
			rec.ClientID, vs.Enqueued, vs.Dequeued, vs.Dropped, as.Enqueued, as.Dequeued, as.Dropped)
	}

	if s.store != nil {
		snap := store.StatsSnapshot{
			ClientCount: s.manager.Count(),
			ActiveCount: len(active),
			PoolInUse:   s.pool.InUse(),
			PoolGets:    gets,
			PoolPuts:    puts,
			PoolMisses:  misses,
		}
		if err := s.store.RecordStats(snap); err != nil {
			log.Warnf("audit: record stats snapshot: %v", err)
		}
	}
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port := 0
	for _, c := range portStr {
		if c < '0' || c > '9' {
			port = 0
			break
		}
		port = port*10 + int(c-'0')
	}
	return host, port
}
