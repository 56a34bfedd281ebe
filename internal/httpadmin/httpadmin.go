// Package httpadmin exposes the same operational stats as
// internal/admin's gRPC service over plain HTTP+JSON, for dashboards
// that can't speak gRPC. Authentication follows the corpus's own
// bcrypt pattern (helix's auth.helix_authenticator: bcrypt.
// GenerateFromPassword / CompareHashAndPassword) instead of a bearer
// token or session cookie, since this is a single shared operator
// credential rather than a multi-user account system.
package httpadmin

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/n0remac/ascii-chat-server/internal/bufpool"
	"github.com/n0remac/ascii-chat-server/internal/clients"
	"github.com/n0remac/ascii-chat-server/internal/logging"
)

var log = logging.Tag("httpadmin")

// Handler serves GET /stats (JSON) behind HTTP Basic Auth, checked
// against a bcrypt hash of the operator password. It has no kick route;
// kicking a client is offered only by internal/admin's gRPC service.
type Handler struct {
	manager      *clients.Manager
	pool         *bufpool.Pool
	user         string
	passwordHash []byte
}

// NewHandler hashes password once at startup; Basic Auth requests are
// checked against the hash, never the plaintext.
func NewHandler(manager *clients.Manager, pool *bufpool.Pool, user, password string) (*Handler, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Handler{manager: manager, pool: pool, user: user, passwordHash: hash}, nil
}

func (h *Handler) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(h.user)) != 1 {
		h.demandAuth(w)
		return false
	}
	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(pass)); err != nil {
		h.demandAuth(w)
		return false
	}
	return true
}

func (h *Handler) demandAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="ascii-chat-admin"`)
	w.WriteHeader(http.StatusUnauthorized)
}

type statsResponse struct {
	ClientCount int   `json:"client_count"`
	ActiveCount int   `json:"active_count"`
	PoolInUse   int64 `json:"pool_in_use"`
	PoolGets    int64 `json:"pool_gets"`
	PoolPuts    int64 `json:"pool_puts"`
	PoolMisses  int64 `json:"pool_misses"`
}

// ServeStats handles GET /stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	if !h.checkAuth(w, r) {
		return
	}
	gets, puts, misses := h.pool.Stats()
	resp := statsResponse{
		ClientCount: h.manager.Count(),
		ActiveCount: h.manager.ActiveCount(),
		PoolInUse:   h.pool.InUse(),
		PoolGets:    gets,
		PoolPuts:    puts,
		PoolMisses:  misses,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warnf("encoding stats response: %v", err)
	}
}

// Mux builds an *http.ServeMux serving this handler's routes, for
// embedding alongside the WebSocket fallback transport's mux.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", h.ServeStats)
	return mux
}
