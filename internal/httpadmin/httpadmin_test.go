package httpadmin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/n0remac/ascii-chat-server/internal/audiomix"
	"github.com/n0remac/ascii-chat-server/internal/bufpool"
	"github.com/n0remac/ascii-chat-server/internal/clients"
)

type nopConn struct{}

func (nopConn) Close() error { return nil }

func newTestHandler(t *testing.T) (*Handler, *clients.Manager) {
	t.Helper()
	pool := bufpool.New()
	mgr := clients.NewManager(clients.Config{MaxClients: 4, OutQueueSize: 4}, pool, audiomix.New())
	h, err := NewHandler(mgr, pool, "admin", "hunter2")
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, mgr
}

func TestServeStatsRejectsMissingAuth(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(h.Mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestServeStatsRejectsWrongPassword(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(h.Mux())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/stats", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestServeStatsReturnsClientCounts(t *testing.T) {
	h, mgr := newTestHandler(t)
	if _, err := mgr.AddClient("10.0.0.1", 9000, nopConn{}); err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	srv := httptest.NewServer(h.Mux())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/stats", nil)
	req.SetBasicAuth("admin", "hunter2")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ClientCount != 1 || got.ActiveCount != 1 {
		t.Fatalf("unexpected stats response: %+v", got)
	}
}
