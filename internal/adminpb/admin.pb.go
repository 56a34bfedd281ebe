package adminpb

// ClientInfo describes one connected client for ListClients.
type ClientInfo struct {
	ClientID    uint32 `json:"client_id"`
	PeerAddr    string `json:"peer_addr"`
	Port        int32  `json:"port"`
	Active      bool   `json:"active"`
	Streaming   bool   `json:"streaming"`
	ConnectedMS int64  `json:"connected_ms"`
}

type ListClientsRequest struct{}

type ListClientsReply struct {
	Clients []*ClientInfo `json:"clients"`
}

type KickClientRequest struct {
	ClientID uint32 `json:"client_id"`
	Reason   string `json:"reason"`
}

type KickClientReply struct {
	Ok  bool   `json:"ok"`
	Err string `json:"err,omitempty"`
}

type StatsRequest struct{}

type StatsReply struct {
	ClientCount int64 `json:"client_count"`
	ActiveCount int64 `json:"active_count"`
	PoolInUse   int64 `json:"pool_in_use"`
	PoolGets    int64 `json:"pool_gets"`
	PoolPuts    int64 `json:"pool_puts"`
	PoolMisses  int64 `json:"pool_misses"`
}
