// Package admin implements the operator gRPC control plane
// (internal/adminpb's Controller service), grounded on the teacher's
// servo.server / NewServer(sg, ranges) shape: here NewServer wraps a
// *clients.Manager instead of a servo group, and a *bufpool.Pool for the
// Stats call's pool utilization figures.
package admin

import (
	"context"
	"time"

	"github.com/n0remac/ascii-chat-server/internal/adminpb"
	"github.com/n0remac/ascii-chat-server/internal/bufpool"
	"github.com/n0remac/ascii-chat-server/internal/clients"
)

type server struct {
	adminpb.UnimplementedControllerServer
	manager *clients.Manager
	pool    *bufpool.Pool
}

func NewServer(manager *clients.Manager, pool *bufpool.Pool) adminpb.ControllerServer {
	return &server{manager: manager, pool: pool}
}

func (s *server) ListClients(ctx context.Context, req *adminpb.ListClientsRequest) (*adminpb.ListClientsReply, error) {
	records := s.manager.Enumerate()
	out := make([]*adminpb.ClientInfo, 0, len(records))
	now := time.Now()
	for _, rec := range records {
		out = append(out, &adminpb.ClientInfo{
			ClientID:    rec.ClientID,
			PeerAddr:    rec.PeerAddress,
			Port:        int32(rec.Port),
			Active:      rec.Active.Load(),
			Streaming:   rec.IsSendingVideo.Load() || rec.IsSendingAudio.Load(),
			ConnectedMS: now.Sub(rec.ConnectedAt).Milliseconds(),
		})
	}
	return &adminpb.ListClientsReply{Clients: out}, nil
}

func (s *server) KickClient(ctx context.Context, req *adminpb.KickClientRequest) (*adminpb.KickClientReply, error) {
	if _, ok := s.manager.FindByID(req.ClientID); !ok {
		return &adminpb.KickClientReply{Ok: false, Err: "unknown client id"}, nil
	}
	s.manager.RemoveClient(req.ClientID, false)
	return &adminpb.KickClientReply{Ok: true}, nil
}

func (s *server) Stats(ctx context.Context, req *adminpb.StatsRequest) (*adminpb.StatsReply, error) {
	gets, puts, misses := s.pool.Stats()
	return &adminpb.StatsReply{
		ClientCount: int64(s.manager.Count()),
		ActiveCount: int64(s.manager.ActiveCount()),
		PoolInUse:   s.pool.InUse(),
		PoolGets:    gets,
		PoolPuts:    puts,
		PoolMisses:  misses,
	}, nil
}
