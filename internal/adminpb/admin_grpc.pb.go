package adminpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ControllerClient is the client API for Controller, matching the shape
// protoc-gen-go-grpc emits (here hand-authored — see codec.go).
type ControllerClient interface {
	ListClients(ctx context.Context, in *ListClientsRequest, opts ...grpc.CallOption) (*ListClientsReply, error)
	KickClient(ctx context.Context, in *KickClientRequest, opts ...grpc.CallOption) (*KickClientReply, error)
	Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsReply, error)
}

type controllerClient struct {
	cc grpc.ClientConnInterface
}

func NewControllerClient(cc grpc.ClientConnInterface) ControllerClient {
	return &controllerClient{cc}
}

func (c *controllerClient) ListClients(ctx context.Context, in *ListClientsRequest, opts ...grpc.CallOption) (*ListClientsReply, error) {
	out := new(ListClientsReply)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/admin.Controller/ListClients", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controllerClient) KickClient(ctx context.Context, in *KickClientRequest, opts ...grpc.CallOption) (*KickClientReply, error) {
	out := new(KickClientReply)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/admin.Controller/KickClient", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controllerClient) Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsReply, error) {
	out := new(StatsReply)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/admin.Controller/Stats", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ControllerServer is the server API for Controller. Implementations
// embed UnimplementedControllerServer for forward compatibility, the
// same way the teacher's servo.server embeds
// UnimplementedControllerServer.
type ControllerServer interface {
	ListClients(context.Context, *ListClientsRequest) (*ListClientsReply, error)
	KickClient(context.Context, *KickClientRequest) (*KickClientReply, error)
	Stats(context.Context, *StatsRequest) (*StatsReply, error)
}

// UnimplementedControllerServer returns Unimplemented for any method not
// overridden by the embedding type.
type UnimplementedControllerServer struct{}

func (UnimplementedControllerServer) ListClients(context.Context, *ListClientsRequest) (*ListClientsReply, error) {
	return nil, status.Error(codes.Unimplemented, "method ListClients not implemented")
}
func (UnimplementedControllerServer) KickClient(context.Context, *KickClientRequest) (*KickClientReply, error) {
	return nil, status.Error(codes.Unimplemented, "method KickClient not implemented")
}
func (UnimplementedControllerServer) Stats(context.Context, *StatsRequest) (*StatsReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Stats not implemented")
}

func RegisterControllerServer(s grpc.ServiceRegistrar, srv ControllerServer) {
	s.RegisterService(&Controller_ServiceDesc, srv)
}

func _Controller_ListClients_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListClientsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).ListClients(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/admin.Controller/ListClients"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).ListClients(ctx, req.(*ListClientsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Controller_KickClient_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(KickClientRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).KickClient(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/admin.Controller/KickClient"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).KickClient(ctx, req.(*KickClientRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Controller_Stats_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControllerServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/admin.Controller/Stats"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControllerServer).Stats(ctx, req.(*StatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Controller_ServiceDesc is the grpc.ServiceDesc for Controller, in the
// exact shape protoc-gen-go-grpc emits.
var Controller_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "admin.Controller",
	HandlerType: (*ControllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListClients", Handler: _Controller_ListClients_Handler},
		{MethodName: "KickClient", Handler: _Controller_KickClient_Handler},
		{MethodName: "Stats", Handler: _Controller_Stats_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "admin.proto",
}
