// Package rpc implements the catch-up pull a lagging validator issues
// against a peer's advertised rpc_address: "give me everything you have
// committed at or after this height." There is no protoc toolchain in
// this tree, so the service descriptor below is hand-written rather than
// generated, and request/response structs travel as RLP via Codec
// instead of protobuf.
package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName          = "shardchain.CatchUp"
	methodGetShardChunks = "/shardchain.CatchUp/GetShardChunks"
	methodGetBlocks      = "/shardchain.CatchUp/GetBlocks"
)

// CatchUpServer is implemented by a node that can answer catch-up pulls
// for its own shard.
type CatchUpServer interface {
	GetShardChunks(ctx context.Context, req *ShardChunksRequest) (*ShardChunksResponse, error)
	GetBlocks(ctx context.Context, req *BlocksRequest) (*BlocksResponse, error)
}

func _CatchUp_GetShardChunks_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ShardChunksRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatchUpServer).GetShardChunks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetShardChunks}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatchUpServer).GetShardChunks(ctx, req.(*ShardChunksRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _CatchUp_GetBlocks_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BlocksRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatchUpServer).GetBlocks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetBlocks}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatchUpServer).GetBlocks(ctx, req.(*BlocksRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var catchUpServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CatchUpServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetShardChunks", Handler: _CatchUp_GetShardChunks_Handler},
		{MethodName: "GetBlocks", Handler: _CatchUp_GetBlocks_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/rpc/service.go",
}

// RegisterCatchUpServer attaches srv's catch-up handlers to s.
func RegisterCatchUpServer(s *grpc.Server, srv CatchUpServer) {
	s.RegisterService(&catchUpServiceDesc, srv)
}

// CatchUpClient is the client-side counterpart dialed against a peer's
// rpc_address.
type CatchUpClient interface {
	GetShardChunks(ctx context.Context, req *ShardChunksRequest, opts ...grpc.CallOption) (*ShardChunksResponse, error)
	GetBlocks(ctx context.Context, req *BlocksRequest, opts ...grpc.CallOption) (*BlocksResponse, error)
}

type catchUpClient struct {
	cc *grpc.ClientConn
}

// NewCatchUpClient wraps an established connection.
func NewCatchUpClient(cc *grpc.ClientConn) CatchUpClient {
	return &catchUpClient{cc: cc}
}

func (c *catchUpClient) GetShardChunks(ctx context.Context, req *ShardChunksRequest, opts ...grpc.CallOption) (*ShardChunksResponse, error) {
	out := new(ShardChunksResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, methodGetShardChunks, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *catchUpClient) GetBlocks(ctx context.Context, req *BlocksRequest, opts ...grpc.CallOption) (*BlocksResponse, error) {
	out := new(BlocksResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, methodGetBlocks, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
