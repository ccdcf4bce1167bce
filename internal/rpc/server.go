package rpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/rechain/shardchain/internal/store"
	"github.com/rechain/shardchain/internal/types"
)

// ShardLookup is the read surface a catch-up server needs into one
// shard's committed chunks.
type ShardLookup interface {
	GetShardChunksPage(ctx context.Context, startBlockNumber uint64, stopBlockNumber *uint64, opts store.PageOptions) ([]types.ShardChunk, []byte, error)
}

// BlockLookup is the block-shard analogue of ShardLookup.
type BlockLookup interface {
	GetBlocksPage(ctx context.Context, startBlockNumber uint64, stopBlockNumber *uint64, opts store.PageOptions) ([]types.Block, []byte, error)
}

// Server answers catch-up pulls against this node's own committed state,
// one ShardLookup per shard plus the block-shard's BlockLookup.
type Server struct {
	shards map[types.ShardId]ShardLookup
	blocks BlockLookup

	grpcServer *grpc.Server
}

// NewServer wires shard and block lookups into a catch-up responder and
// registers it on a fresh grpc.Server.
func NewServer(shards map[types.ShardId]ShardLookup, blocks BlockLookup) *Server {
	s := &Server{shards: shards, blocks: blocks}
	s.grpcServer = grpc.NewServer()
	RegisterCatchUpServer(s.grpcServer, s)
	return s
}

// Serve blocks, accepting catch-up connections on addr.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	return s.grpcServer.Serve(lis)
}

// Stop gracefully drains in-flight requests and shuts the listener down.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// GetShardChunks answers a ShardChunksRequest by paging the requested
// shard's store forward from StartBlockNumber up to StopBlockNumber
// (exclusive) when set, or to its current tip otherwise.
func (s *Server) GetShardChunks(ctx context.Context, req *ShardChunksRequest) (*ShardChunksResponse, error) {
	lookup, ok := s.shards[req.ShardID]
	if !ok {
		return nil, fmt.Errorf("rpc: unknown shard %d", req.ShardID)
	}

	var chunks []types.ShardChunk
	var token []byte
	for {
		page, next, err := lookup.GetShardChunksPage(ctx, req.StartBlockNumber, req.StopBlockNumber, store.PageOptions{PageToken: token})
		if err != nil {
			return nil, fmt.Errorf("rpc: page shard %d chunks: %w", req.ShardID, err)
		}
		chunks = append(chunks, page...)
		if next == nil {
			break
		}
		token = next
	}
	return &ShardChunksResponse{Chunks: chunks}, nil
}

// GetBlocks answers a BlocksRequest by paging the block store forward
// from StartBlockNumber up to StopBlockNumber (exclusive) when set, or to
// its current tip otherwise.
func (s *Server) GetBlocks(ctx context.Context, req *BlocksRequest) (*BlocksResponse, error) {
	var blocks []types.Block
	var token []byte
	for {
		page, next, err := s.blocks.GetBlocksPage(ctx, req.StartBlockNumber, req.StopBlockNumber, store.PageOptions{PageToken: token})
		if err != nil {
			return nil, fmt.Errorf("rpc: page block chunks: %w", err)
		}
		blocks = append(blocks, page...)
		if next == nil {
			break
		}
		token = next
	}
	return &BlocksResponse{Blocks: blocks}, nil
}
