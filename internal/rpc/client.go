package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rechain/shardchain/internal/types"
)

// Fetcher dials a peer's advertised rpc_address on demand and implements
// both proposer.ShardChunksFetcher and proposer.BlocksFetcher, so a
// proposer's catch-up path never has to know this is grpc underneath.
type Fetcher struct{}

// NewFetcher returns a stateless catch-up fetcher; every call dials
// fresh since rpc_address varies per validator and per call.
func NewFetcher() *Fetcher {
	return &Fetcher{}
}

func dial(ctx context.Context, rpcAddress string) (*grpc.ClientConn, error) {
	cc, err := grpc.DialContext(ctx, rpcAddress,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", rpcAddress, err)
	}
	return cc, nil
}

// FetchShardChunks satisfies proposer.ShardChunksFetcher.
func (f *Fetcher) FetchShardChunks(ctx context.Context, rpcAddress string, shardID types.ShardId, startBlockNumber uint64) ([]types.ShardChunk, error) {
	cc, err := dial(ctx, rpcAddress)
	if err != nil {
		return nil, err
	}
	defer cc.Close()

	resp, err := NewCatchUpClient(cc).GetShardChunks(ctx, &ShardChunksRequest{
		ShardID:          shardID,
		StartBlockNumber: startBlockNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("rpc: fetch shard %d chunks from %s: %w", shardID, rpcAddress, err)
	}
	return resp.Chunks, nil
}

// FetchBlocks satisfies proposer.BlocksFetcher.
func (f *Fetcher) FetchBlocks(ctx context.Context, rpcAddress string, _ types.ShardId, startBlockNumber uint64) ([]types.Block, error) {
	cc, err := dial(ctx, rpcAddress)
	if err != nil {
		return nil, err
	}
	defer cc.Close()

	resp, err := NewCatchUpClient(cc).GetBlocks(ctx, &BlocksRequest{StartBlockNumber: startBlockNumber})
	if err != nil {
		return nil, fmt.Errorf("rpc: fetch blocks from %s: %w", rpcAddress, err)
	}
	return resp.Blocks, nil
}
