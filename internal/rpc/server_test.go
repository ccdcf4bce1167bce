package rpc_test

import (
	"context"
	"testing"

	"github.com/rechain/shardchain/internal/engine"
	"github.com/rechain/shardchain/internal/mempool"
	"github.com/rechain/shardchain/internal/rpc"
	"github.com/rechain/shardchain/internal/store"
	"github.com/rechain/shardchain/internal/types"
	"github.com/stretchr/testify/require"
)

func committedShardEngine(t *testing.T, n int) (*engine.ShardEngine, *store.ShardStore) {
	t.Helper()
	kv, err := store.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	shardStore := store.NewShardStore(kv)
	eng := engine.NewShardEngine(1, shardStore, mempool.New(0, 0))

	ctx := context.Background()
	for i := 0; i < n; i++ {
		sc, err := eng.ProposeStateChange(ctx)
		require.NoError(t, err)
		header := types.ShardHeader{
			Height:    types.Height{ShardIndex: 1, BlockNumber: uint64(i + 1)},
			ShardRoot: sc.NewStateRoot,
		}
		encoded, err := types.EncodeShardHeader(header)
		require.NoError(t, err)
		chunk := types.ShardChunk{Header: header, Hash: types.HashHeader(encoded), Transactions: sc.Transactions}
		require.NoError(t, eng.CommitShardChunk(ctx, chunk))
	}
	return eng, shardStore
}

func TestServerGetShardChunksReturnsFullRangeAcrossPages(t *testing.T) {
	ctx := context.Background()
	_, shardStore := committedShardEngine(t, 5)

	srv := rpc.NewServer(map[types.ShardId]rpc.ShardLookup{1: shardStore}, nil)

	resp, err := srv.GetShardChunks(ctx, &rpc.ShardChunksRequest{ShardID: 1, StartBlockNumber: 2})
	require.NoError(t, err)
	require.Len(t, resp.Chunks, 4)
	require.Equal(t, uint64(2), resp.Chunks[0].Header.Height.BlockNumber)
	require.Equal(t, uint64(5), resp.Chunks[len(resp.Chunks)-1].Header.Height.BlockNumber)
}

func TestServerGetShardChunksRejectsUnknownShard(t *testing.T) {
	ctx := context.Background()
	srv := rpc.NewServer(map[types.ShardId]rpc.ShardLookup{}, nil)

	_, err := srv.GetShardChunks(ctx, &rpc.ShardChunksRequest{ShardID: 9, StartBlockNumber: 0})
	require.Error(t, err)
}
