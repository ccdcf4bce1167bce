package engine_test

import (
	"context"
	"testing"

	"github.com/rechain/shardchain/internal/engine"
	"github.com/rechain/shardchain/internal/mempool"
	"github.com/rechain/shardchain/internal/store"
	"github.com/rechain/shardchain/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestShardEngine(t *testing.T) (*engine.ShardEngine, *mempool.Pool) {
	t.Helper()
	kv, err := store.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	pool := mempool.New(0, 0)
	return engine.NewShardEngine(1, store.NewShardStore(kv), pool), pool
}

func buildChunk(t *testing.T, e *engine.ShardEngine, ctx context.Context, height types.Height) types.ShardChunk {
	t.Helper()
	sc, err := e.ProposeStateChange(ctx)
	require.NoError(t, err)
	header := types.ShardHeader{
		ParentHash: types.ZeroHash(),
		Timestamp:  types.CurrentTime(),
		Height:     height,
		ShardRoot:  sc.NewStateRoot,
	}
	encoded, err := types.EncodeShardHeader(header)
	require.NoError(t, err)
	return types.ShardChunk{
		Header:       header,
		Hash:         types.HashHeader(encoded),
		Transactions: sc.Transactions,
	}
}

func TestProposeStateChangeDeterministic(t *testing.T) {
	e, pool := newTestShardEngine(t)
	ctx := context.Background()

	pool.Add([]byte("tx-1"))
	pool.Add([]byte("tx-2"))

	sc1, err := e.ProposeStateChange(ctx)
	require.NoError(t, err)

	// Re-queue the same transactions: proposing again from identical
	// committed state must reproduce the same root.
	pool.Add([]byte("tx-1"))
	pool.Add([]byte("tx-2"))
	sc2, err := e.ProposeStateChange(ctx)
	require.NoError(t, err)

	require.Equal(t, sc1.NewStateRoot, sc2.NewStateRoot)
}

func TestValidateStateChangeRejectsMismatch(t *testing.T) {
	e, pool := newTestShardEngine(t)
	ctx := context.Background()
	pool.Add([]byte("tx-1"))

	sc, err := e.ProposeStateChange(ctx)
	require.NoError(t, err)

	ok, err := e.ValidateStateChange(ctx, &sc)
	require.NoError(t, err)
	require.True(t, ok)

	tampered := sc
	tampered.NewStateRoot = []byte("not-the-real-root")
	ok, err = e.ValidateStateChange(ctx, &tampered)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommitShardChunkIdempotent(t *testing.T) {
	e, _ := newTestShardEngine(t)
	ctx := context.Background()

	height := types.Height{ShardIndex: 1, BlockNumber: 1}
	chunk := buildChunk(t, e, ctx, height)

	require.NoError(t, e.CommitShardChunk(ctx, chunk))
	require.NoError(t, e.CommitShardChunk(ctx, chunk))

	confirmed, err := e.GetConfirmedHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), confirmed.BlockNumber)
}

func TestCommitShardChunkRejectsConflict(t *testing.T) {
	e, _ := newTestShardEngine(t)
	ctx := context.Background()

	height := types.Height{ShardIndex: 1, BlockNumber: 1}
	chunk := buildChunk(t, e, ctx, height)
	require.NoError(t, e.CommitShardChunk(ctx, chunk))

	conflicting := chunk
	conflicting.Hash = []byte("a-different-hash-entirely")
	err := e.CommitShardChunk(ctx, conflicting)
	require.ErrorIs(t, err, engine.ErrConflictingCommit)
}

func TestGetConfirmedHeightGenesis(t *testing.T) {
	e, _ := newTestShardEngine(t)
	ctx := context.Background()

	height, err := e.GetConfirmedHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), height.BlockNumber)
}
