package proposer_test

import (
	"context"
	"testing"
	"time"

	"github.com/rechain/shardchain/internal/engine"
	"github.com/rechain/shardchain/internal/proposer"
	"github.com/rechain/shardchain/internal/store"
	"github.com/rechain/shardchain/internal/types"
	"github.com/stretchr/testify/require"
)

func newBlockEngine(t *testing.T) *engine.BlockEngine {
	t.Helper()
	kv, err := store.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return engine.NewBlockEngine(store.NewBlockStore(kv))
}

func shardChunkFor(shardIndex types.ShardId, bn uint64) types.ShardChunk {
	header := types.ShardHeader{
		ParentHash: types.ZeroHash(),
		Height:     types.Height{ShardIndex: shardIndex, BlockNumber: bn},
	}
	encoded, _ := types.EncodeShardHeader(header)
	return types.ShardChunk{Header: header, Hash: types.HashHeader(encoded)}
}

// S4: block aggregation happy path.
func TestBlockProposerAggregatesAllShards(t *testing.T) {
	ctx := context.Background()
	rx := make(chan types.ShardChunk, 10)
	p := proposer.NewBlockProposer([]byte("validator-1"), newBlockEngine(t), rx, 3, nil, nil, nil)

	rx <- shardChunkFor(1, 1)
	rx <- shardChunkFor(2, 1)
	rx <- shardChunkFor(3, 1)

	height := types.Height{ShardIndex: 0, BlockNumber: 1}
	proposal, err := p.ProposeValue(ctx, height, 0, time.Second)
	require.NoError(t, err)

	block, ok := proposal.BlockValueOf()
	require.True(t, ok)
	require.Len(t, block.ShardChunks, 3)

	encoded, err := types.EncodeBlockHeader(block.Header)
	require.NoError(t, err)
	require.Equal(t, types.HashHeader(encoded), block.Hash)
}

// S5: block aggregation timeout — proposes with a partial set, no error.
func TestBlockProposerProposesPartialOnTimeout(t *testing.T) {
	ctx := context.Background()
	rx := make(chan types.ShardChunk, 10)
	p := proposer.NewBlockProposer([]byte("validator-1"), newBlockEngine(t), rx, 3, nil, nil, nil)

	rx <- shardChunkFor(1, 1)
	rx <- shardChunkFor(2, 1)

	height := types.Height{ShardIndex: 0, BlockNumber: 1}
	proposal, err := p.ProposeValue(ctx, height, 0, 50*time.Millisecond)
	require.NoError(t, err)

	block, ok := proposal.BlockValueOf()
	require.True(t, ok)
	require.Len(t, block.ShardChunks, 2)
}

func TestBlockProposerBuffersOutOfOrderHeights(t *testing.T) {
	ctx := context.Background()
	rx := make(chan types.ShardChunk, 10)
	p := proposer.NewBlockProposer([]byte("validator-1"), newBlockEngine(t), rx, 2, nil, nil, nil)

	// A chunk for height 2 arrives while we're collecting for height 1; it
	// must be retained, not dropped, for its own future collection.
	rx <- shardChunkFor(1, 2)
	rx <- shardChunkFor(1, 1)
	rx <- shardChunkFor(2, 1)

	height1 := types.Height{ShardIndex: 0, BlockNumber: 1}
	proposal, err := p.ProposeValue(ctx, height1, 0, time.Second)
	require.NoError(t, err)
	block, _ := proposal.BlockValueOf()
	require.Len(t, block.ShardChunks, 2)

	shardHash, err := proposal.ShardHashOf()
	require.NoError(t, err)
	require.NoError(t, p.Decide(ctx, height1, 0, shardHash))

	rx <- shardChunkFor(2, 2)
	height2 := types.Height{ShardIndex: 0, BlockNumber: 2}
	proposal2, err := p.ProposeValue(ctx, height2, 0, time.Second)
	require.NoError(t, err)
	block2, _ := proposal2.BlockValueOf()
	require.Len(t, block2.ShardChunks, 2)
}

func TestBlockProposerDecideCommitsAndPublishes(t *testing.T) {
	ctx := context.Background()
	rx := make(chan types.ShardChunk, 10)
	blockTx := make(chan types.Block, 1)
	p := proposer.NewBlockProposer([]byte("validator-1"), newBlockEngine(t), rx, 1, blockTx, nil, nil)

	rx <- shardChunkFor(1, 1)
	height := types.Height{ShardIndex: 0, BlockNumber: 1}
	proposal, err := p.ProposeValue(ctx, height, 0, time.Second)
	require.NoError(t, err)

	shardHash, err := proposal.ShardHashOf()
	require.NoError(t, err)
	require.NoError(t, p.Decide(ctx, height, 0, shardHash))

	confirmed, err := p.GetConfirmedHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), confirmed.BlockNumber)

	select {
	case block := <-blockTx:
		require.Equal(t, uint64(1), block.Header.Height.BlockNumber)
	default:
		t.Fatal("expected a block on the external stream")
	}
}

// S6: catch-up for the block proposer.
type stubBlocksFetcher struct {
	blocks []types.Block
}

func (f *stubBlocksFetcher) FetchBlocks(_ context.Context, _ string, _ types.ShardId, startBlockNumber uint64) ([]types.Block, error) {
	var out []types.Block
	for _, b := range f.blocks {
		if b.Header.Height.BlockNumber >= startBlockNumber {
			out = append(out, b)
		}
	}
	return out, nil
}

func TestBlockProposerRegisterValidatorCatchesUp(t *testing.T) {
	ctx := context.Background()
	blockTx := make(chan types.Block, 10)

	var stub stubBlocksFetcher
	for bn := uint64(6); bn <= 10; bn++ {
		header := types.BlockHeader{ParentHash: types.ZeroHash(), Height: types.Height{ShardIndex: 0, BlockNumber: bn}}
		encoded, _ := types.EncodeBlockHeader(header)
		stub.blocks = append(stub.blocks, types.Block{Header: header, Hash: types.HashHeader(encoded)})
	}

	p := proposer.NewBlockProposer([]byte("validator-1"), newBlockEngine(t), nil, 3, blockTx, &stub, nil)

	validator := types.Validator{ShardID: 0, RPCAddress: "peer:9000", CurrentHeight: 10}
	require.NoError(t, p.RegisterValidator(ctx, validator))

	require.Len(t, blockTx, 5)
}
