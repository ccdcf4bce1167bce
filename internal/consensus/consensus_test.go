package consensus_test

import (
	"context"
	"testing"
	"time"

	"github.com/rechain/shardchain/internal/consensus"
	"github.com/rechain/shardchain/internal/engine"
	"github.com/rechain/shardchain/internal/mempool"
	"github.com/rechain/shardchain/internal/proposer"
	"github.com/rechain/shardchain/internal/store"
	"github.com/rechain/shardchain/internal/types"
	"github.com/stretchr/testify/require"
)

func TestActorAdvancesHeightsOnItsOwnTicks(t *testing.T) {
	kv, err := store.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer kv.Close()

	eng := engine.NewShardEngine(1, store.NewShardStore(kv), mempool.New(0, 0))
	p := proposer.NewShardProposer([]byte("validator-1"), 1, eng, nil, nil)

	params := consensus.ConsensusParams{
		StartHeight: types.Height{ShardIndex: 1, BlockNumber: 1},
		Address:     []byte("validator-1"),
	}
	actor := consensus.Spawn(1, params, p, 10*time.Millisecond, time.Second)
	defer actor.Stop()

	require.Eventually(t, func() bool {
		h, err := p.GetConfirmedHeight(context.Background())
		return err == nil && h.BlockNumber >= 3
	}, 2*time.Second, 20*time.Millisecond)
}

func TestActorStartHeightResetsTarget(t *testing.T) {
	kv, err := store.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer kv.Close()

	eng := engine.NewShardEngine(1, store.NewShardStore(kv), mempool.New(0, 0))
	p := proposer.NewShardProposer([]byte("validator-1"), 1, eng, nil, nil)

	params := consensus.ConsensusParams{StartHeight: types.Height{ShardIndex: 1, BlockNumber: 1}}
	actor := consensus.Spawn(1, params, p, 10*time.Millisecond, time.Second)
	defer actor.Stop()

	actor.Cast(consensus.ConsensusMsg{ShardID: 1, Kind: consensus.MsgStartHeight, BlockNumber: 42})
	require.Equal(t, types.ShardId(1), actor.ShardID())
	require.Eventually(t, func() bool {
		h, err := p.GetConfirmedHeight(context.Background())
		return err == nil && h.BlockNumber >= 42
	}, 2*time.Second, 20*time.Millisecond)
}
