package node_test

import (
	"context"
	"testing"
	"time"

	"github.com/rechain/shardchain/internal/consensus"
	"github.com/rechain/shardchain/internal/node"
	"github.com/rechain/shardchain/internal/types"
	"github.com/stretchr/testify/require"
)

func TestSupervisorWiresOneActorPerShardPlusBlockShard(t *testing.T) {
	sup, err := node.New(node.Config{
		RootDir:      t.TempDir(),
		NumShards:    3,
		Address:      []byte("validator-1"),
		BlockTime:    10 * time.Millisecond,
		RoundTimeout: time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, sup.Start(context.Background()))
	defer sup.Stop()

	require.Len(t, sup.ShardLookups(), 3)
	require.NotNil(t, sup.BlockLookup())
}

func TestSupervisorDispatchToUnknownShardDoesNotPanic(t *testing.T) {
	sup, err := node.New(node.Config{
		RootDir:   t.TempDir(),
		NumShards: 1,
		Address:   []byte("validator-1"),
	})
	require.NoError(t, err)
	require.NoError(t, sup.Start(context.Background()))
	defer sup.Stop()

	sup.Dispatch(consensus.ConsensusMsg{ShardID: 99, Kind: consensus.MsgStartHeight, BlockNumber: 1})
}

func TestSupervisorRejectsZeroShards(t *testing.T) {
	_, err := node.New(node.Config{RootDir: t.TempDir(), NumShards: 0})
	require.Error(t, err)
}

func TestSupervisorRejectsTooManyShards(t *testing.T) {
	_, err := node.New(node.Config{RootDir: t.TempDir(), NumShards: types.MaxShards + 1})
	require.Error(t, err)
}
