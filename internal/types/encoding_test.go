package types_test

import (
	"testing"

	"github.com/rechain/shardchain/internal/types"
	"github.com/stretchr/testify/require"
)

func TestEncodeBlockRoundTripsWithValidators(t *testing.T) {
	height := types.Height{ShardIndex: 0, BlockNumber: 1}
	block := types.Block{
		Header: types.BlockHeader{
			ParentHash: types.ZeroHash(),
			ChainID:    1,
			Version:    1,
			Height:     height,
		},
		Hash: []byte("block-hash"),
		ShardChunks: []types.ShardChunk{
			{Header: types.ShardHeader{Height: height}, Hash: []byte("chunk-hash")},
		},
		Validators: []types.Validator{
			{ShardID: 1, PublicKey: []byte("pub-1"), CurrentHeight: 5, RPCAddress: "peer:9000"},
			{ShardID: 2, PublicKey: []byte("pub-2"), CurrentHeight: 7},
		},
	}

	encoded, err := types.EncodeBlock(block)
	require.NoError(t, err)

	decoded, err := types.DecodeBlock(encoded)
	require.NoError(t, err)
	require.Equal(t, block.Hash, decoded.Hash)
	require.Len(t, decoded.Validators, 2)
	require.Equal(t, "peer:9000", decoded.Validators[0].RPCAddress)
	require.Equal(t, "", decoded.Validators[1].RPCAddress)
}

func TestEncodeBlockRoundTripsWithNoValidators(t *testing.T) {
	block := types.Block{
		Header: types.BlockHeader{ParentHash: types.ZeroHash(), Height: types.Height{BlockNumber: 1}},
		Hash:   []byte("block-hash"),
	}

	encoded, err := types.EncodeBlock(block)
	require.NoError(t, err)

	decoded, err := types.DecodeBlock(encoded)
	require.NoError(t, err)
	require.Equal(t, block.Hash, decoded.Hash)
	require.Empty(t, decoded.Validators)
}
