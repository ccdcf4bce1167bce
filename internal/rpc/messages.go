package rpc

import "github.com/rechain/shardchain/internal/types"

// ShardChunksRequest asks a peer for every shard chunk it has committed at
// or after startBlockNumber (and, if set, before stopBlockNumber) on
// shardID — the catch-up pull a lagging validator issues against a
// peer's advertised rpc_address.
type ShardChunksRequest struct {
	ShardID          types.ShardId
	StartBlockNumber uint64
	StopBlockNumber  *uint64 `rlp:"optional"`
}

// ShardChunksResponse carries the requested range, in height order.
type ShardChunksResponse struct {
	Chunks []types.ShardChunk
}

// BlocksRequest is the block-shard analogue of ShardChunksRequest.
type BlocksRequest struct {
	StartBlockNumber uint64
	StopBlockNumber  *uint64 `rlp:"optional"`
}

// BlocksResponse carries the requested range, in height order.
type BlocksResponse struct {
	Blocks []types.Block
}
