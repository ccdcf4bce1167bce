// Package proposer implements the per-shard and block-shard proposer: the
// component that turns local state into a candidate value, validates
// candidates from peers, and applies consensus decisions to the
// persistent engine.
package proposer

import (
	"context"
	"time"

	"github.com/rechain/shardchain/internal/types"
)

// Validity is the verdict add_proposed_value returns for a peer's
// candidate. A bad value is Invalid, never an error: a peer cannot crash
// this node by sending a malformed proposal.
type Validity int

const (
	Invalid Validity = iota
	Valid
)

func (v Validity) String() string {
	if v == Valid {
		return "Valid"
	}
	return "Invalid"
}

// Proposer is the capability set shared by ShardProposer and BlockProposer:
// build a candidate, judge a peer's candidate, apply a decision, report
// confirmed height, and catch up a lagging peer.
type Proposer interface {
	ProposeValue(ctx context.Context, height types.Height, round int64, timeout time.Duration) (types.FullProposal, error)
	AddProposedValue(ctx context.Context, proposal *types.FullProposal) (Validity, error)
	Decide(ctx context.Context, height types.Height, round int64, hash types.ShardHash) error
	GetConfirmedHeight(ctx context.Context) (types.Height, error)
	RegisterValidator(ctx context.Context, validator types.Validator) error
}

// ShardChunksFetcher pulls missing shard chunks from a peer during
// catch-up. Implemented by internal/rpc against the catch-up service.
type ShardChunksFetcher interface {
	FetchShardChunks(ctx context.Context, rpcAddress string, shardID types.ShardId, startBlockNumber uint64) ([]types.ShardChunk, error)
}

// BlocksFetcher pulls missing blocks from a peer during catch-up.
type BlocksFetcher interface {
	FetchBlocks(ctx context.Context, rpcAddress string, shardID types.ShardId, startBlockNumber uint64) ([]types.Block, error)
}

// ShardChunkLookup resolves a previously committed chunk for a given
// shard/height, used by BlockProposer to cross-check embedded chunks
// against this node's own shard history before accepting a proposal.
type ShardChunkLookup interface {
	GetShardChunk(ctx context.Context, shardID types.ShardId, blockNumber uint64) (*types.ShardChunk, error)
}
