package engine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rechain/shardchain/internal/store"
	"github.com/rechain/shardchain/internal/types"
)

// BlockEngine is the state-transition boundary for the block shard. Unlike
// ShardEngine, a block's content is the set of shard chunks the block
// proposer has already aggregated rather than a pool of transactions, so
// there is no propose/validate state-change pair here — only commit and
// the height/parent-hash queries the proposer needs.
type BlockEngine struct {
	store *store.BlockStore
}

func NewBlockEngine(s *store.BlockStore) *BlockEngine {
	return &BlockEngine{store: s}
}

// CommitBlock persists block at its height, with the same idempotence and
// conflicting-commit semantics as ShardEngine.CommitShardChunk.
func (e *BlockEngine) CommitBlock(ctx context.Context, block types.Block) error {
	confirmed, err := e.store.MaxBlockNumber(ctx)
	if err != nil {
		return err
	}
	bn := block.Header.Height.BlockNumber
	if bn <= confirmed {
		existing, err := e.store.GetBlock(ctx, bn)
		if err != nil {
			return err
		}
		if existing != nil && !bytes.Equal(existing.Hash, block.Hash) {
			return fmt.Errorf("%w: block height %d", ErrConflictingCommit, bn)
		}
		return nil
	}
	return e.store.PutBlock(ctx, block)
}

// GetConfirmedHeight returns the largest persisted block height.
func (e *BlockEngine) GetConfirmedHeight(ctx context.Context) (types.Height, error) {
	bn, err := e.store.MaxBlockNumber(ctx)
	if err != nil {
		return types.Height{}, err
	}
	return types.Height{ShardIndex: 0, BlockNumber: bn}, nil
}

// GetLastBlock returns the most recently committed block, for parent-hash
// chaining, or nil at genesis.
func (e *BlockEngine) GetLastBlock(ctx context.Context) (*types.Block, error) {
	return e.store.GetLastBlock(ctx)
}
