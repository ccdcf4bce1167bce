package store

import (
	"context"

	"github.com/rechain/shardchain/internal/types"
)

// BlockStore is the height-keyed persistent log of committed blocks on the
// block shard, the Block-typed counterpart of ShardStore.
type BlockStore struct {
	kv KV
}

func NewBlockStore(kv KV) *BlockStore {
	return &BlockStore{kv: kv}
}

func (s *BlockStore) PutBlock(ctx context.Context, block types.Block) error {
	encoded, err := types.EncodeBlock(block)
	if err != nil {
		return err
	}
	key := makeKey(RootPrefixBlock, block.Header.Height.BlockNumber)
	return s.kv.Set(ctx, key, encoded)
}

// GetBlock returns the block committed at blockNumber, or nil if none has
// been committed there yet.
func (s *BlockStore) GetBlock(ctx context.Context, blockNumber uint64) (*types.Block, error) {
	raw, err := s.kv.Get(ctx, makeKey(RootPrefixBlock, blockNumber))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	block, err := types.DecodeBlock(raw)
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// GetLastBlock returns the most recently committed block, or nil if the
// block shard has never committed anything, for parent-hash chaining.
func (s *BlockStore) GetLastBlock(ctx context.Context) (*types.Block, error) {
	page, err := getRange(ctx, s.kv, RootPrefixBlock, 0, nil, PageOptions{Reverse: true, PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(page.Values) > 1 {
		return nil, ErrTooManyResults
	}
	if len(page.Values) == 0 {
		return nil, nil
	}
	block, err := types.DecodeBlock(page.Values[0])
	if err != nil {
		return nil, err
	}
	return &block, nil
}

func (s *BlockStore) MaxBlockNumber(ctx context.Context) (uint64, error) {
	block, err := s.GetLastBlock(ctx)
	if err != nil {
		return 0, err
	}
	if block == nil {
		return 0, nil
	}
	return block.Header.Height.BlockNumber, nil
}

func (s *BlockStore) GetBlocksPage(ctx context.Context, startBlockNumber uint64, stopBlockNumber *uint64, opts PageOptions) ([]types.Block, []byte, error) {
	page, err := getRange(ctx, s.kv, RootPrefixBlock, startBlockNumber, stopBlockNumber, opts)
	if err != nil {
		return nil, nil, err
	}
	blocks := make([]types.Block, 0, len(page.Values))
	for _, v := range page.Values {
		b, err := types.DecodeBlock(v)
		if err != nil {
			return nil, nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, page.NextPageToken, nil
}

func (s *BlockStore) GetBlocks(ctx context.Context, startBlockNumber uint64, stopBlockNumber *uint64) ([]types.Block, error) {
	var all []types.Block
	var token []byte
	for {
		blocks, next, err := s.GetBlocksPage(ctx, startBlockNumber, stopBlockNumber, PageOptions{PageSize: DefaultPageSize, PageToken: token})
		if err != nil {
			return nil, err
		}
		all = append(all, blocks...)
		if next == nil {
			break
		}
		token = next
	}
	return all, nil
}

func (s *BlockStore) Close() error {
	return s.kv.Close()
}
