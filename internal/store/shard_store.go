package store

import (
	"context"

	"github.com/rechain/shardchain/internal/types"
)

// ShardStore is the height-keyed persistent log of committed shard chunks
// for one data shard.
type ShardStore struct {
	kv KV
}

// NewShardStore wraps kv as a ShardStore. Each node opens one private
// ShardStore per data shard; the kv handle is not meant to be shared.
func NewShardStore(kv KV) *ShardStore {
	return &ShardStore{kv: kv}
}

// PutShardChunk persists chunk at its header's block number. Writing the
// same chunk twice at the same height is idempotent; the caller (the
// engine) is responsible for refusing a conflicting chunk at an already
// committed height.
func (s *ShardStore) PutShardChunk(ctx context.Context, chunk types.ShardChunk) error {
	encoded, err := types.EncodeShardChunk(chunk)
	if err != nil {
		return err
	}
	key := makeKey(RootPrefixShard, chunk.Header.Height.BlockNumber)
	return s.kv.Set(ctx, key, encoded)
}

// GetShardChunk returns the chunk committed at blockNumber, or nil if none
// has been committed there yet.
func (s *ShardStore) GetShardChunk(ctx context.Context, blockNumber uint64) (*types.ShardChunk, error) {
	raw, err := s.kv.Get(ctx, makeKey(RootPrefixShard, blockNumber))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	chunk, err := types.DecodeShardChunk(raw)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// GetLastShardChunk returns the most recently committed chunk, or nil if
// the store is empty. It is a one-entry reverse page scan; more than one
// result would indicate corruption and is reported loudly.
func (s *ShardStore) GetLastShardChunk(ctx context.Context) (*types.ShardChunk, error) {
	page, err := getRange(ctx, s.kv, RootPrefixShard, 0, nil, PageOptions{Reverse: true, PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(page.Values) > 1 {
		return nil, ErrTooManyResults
	}
	if len(page.Values) == 0 {
		return nil, nil
	}
	chunk, err := types.DecodeShardChunk(page.Values[0])
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MaxBlockNumber returns the highest committed block number, or 0 if the
// shard has never committed anything.
func (s *ShardStore) MaxBlockNumber(ctx context.Context) (uint64, error) {
	chunk, err := s.GetLastShardChunk(ctx)
	if err != nil {
		return 0, err
	}
	if chunk == nil {
		return 0, nil
	}
	return chunk.Header.Height.BlockNumber, nil
}

// GetShardChunksPage returns one page of chunks in [startBlockNumber, stopBlockNumber).
func (s *ShardStore) GetShardChunksPage(ctx context.Context, startBlockNumber uint64, stopBlockNumber *uint64, opts PageOptions) ([]types.ShardChunk, []byte, error) {
	page, err := getRange(ctx, s.kv, RootPrefixShard, startBlockNumber, stopBlockNumber, opts)
	if err != nil {
		return nil, nil, err
	}
	chunks := make([]types.ShardChunk, 0, len(page.Values))
	for _, v := range page.Values {
		c, err := types.DecodeShardChunk(v)
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, page.NextPageToken, nil
}

// GetShardChunks walks every page in [startBlockNumber, stopBlockNumber)
// and returns the concatenated result, for callers that want the whole
// range in one call.
func (s *ShardStore) GetShardChunks(ctx context.Context, startBlockNumber uint64, stopBlockNumber *uint64) ([]types.ShardChunk, error) {
	var all []types.ShardChunk
	var token []byte
	for {
		chunks, next, err := s.GetShardChunksPage(ctx, startBlockNumber, stopBlockNumber, PageOptions{PageSize: DefaultPageSize, PageToken: token})
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
		if next == nil {
			break
		}
		token = next
	}
	return all, nil
}

func (s *ShardStore) Close() error {
	return s.kv.Close()
}
