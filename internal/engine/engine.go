// Package engine implements the deterministic state-transition boundary:
// propose a state change, validate one proposed by a peer, and commit an
// accepted chunk or block. This is the only place that touches the
// persistent store's write path.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/rechain/shardchain/internal/mempool"
	"github.com/rechain/shardchain/internal/store"
	"github.com/rechain/shardchain/internal/types"
	"lukechampine.com/blake3"
)

// ErrConflictingCommit is returned when a chunk or block is committed at a
// height that already holds a different value. This is a safety violation
// upstream in consensus, not a recoverable local condition: the caller
// MUST stop the affected shard rather than swallow the error.
var ErrConflictingCommit = errors.New("engine: conflicting commit at already-decided height")

// StateChange is the functional output of ProposeStateChange: a batch of
// transactions and the state root that applying them deterministically
// produces.
type StateChange struct {
	ShardID      types.ShardId
	NewStateRoot []byte
	Transactions [][]byte
}

// computeStateRoot deterministically folds a batch of transactions into
// the previous root. It never touches persistent state or wall-clock time.
func computeStateRoot(prevRoot []byte, txs [][]byte) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(struct {
		PrevRoot     []byte
		Transactions [][]byte
	}{PrevRoot: prevRoot, Transactions: txs})
	if err != nil {
		return nil, fmt.Errorf("engine: encode state change: %w", err)
	}
	sum := blake3.Sum256(encoded)
	return sum[:], nil
}

// ShardEngine is the state-transition boundary for one data shard.
type ShardEngine struct {
	shardID types.ShardId
	store   *store.ShardStore
	pool    *mempool.Pool
}

// NewShardEngine wires a ShardEngine to its private store and mempool.
func NewShardEngine(shardID types.ShardId, s *store.ShardStore, pool *mempool.Pool) *ShardEngine {
	return &ShardEngine{shardID: shardID, store: s, pool: pool}
}

// currentStateRoot returns the shard root of the last committed chunk, or
// a zero root at genesis.
func (e *ShardEngine) currentStateRoot(ctx context.Context) ([]byte, error) {
	last, err := e.store.GetLastShardChunk(ctx)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return types.ZeroHash(), nil
	}
	return last.Header.ShardRoot, nil
}

// ProposeStateChange drains the currently executable transaction set and
// computes the post-apply state root. Purely functional over committed
// state plus the pending pool; it MUST NOT mutate persistent state.
func (e *ShardEngine) ProposeStateChange(ctx context.Context) (StateChange, error) {
	txs := e.pool.Drain()
	prevRoot, err := e.currentStateRoot(ctx)
	if err != nil {
		return StateChange{}, err
	}
	newRoot, err := computeStateRoot(prevRoot, txs)
	if err != nil {
		return StateChange{}, err
	}
	return StateChange{ShardID: e.shardID, NewStateRoot: newRoot, Transactions: txs}, nil
}

// ValidateStateChange re-executes the provided transactions against
// committed state and reports whether the resulting root matches. A
// mismatch is a normal Invalid verdict, not an error: a peer cannot crash
// this node by proposing a bad state change.
func (e *ShardEngine) ValidateStateChange(ctx context.Context, sc *StateChange) (bool, error) {
	prevRoot, err := e.currentStateRoot(ctx)
	if err != nil {
		return false, err
	}
	expected, err := computeStateRoot(prevRoot, sc.Transactions)
	if err != nil {
		return false, err
	}
	return bytes.Equal(expected, sc.NewStateRoot), nil
}

// CommitShardChunk persists chunk at its height. It is idempotent for an
// identical chunk re-committed at an already-decided height, and returns
// ErrConflictingCommit for a differing one — a condition the caller must
// treat as fatal to the shard.
func (e *ShardEngine) CommitShardChunk(ctx context.Context, chunk types.ShardChunk) error {
	confirmed, err := e.store.MaxBlockNumber(ctx)
	if err != nil {
		return err
	}
	bn := chunk.Header.Height.BlockNumber
	if bn <= confirmed {
		existing, err := e.store.GetShardChunk(ctx, bn)
		if err != nil {
			return err
		}
		if existing != nil && !bytes.Equal(existing.Hash, chunk.Hash) {
			return fmt.Errorf("%w: shard %d height %d", ErrConflictingCommit, e.shardID, bn)
		}
		return nil
	}
	return e.store.PutShardChunk(ctx, chunk)
}

// GetConfirmedHeight returns the largest persisted height for this shard.
// Block number 0 at genesis.
func (e *ShardEngine) GetConfirmedHeight(ctx context.Context) (types.Height, error) {
	bn, err := e.store.MaxBlockNumber(ctx)
	if err != nil {
		return types.Height{}, err
	}
	return types.Height{ShardIndex: e.shardID, BlockNumber: bn}, nil
}
