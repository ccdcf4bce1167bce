package proposer

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/rechain/shardchain/internal/engine"
	"github.com/rechain/shardchain/internal/types"
)

// ShardProposer is the per-data-shard proposer: it builds candidate
// ShardChunks, validates peer proposals, and on decision commits and
// broadcasts.
//
// A ShardProposer is owned by exactly one consensus task and mutates its
// own tables without locking; concurrent callers are not supported.
type ShardProposer struct {
	shardID types.ShardId
	address []byte

	recentChunks   []types.ShardChunk
	proposedChunks map[types.ShardHash]types.FullProposal

	txDecision chan<- types.ShardChunk
	fetcher    ShardChunksFetcher

	engine *engine.ShardEngine
	logger *log.Logger
}

var _ Proposer = (*ShardProposer)(nil)

// NewShardProposer constructs a ShardProposer. txDecision and fetcher are
// both optional: a nil txDecision means decided chunks are not published
// anywhere (useful in isolated tests); a nil fetcher disables catch-up.
func NewShardProposer(address []byte, shardID types.ShardId, eng *engine.ShardEngine, txDecision chan<- types.ShardChunk, fetcher ShardChunksFetcher) *ShardProposer {
	return &ShardProposer{
		shardID:        shardID,
		address:        address,
		proposedChunks: make(map[types.ShardHash]types.FullProposal),
		txDecision:     txDecision,
		fetcher:        fetcher,
		engine:         eng,
		logger:         log.New(os.Stderr, "shardproposer: ", log.LstdFlags),
	}
}

func (p *ShardProposer) lastChunkHash() []byte {
	if len(p.recentChunks) == 0 {
		return types.ZeroHash()
	}
	return p.recentChunks[len(p.recentChunks)-1].Hash
}

// ProposeValue builds a candidate ShardChunk for height. timeout is
// accepted for interface parity with BlockProposer and otherwise unused,
// matching the source this is ported from.
func (p *ShardProposer) ProposeValue(ctx context.Context, height types.Height, round int64, _ time.Duration) (types.FullProposal, error) {
	sc, err := p.engine.ProposeStateChange(ctx)
	if err != nil {
		return types.FullProposal{}, err
	}

	header := types.ShardHeader{
		ParentHash: p.lastChunkHash(),
		Timestamp:  types.CurrentTime(),
		Height:     height,
		ShardRoot:  sc.NewStateRoot,
	}
	encoded, err := types.EncodeShardHeader(header)
	if err != nil {
		return types.FullProposal{}, err
	}
	hash := types.HashHeader(encoded)

	chunk := types.ShardChunk{
		Header:       header,
		Hash:         hash,
		Transactions: sc.Transactions,
	}

	shardHash := types.NewShardHash(hash, height.ShardIndex)
	proposal := types.FullProposal{
		Height:        height,
		Round:         round,
		Proposer:      p.address,
		ProposedValue: types.ShardValue(chunk),
	}
	p.proposedChunks[shardHash] = proposal
	return proposal, nil
}

// AddProposedValue validates a peer's candidate by reconstructing the
// implied state change and asking the engine whether it is reachable from
// committed state. Any non-Shard payload is Invalid.
func (p *ShardProposer) AddProposedValue(ctx context.Context, proposal *types.FullProposal) (Validity, error) {
	chunk, ok := proposal.ShardChunkValue()
	if !ok {
		p.logger.Printf("rejecting non-shard proposed value for height %s", proposal.Height)
		return Invalid, nil
	}

	shardHash, err := proposal.ShardHashOf()
	if err != nil {
		return Invalid, err
	}
	p.proposedChunks[shardHash] = *proposal

	sc := engine.StateChange{
		ShardID:      chunk.Header.Height.ShardIndex,
		NewStateRoot: chunk.Header.ShardRoot,
		Transactions: chunk.Transactions,
	}
	ok, err = p.engine.ValidateStateChange(ctx, &sc)
	if err != nil {
		return Invalid, err
	}
	if !ok {
		p.logger.Printf("invalid state change for shard %d height %s", p.shardID, proposal.Height)
		return Invalid, nil
	}
	return Valid, nil
}

// Decide applies a consensus decision. An unknown hash is a no-op: a peer
// decided a value this node never saw, and catch-up is responsible for
// repairing that, not Decide.
func (p *ShardProposer) Decide(ctx context.Context, _ types.Height, _ int64, hash types.ShardHash) error {
	proposal, ok := p.proposedChunks[hash]
	if !ok {
		return nil
	}
	chunk, ok := proposal.ShardChunkValue()
	if !ok {
		return nil
	}

	if err := p.engine.CommitShardChunk(ctx, chunk); err != nil {
		return err
	}
	p.recentChunks = append(p.recentChunks, chunk)
	p.publish(ctx, chunk)
	delete(p.proposedChunks, hash)
	return nil
}

func (p *ShardProposer) publish(ctx context.Context, chunk types.ShardChunk) {
	if p.txDecision == nil {
		return
	}
	select {
	case p.txDecision <- chunk:
	case <-ctx.Done():
	}
}

// GetConfirmedHeight returns the largest persisted height for this shard.
func (p *ShardProposer) GetConfirmedHeight(ctx context.Context) (types.Height, error) {
	return p.engine.GetConfirmedHeight(ctx)
}

// RegisterValidator pulls and republishes any shard chunks this node is
// missing relative to validator's advertised height. A missing RPC
// address or a fetcher-less proposer silently skips catch-up.
func (p *ShardProposer) RegisterValidator(ctx context.Context, validator types.Validator) error {
	confirmed, err := p.engine.GetConfirmedHeight(ctx)
	if err != nil {
		return err
	}
	if validator.CurrentHeight <= confirmed.BlockNumber {
		return nil
	}
	if validator.RPCAddress == "" || p.fetcher == nil {
		return nil
	}

	chunks, err := p.fetcher.FetchShardChunks(ctx, validator.RPCAddress, p.shardID, confirmed.BlockNumber+1)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		p.publish(ctx, chunk)
	}
	return nil
}
