package proposer

import (
	"bytes"
	"context"
	"log"
	"os"
	"time"

	"github.com/rechain/shardchain/internal/engine"
	"github.com/rechain/shardchain/internal/types"
)

// pollInterval is the cadence at which collectConfirmedShardChunks
// non-blockingly checks the inbound shard-chunk channel.
const pollInterval = 10 * time.Millisecond

// BlockProposer is the single block-shard proposer: it aggregates decided
// shard chunks from all data shards into a Block, handling the timed
// collection with backpressure and partial failure.
type BlockProposer struct {
	shardID types.ShardId
	address []byte

	proposedBlocks map[types.ShardHash]types.FullProposal
	pendingChunks  map[uint64][]types.ShardChunk

	shardDecisionRx <-chan types.ShardChunk
	numShards       int
	blockTx         chan<- types.Block

	engine      *engine.BlockEngine
	fetcher     BlocksFetcher
	shardLookup ShardChunkLookup

	logger *log.Logger
}

var _ Proposer = (*BlockProposer)(nil)

// NewBlockProposer constructs a BlockProposer. shardDecisionRx is the
// single receive end of the node-wide fan-in channel; blockTx, fetcher and
// shardLookup are all optional.
func NewBlockProposer(
	address []byte,
	eng *engine.BlockEngine,
	shardDecisionRx <-chan types.ShardChunk,
	numShards int,
	blockTx chan<- types.Block,
	fetcher BlocksFetcher,
	shardLookup ShardChunkLookup,
) *BlockProposer {
	return &BlockProposer{
		shardID:         0,
		address:         address,
		proposedBlocks:  make(map[types.ShardHash]types.FullProposal),
		pendingChunks:   make(map[uint64][]types.ShardChunk),
		shardDecisionRx: shardDecisionRx,
		numShards:       numShards,
		blockTx:         blockTx,
		engine:          eng,
		fetcher:         fetcher,
		shardLookup:     shardLookup,
		logger:          log.New(os.Stderr, "blockproposer: ", log.LstdFlags),
	}
}

// collectConfirmedShardChunks polls the inbound channel every 10ms until
// either num_shards chunks have arrived for height's block number, or
// timeout elapses. Chunks for other heights are retained in pendingChunks
// for their own future collection; the channel is drained indiscriminately
// across heights, so a late chunk from an old catch-up replay can mix
// with a live decision for a different height.
func (p *BlockProposer) collectConfirmedShardChunks(ctx context.Context, height types.Height, timeout time.Duration) []types.ShardChunk {
	requestedHeight := height.BlockNumber

	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.drainOnePending()
			if chunks, ok := p.pendingChunks[requestedHeight]; ok && len(chunks) == p.numShards {
				return chunks
			}
		case <-deadlineCtx.Done():
			p.logger.Printf("did not receive all shard chunks in time for height %d", requestedHeight)
			return p.pendingChunks[requestedHeight]
		}
	}
}

func (p *BlockProposer) drainOnePending() {
	select {
	case chunk, ok := <-p.shardDecisionRx:
		if !ok {
			return
		}
		bn := chunk.Header.Height.BlockNumber
		p.pendingChunks[bn] = append(p.pendingChunks[bn], chunk)
	default:
	}
}

// ProposeValue aggregates shard chunks confirmed for height's block number
// into a candidate Block.
func (p *BlockProposer) ProposeValue(ctx context.Context, height types.Height, round int64, timeout time.Duration) (types.FullProposal, error) {
	shardChunks := p.collectConfirmedShardChunks(ctx, height, timeout)

	previousBlock, err := p.engine.GetLastBlock(ctx)
	if err != nil {
		return types.FullProposal{}, err
	}
	parentHash := types.ZeroHash()
	if previousBlock != nil {
		parentHash = previousBlock.Hash
	}

	header := types.BlockHeader{
		ParentHash: parentHash,
		ChainID:    0,
		Version:    0,
		Timestamp:  types.CurrentTime(),
		Height:     height,
	}
	encoded, err := types.EncodeBlockHeader(header)
	if err != nil {
		return types.FullProposal{}, err
	}
	hash := types.HashHeader(encoded)

	block := types.Block{
		Header:      header,
		Hash:        hash,
		ShardChunks: shardChunks,
	}

	shardHash := types.NewShardHash(hash, height.ShardIndex)
	proposal := types.FullProposal{
		Height:        height,
		Round:         round,
		Proposer:      p.address,
		ProposedValue: types.BlockValue(block),
	}
	p.proposedBlocks[shardHash] = proposal
	return proposal, nil
}

// AddProposedValue accepts any well-formed Block proposal as Valid, with
// one strengthening: for each embedded shard chunk at a height this node
// has already decided independently, the embedded hash must match this
// node's own committed chunk. Proposer signature verification remains
// out of scope.
func (p *BlockProposer) AddProposedValue(ctx context.Context, proposal *types.FullProposal) (Validity, error) {
	block, ok := proposal.BlockValueOf()
	if !ok {
		p.logger.Printf("rejecting non-block proposed value for height %s", proposal.Height)
		return Invalid, nil
	}

	shardHash, err := proposal.ShardHashOf()
	if err != nil {
		return Invalid, err
	}
	p.proposedBlocks[shardHash] = *proposal

	if p.shardLookup == nil {
		return Valid, nil
	}
	for _, chunk := range block.ShardChunks {
		existing, err := p.shardLookup.GetShardChunk(ctx, chunk.Header.Height.ShardIndex, chunk.Header.Height.BlockNumber)
		if err != nil {
			return Invalid, err
		}
		if existing != nil && !bytes.Equal(existing.Hash, chunk.Hash) {
			p.logger.Printf("block at height %s embeds shard chunk inconsistent with local history", proposal.Height)
			return Invalid, nil
		}
	}
	return Valid, nil
}

// Decide commits the decided block, publishes it to the external block
// stream, and evicts both the proposal and the pending chunks buffered for
// this height.
func (p *BlockProposer) Decide(ctx context.Context, height types.Height, _ int64, hash types.ShardHash) error {
	proposal, ok := p.proposedBlocks[hash]
	if !ok {
		return nil
	}
	block, ok := proposal.BlockValueOf()
	if !ok {
		return nil
	}

	if err := p.engine.CommitBlock(ctx, block); err != nil {
		return err
	}
	p.publish(ctx, block)
	delete(p.proposedBlocks, hash)
	delete(p.pendingChunks, height.BlockNumber)
	return nil
}

func (p *BlockProposer) publish(ctx context.Context, block types.Block) {
	if p.blockTx == nil {
		return
	}
	select {
	case p.blockTx <- block:
	case <-ctx.Done():
	}
}

// GetConfirmedHeight returns the largest persisted block height.
func (p *BlockProposer) GetConfirmedHeight(ctx context.Context) (types.Height, error) {
	return p.engine.GetConfirmedHeight(ctx)
}

// RegisterValidator pulls and republishes any blocks this node is missing
// relative to validator's advertised height, analogous to ShardProposer
// but over the Blocks RPC.
func (p *BlockProposer) RegisterValidator(ctx context.Context, validator types.Validator) error {
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

	blocks, err := p.fetcher.FetchBlocks(ctx, validator.RPCAddress, p.shardID, confirmed.BlockNumber+1)
	if err != nil {
		return err
	}
	for _, block := range blocks {
		p.publish(ctx, block)
	}
	return nil
}
