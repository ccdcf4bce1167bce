// Package node wires one shard's full stack — store, engine, proposer,
// consensus actor — for every data shard plus the block shard, and
// routes inbound messages to the right actor by shard id.
package node

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rechain/shardchain/internal/consensus"
	"github.com/rechain/shardchain/internal/engine"
	"github.com/rechain/shardchain/internal/mempool"
	"github.com/rechain/shardchain/internal/proposer"
	"github.com/rechain/shardchain/internal/rpc"
	"github.com/rechain/shardchain/internal/store"
	"github.com/rechain/shardchain/internal/transport"
	"github.com/rechain/shardchain/internal/types"
)

// shardChunkFanIn is the bounded multi-producer single-consumer channel
// capacity every data shard's proposer publishes confirmed chunks onto,
// for the block proposer to aggregate.
const shardChunkFanIn = 100

// Config configures a Supervisor's per-shard wiring.
type Config struct {
	RootDir      string
	NumShards    int
	Address      []byte
	BlockTime    time.Duration
	RoundTimeout time.Duration
	Gossip       transport.Gossip
	Fetcher      *rpc.Fetcher
}

type shardContext struct {
	shardID types.ShardId
	kv      store.KV
	actor   *consensus.Actor
}

// Supervisor owns every shard's private state and is the sole writer of
// each shard's consensus actor, wiring one stack per data shard plus the
// block shard, fanned out across N+1 parallel instances.
type Supervisor struct {
	cfg    Config
	shards map[types.ShardId]*shardContext

	blockEngine *engine.BlockEngine
	blockStore  *store.BlockStore

	shardLookups map[types.ShardId]*store.ShardStore

	cancel context.CancelFunc
	logger *log.Logger
}

// New wires every shard's store/engine/proposer/consensus actor and
// returns a Supervisor ready to Start. Each actor is spawned here and
// begins driving rounds immediately; Start only brings up gossip routing.
func New(cfg Config) (*Supervisor, error) {
	if cfg.NumShards <= 0 {
		return nil, fmt.Errorf("node: NumShards must be positive, got %d", cfg.NumShards)
	}
	if cfg.NumShards > types.MaxShards {
		return nil, fmt.Errorf("node: NumShards %d exceeds MaxShards %d", cfg.NumShards, types.MaxShards)
	}
	if cfg.BlockTime <= 0 {
		cfg.BlockTime = 2 * time.Second
	}
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = time.Second
	}

	sup := &Supervisor{
		cfg:          cfg,
		shards:       make(map[types.ShardId]*shardContext),
		shardLookups: make(map[types.ShardId]*store.ShardStore),
		logger:       log.New(os.Stderr, "node: ", log.LstdFlags),
	}

	fanIn := make(chan types.ShardChunk, shardChunkFanIn)

	for i := 1; i <= cfg.NumShards; i++ {
		shardID := types.ShardId(i)
		kv, err := store.NewBadgerStore(filepath.Join(cfg.RootDir, fmt.Sprintf("shard%d", shardID)))
		if err != nil {
			return nil, fmt.Errorf("node: open shard %d store: %w", shardID, err)
		}
		shardStore := store.NewShardStore(kv)
		sup.shardLookups[shardID] = shardStore
		eng := engine.NewShardEngine(shardID, shardStore, mempool.New(mempool.DefaultCapacity, mempool.DefaultDrainSize))

		var fetcher proposer.ShardChunksFetcher
		if cfg.Fetcher != nil {
			fetcher = cfg.Fetcher
		}
		shardProposer := proposer.NewShardProposer(cfg.Address, shardID, eng, fanIn, fetcher)

		persisted, err := shardStore.MaxBlockNumber(context.Background())
		if err != nil {
			return nil, fmt.Errorf("node: read shard %d height: %w", shardID, err)
		}
		params := consensus.ConsensusParams{
			StartHeight: types.Height{ShardIndex: shardID, BlockNumber: persisted + 1},
			Address:     cfg.Address,
		}
		actor := consensus.Spawn(shardID, params, shardProposer, cfg.BlockTime, cfg.RoundTimeout)

		sup.shards[shardID] = &shardContext{shardID: shardID, kv: kv, actor: actor}
	}

	blockKV, err := store.NewBadgerStore(filepath.Join(cfg.RootDir, "shard0"))
	if err != nil {
		return nil, fmt.Errorf("node: open block shard store: %w", err)
	}
	sup.blockStore = store.NewBlockStore(blockKV)
	sup.blockEngine = engine.NewBlockEngine(sup.blockStore)

	var shardLookup proposer.ShardChunkLookup
	if len(sup.shardLookups) > 0 {
		shardLookup = sup.shardLookupAdapter()
	}
	var blocksFetcher proposer.BlocksFetcher
	if cfg.Fetcher != nil {
		blocksFetcher = cfg.Fetcher
	}
	blockProposer := proposer.NewBlockProposer(cfg.Address, sup.blockEngine, fanIn, cfg.NumShards, nil, blocksFetcher, shardLookup)

	persistedBlocks, err := sup.blockStore.MaxBlockNumber(context.Background())
	if err != nil {
		return nil, fmt.Errorf("node: read block shard height: %w", err)
	}
	blockParams := consensus.ConsensusParams{
		StartHeight: types.Height{ShardIndex: 0, BlockNumber: persistedBlocks + 1},
		Address:     cfg.Address,
	}
	blockActor := consensus.Spawn(0, blockParams, blockProposer, cfg.BlockTime, cfg.RoundTimeout)
	sup.shards[0] = &shardContext{shardID: 0, kv: blockKV, actor: blockActor}

	return sup, nil
}

type shardLookupAdapter struct {
	sup *Supervisor
}

func (a *shardLookupAdapter) GetShardChunk(ctx context.Context, shardID types.ShardId, blockNumber uint64) (*types.ShardChunk, error) {
	ss, ok := a.sup.shardLookups[shardID]
	if !ok {
		return nil, nil
	}
	return ss.GetShardChunk(ctx, blockNumber)
}

func (sup *Supervisor) shardLookupAdapter() proposer.ShardChunkLookup {
	return &shardLookupAdapter{sup: sup}
}

// Start brings the gossip transport up (if configured) and begins
// forwarding peer proposals to their owning shard's actor.
func (sup *Supervisor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	sup.cancel = cancel

	if sup.cfg.Gossip == nil {
		return nil
	}
	if err := sup.cfg.Gossip.Start(); err != nil {
		return fmt.Errorf("node: start gossip: %w", err)
	}
	go sup.routeGossip(ctx)
	return nil
}

func (sup *Supervisor) routeGossip(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case proposal, ok := <-sup.cfg.Gossip.Proposals():
			if !ok {
				return
			}
			sup.Dispatch(consensus.ConsensusMsg{
				ShardID:  proposal.Height.ShardIndex,
				Kind:     consensus.MsgPeerProposedValue,
				Proposal: &proposal,
			})
		}
	}
}

// Dispatch routes msg to the actor owning msg.ShardID.
func (sup *Supervisor) Dispatch(msg consensus.ConsensusMsg) {
	sc, ok := sup.shards[msg.ShardID]
	if !ok {
		sup.logger.Printf("dispatch: unknown shard %d, dropping message", msg.ShardID)
		return
	}
	sc.actor.Cast(msg)
}

// StartHeight broadcasts a start-height reset to every shard's actor —
// used when this node is brought up mid-chain from a snapshot.
func (sup *Supervisor) StartHeight(blockNumber uint64) {
	for shardID, sc := range sup.shards {
		sc.actor.Cast(consensus.ConsensusMsg{ShardID: shardID, Kind: consensus.MsgStartHeight, BlockNumber: blockNumber})
	}
}

// Stop closes the gossip transport, tears every shard's consensus actor
// down, then closes every private store, in that order: actors must
// finish any in-flight commit before their store closes under them.
func (sup *Supervisor) Stop() error {
	if sup.cancel != nil {
		sup.cancel()
	}
	if sup.cfg.Gossip != nil {
		if err := sup.cfg.Gossip.Stop(); err != nil {
			sup.logger.Printf("error stopping gossip: %v", err)
		}
	}
	for _, sc := range sup.shards {
		sc.actor.Stop()
	}
	for _, sc := range sup.shards {
		if err := sc.kv.Close(); err != nil {
			sup.logger.Printf("error closing shard %d store: %v", sc.shardID, err)
		}
	}
	return nil
}

// ShardLookups exposes each data shard's store for rpc.Server wiring.
func (sup *Supervisor) ShardLookups() map[types.ShardId]rpc.ShardLookup {
	out := make(map[types.ShardId]rpc.ShardLookup, len(sup.shardLookups))
	for id, ss := range sup.shardLookups {
		out[id] = ss
	}
	return out
}

// BlockLookup exposes the block shard's store for rpc.Server wiring.
func (sup *Supervisor) BlockLookup() rpc.BlockLookup {
	return sup.blockStore
}

// ShardStores exposes each data shard's store directly, for read-only
// status surfaces that need more than rpc.ShardLookup's paging method.
func (sup *Supervisor) ShardStores() map[types.ShardId]*store.ShardStore {
	return sup.shardLookups
}

// BlockStore exposes the block shard's store directly.
func (sup *Supervisor) BlockStore() *store.BlockStore {
	return sup.blockStore
}
