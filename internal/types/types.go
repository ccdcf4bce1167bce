// Package types holds the wire data model shared by the store, engine,
// proposer and RPC layers: heights, headers, chunks, blocks and the
// tagged proposal envelope that carries either a shard chunk or a block.
package types

import (
	"fmt"
)

// MaxShards is the largest data shard id a node will accept; shard 0 is
// reserved for the block shard.
const MaxShards = 3

// ShardId identifies a parallel consensus instance. 0 is the block shard.
type ShardId uint32

// Height pins a value to a specific shard and block number. Block numbers
// are strictly monotonic per shard and start at 1.
type Height struct {
	ShardIndex  ShardId
	BlockNumber uint64
}

func (h Height) String() string {
	return fmt.Sprintf("(shard=%d, bn=%d)", h.ShardIndex, h.BlockNumber)
}

// ShardHeader is the canonically-encoded, hashable header of a ShardChunk.
type ShardHeader struct {
	ParentHash []byte
	Timestamp  uint64
	Height     Height
	ShardRoot  []byte
}

// ShardChunk is the unit committed per (data shard, height).
type ShardChunk struct {
	Header       ShardHeader
	Hash         []byte
	Transactions [][]byte
	Votes        []byte `rlp:"optional"`
}

// BlockHeader is the canonically-encoded, hashable header of a Block.
type BlockHeader struct {
	ParentHash        []byte
	ChainID           uint32
	Version           uint32
	ShardHeadersHash  []byte
	ValidatorsHash    []byte
	Timestamp         uint64
	Height            Height
}

// Block is the unit committed on the block shard at each height; it
// aggregates the shard chunks decided at that height across data shards.
type Block struct {
	Header      BlockHeader
	Hash        []byte
	ShardChunks []ShardChunk
	Validators  []Validator `rlp:"optional"`
	Votes       []byte      `rlp:"optional"`
}

// ShardHash uniquely identifies a proposed value within a round: the hash
// of the inner value paired with the shard index of its height.
type ShardHash struct {
	Hash       string // string so it is usable as a map key
	ShardIndex ShardId
}

// NewShardHash builds a ShardHash from raw hash bytes and a shard index.
func NewShardHash(hash []byte, shardIndex ShardId) ShardHash {
	return ShardHash{Hash: string(hash), ShardIndex: shardIndex}
}

// ProposedValueKind discriminates the tagged union carried by FullProposal.
type ProposedValueKind uint8

const (
	ProposedValueShard ProposedValueKind = iota
	ProposedValueBlock
)

// ProposedValue is a closed sum type: exactly one of Shard or Block is set,
// selected by Kind. It round-trips through RLP as an envelope of
// [kind, inner-rlp-bytes] so the inner types stay ordinary structs.
type ProposedValue struct {
	Kind  ProposedValueKind
	Shard *ShardChunk
	Block *Block
}

// ShardValue wraps a ShardChunk as a ProposedValue.
func ShardValue(c ShardChunk) ProposedValue {
	return ProposedValue{Kind: ProposedValueShard, Shard: &c}
}

// BlockValue wraps a Block as a ProposedValue.
func BlockValue(b Block) ProposedValue {
	return ProposedValue{Kind: ProposedValueBlock, Block: &b}
}

// FullProposal is the wire envelope carrying height, round, proposer
// identity and the tagged proposed value.
type FullProposal struct {
	Height        Height
	Round         int64
	Proposer      []byte
	ProposedValue ProposedValue
}

// ShardHashOf computes the ShardHash key for this proposal: the hash of
// the inner value paired with the shard index of its height.
func (p FullProposal) ShardHashOf() (ShardHash, error) {
	var hash []byte
	switch p.ProposedValue.Kind {
	case ProposedValueShard:
		if p.ProposedValue.Shard == nil {
			return ShardHash{}, fmt.Errorf("types: shard-kind proposal missing chunk")
		}
		hash = p.ProposedValue.Shard.Hash
	case ProposedValueBlock:
		if p.ProposedValue.Block == nil {
			return ShardHash{}, fmt.Errorf("types: block-kind proposal missing block")
		}
		hash = p.ProposedValue.Block.Hash
	default:
		return ShardHash{}, fmt.Errorf("types: unknown proposed value kind %d", p.ProposedValue.Kind)
	}
	return NewShardHash(hash, p.Height.ShardIndex), nil
}

// ShardChunkValue extracts the shard chunk payload, if this proposal carries one.
func (p FullProposal) ShardChunkValue() (ShardChunk, bool) {
	if p.ProposedValue.Kind != ProposedValueShard || p.ProposedValue.Shard == nil {
		return ShardChunk{}, false
	}
	return *p.ProposedValue.Shard, true
}

// BlockValueOf extracts the block payload, if this proposal carries one.
func (p FullProposal) BlockValueOf() (Block, bool) {
	if p.ProposedValue.Kind != ProposedValueBlock || p.ProposedValue.Block == nil {
		return Block{}, false
	}
	return *p.ProposedValue.Block, true
}

// Validator describes a peer's advertised identity for a given shard.
// CurrentHeight is advisory and used only to gate catch-up. RPCAddress
// trails as the last field since rlp requires every field after an
// optional one to also be optional.
type Validator struct {
	ShardID       ShardId
	PublicKey     []byte
	CurrentHeight uint64
	RPCAddress    string `rlp:"optional"`
}
