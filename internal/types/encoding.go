package types

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"
)

// EncodeRLP implements rlp.Encoder. A ProposedValue is carried on the wire
// as an envelope of [kind, inner-rlp-bytes] so Shard and Block keep
// ordinary struct encodings.
func (p ProposedValue) EncodeRLP(w io.Writer) error {
	var payload []byte
	var err error
	switch p.Kind {
	case ProposedValueShard:
		if p.Shard == nil {
			return fmt.Errorf("types: encode shard-kind proposed value with nil chunk")
		}
		payload, err = rlp.EncodeToBytes(p.Shard)
	case ProposedValueBlock:
		if p.Block == nil {
			return fmt.Errorf("types: encode block-kind proposed value with nil block")
		}
		payload, err = rlp.EncodeToBytes(p.Block)
	default:
		return fmt.Errorf("types: unknown proposed value kind %d", p.Kind)
	}
	if err != nil {
		return err
	}
	return rlp.Encode(w, []interface{}{uint8(p.Kind), payload})
}

// DecodeRLP implements rlp.Decoder, inverting EncodeRLP.
func (p *ProposedValue) DecodeRLP(s *rlp.Stream) error {
	var envelope struct {
		Kind    uint8
		Payload []byte
	}
	if err := s.Decode(&envelope); err != nil {
		return err
	}
	p.Kind = ProposedValueKind(envelope.Kind)
	switch p.Kind {
	case ProposedValueShard:
		var c ShardChunk
		if err := rlp.DecodeBytes(envelope.Payload, &c); err != nil {
			return err
		}
		p.Shard = &c
	case ProposedValueBlock:
		var b Block
		if err := rlp.DecodeBytes(envelope.Payload, &b); err != nil {
			return err
		}
		p.Block = &b
	default:
		return fmt.Errorf("types: unknown proposed value kind %d", envelope.Kind)
	}
	return nil
}

// EncodeShardHeader returns the canonical length-delimited encoding of a
// shard header, the bytes hashed to produce a chunk's identity.
func EncodeShardHeader(h ShardHeader) ([]byte, error) {
	return rlp.EncodeToBytes(h)
}

// EncodeBlockHeader returns the canonical length-delimited encoding of a
// block header.
func EncodeBlockHeader(h BlockHeader) ([]byte, error) {
	return rlp.EncodeToBytes(h)
}

// EncodeShardChunk returns the canonical encoding of a full chunk, used for
// persistence and for wire transfer during catch-up.
func EncodeShardChunk(c ShardChunk) ([]byte, error) {
	return rlp.EncodeToBytes(c)
}

// DecodeShardChunk decodes bytes produced by EncodeShardChunk.
func DecodeShardChunk(b []byte) (ShardChunk, error) {
	var c ShardChunk
	err := rlp.DecodeBytes(b, &c)
	return c, err
}

// EncodeBlock returns the canonical encoding of a full block.
func EncodeBlock(b Block) ([]byte, error) {
	return rlp.EncodeToBytes(b)
}

// DecodeBlock decodes bytes produced by EncodeBlock.
func DecodeBlock(b []byte) (Block, error) {
	var blk Block
	err := rlp.DecodeBytes(b, &blk)
	return blk, err
}

// HashHeader returns the BLAKE3-256 digest of the header's canonical
// encoding. Both shard and block headers hash the same way.
func HashHeader(encoded []byte) []byte {
	sum := blake3.Sum256(encoded)
	return sum[:]
}

// ZeroHash is the 32 zero-byte parent hash used at genesis.
func ZeroHash() []byte {
	return make([]byte, 32)
}
