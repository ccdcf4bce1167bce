package rpc

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc's global codec registry so that any
// call made with CallContentSubtype(codecName), as the catch-up client
// does, exchanges RLP instead of protobuf wire bytes. There is no protoc toolchain available in this
// tree, so the catch-up service hand-rolls its ServiceDesc and relies on
// this codec rather than generated marshalers.
const codecName = "rlp"

// Codec adapts go-ethereum's RLP encoder to grpc's encoding.Codec
// interface so generated-free request/response structs can travel over
// a standard grpc.Server/ClientConn.
type Codec struct{}

func (Codec) Name() string { return codecName }

func (Codec) Marshal(v interface{}) ([]byte, error) {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, fmt.Errorf("rpc: rlp marshal: %w", err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	if err := rlp.DecodeBytes(data, v); err != nil {
		return fmt.Errorf("rpc: rlp unmarshal: %w", err)
	}
	return nil
}

func init() {
	encoding.RegisterCodec(Codec{})
}
