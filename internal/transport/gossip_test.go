package transport_test

import (
	"testing"

	"github.com/rechain/shardchain/internal/transport"
	"github.com/rechain/shardchain/internal/types"
	"github.com/stretchr/testify/require"
)

func TestNewP2PGossipGeneratesIdentity(t *testing.T) {
	g, err := transport.NewP2PGossip(transport.Config{ListenPort: 0})
	require.NoError(t, err)
	require.NotNil(t, g)
}

func TestBroadcastWithNoPeersIsANoOp(t *testing.T) {
	g, err := transport.NewP2PGossip(transport.Config{ListenPort: 0})
	require.NoError(t, err)

	require.NoError(t, g.Broadcast(types.FullProposal{}))
}

func TestNewP2PGossipSkipsUnparseableSeeds(t *testing.T) {
	g, err := transport.NewP2PGossip(transport.Config{
		ListenPort: 0,
		Seeds:      []string{"not-a-valid-enode-url"},
	})
	require.NoError(t, err)
	require.NotNil(t, g)
}
