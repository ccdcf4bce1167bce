// Package transport is the thin external gossip collaborator: it only
// has to get an encoded proposal from this node to its peers and back,
// with no opinion on consensus semantics. Backed by go-ethereum's devp2p
// p2p package.
package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/rechain/shardchain/internal/types"
)

// proposalMsgCode is the sole devp2p message code this protocol defines:
// an RLP-encoded FullProposal gossiped to every connected peer.
const proposalMsgCode = 0x01

// Config configures the gossip transport.
type Config struct {
	ListenPort int
	Seeds      []string
	MaxPeers   int
}

// Gossip is the thin interface the node supervisor depends on; BFT vote
// aggregation and framing live entirely outside this package.
type Gossip interface {
	Start() error
	Stop() error
	Broadcast(proposal types.FullProposal) error
	Proposals() <-chan types.FullProposal
}

// gossipPeer pairs a connected peer's identity with the MsgReadWriter
// handle for its session; p2p.Peer exposes no accessor for that handle,
// so handlePeer must capture it directly from its Run callback.
type gossipPeer struct {
	peer *p2p.Peer
	rw   p2p.MsgReadWriter
}

// P2PGossip implements Gossip over go-ethereum's devp2p transport.
type P2PGossip struct {
	cfg     Config
	server  *p2p.Server
	privKey *ecdsa.PrivateKey

	peers     map[enode.ID]gossipPeer
	peersLock sync.RWMutex

	proposals chan types.FullProposal
	logger    *log.Logger
}

// NewP2PGossip constructs a gossip transport; call Start to begin
// listening and dialing peers.
func NewP2PGossip(cfg Config) (*P2PGossip, error) {
	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("transport: generate node key: %w", err)
	}

	g := &P2PGossip{
		cfg:       cfg,
		privKey:   privKey,
		peers:     make(map[enode.ID]gossipPeer),
		proposals: make(chan types.FullProposal, 256),
		logger:    log.New(os.Stderr, "transport: ", log.LstdFlags),
	}

	serverConfig := p2p.Config{
		PrivateKey:      privKey,
		Name:            "shardchain-gossip",
		ListenAddr:      fmt.Sprintf(":%d", cfg.ListenPort),
		Protocols:       g.makeProtocols(),
		MaxPeers:        maxPeersOrDefault(cfg.MaxPeers),
		MaxPendingPeers: maxPeersOrDefault(cfg.MaxPeers),
		DialRatio:       3,
	}
	for _, seed := range cfg.Seeds {
		node, err := enode.Parse(enode.ValidSchemes, seed)
		if err != nil {
			g.logger.Printf("skipping unparseable seed %q: %v", seed, err)
			continue
		}
		serverConfig.BootstrapNodes = append(serverConfig.BootstrapNodes, node)
		serverConfig.StaticNodes = append(serverConfig.StaticNodes, node)
	}

	g.server = &p2p.Server{Config: serverConfig}
	return g, nil
}

func maxPeersOrDefault(n int) int {
	if n <= 0 {
		return 50
	}
	return n
}

func (g *P2PGossip) makeProtocols() []p2p.Protocol {
	return []p2p.Protocol{
		{
			Name:    "shardchain",
			Version: 1,
			Length:  16,
			Run:     g.handlePeer,
		},
	}
}

// Start brings the devp2p server up and begins accepting peers.
func (g *P2PGossip) Start() error {
	if err := g.server.Start(); err != nil {
		return fmt.Errorf("transport: start p2p server: %w", err)
	}
	g.logger.Printf("gossip transport started, node id %s", g.server.Self())
	return nil
}

// Stop tears the devp2p server down.
func (g *P2PGossip) Stop() error {
	g.server.Stop()
	return nil
}

func (g *P2PGossip) handlePeer(peer *p2p.Peer, rw p2p.MsgReadWriter) error {
	g.peersLock.Lock()
	g.peers[peer.ID()] = gossipPeer{peer: peer, rw: rw}
	g.peersLock.Unlock()
	defer func() {
		g.peersLock.Lock()
		delete(g.peers, peer.ID())
		g.peersLock.Unlock()
	}()

	for {
		msg, err := rw.ReadMsg()
		if err != nil {
			return err
		}
		if msg.Code == proposalMsgCode {
			var proposal types.FullProposal
			if err := msg.Decode(&proposal); err != nil {
				g.logger.Printf("peer %s sent an undecodable proposal: %v", peer.ID(), err)
				msg.Discard()
				continue
			}
			select {
			case g.proposals <- proposal:
			default:
				g.logger.Printf("proposals channel full, dropping gossiped proposal for %s", proposal.Height)
			}
		}
		msg.Discard()
	}
}

// Broadcast gossips proposal to every connected peer.
func (g *P2PGossip) Broadcast(proposal types.FullProposal) error {
	g.peersLock.RLock()
	defer g.peersLock.RUnlock()

	for _, gp := range g.peers {
		if err := p2p.Send(gp.rw, proposalMsgCode, proposal); err != nil {
			g.logger.Printf("failed to send proposal to peer %s: %v", gp.peer.ID(), err)
		}
	}
	return nil
}

// Proposals returns the channel of proposals received from peers.
func (g *P2PGossip) Proposals() <-chan types.FullProposal {
	return g.proposals
}

var _ Gossip = (*P2PGossip)(nil)
