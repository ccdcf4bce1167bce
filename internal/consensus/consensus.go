// Package consensus wires a Proposer into a round-driving actor. The BFT
// voting protocol itself — safety, leader election, vote aggregation — is
// explicitly out of scope and treated as an external collaborator: this
// package only has to tell a proposer "decide(h, r, v)" and route messages
// by shard id. What's here is a naive round driver suitable for a single
// self-validating node.
package consensus

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rechain/shardchain/internal/proposer"
	"github.com/rechain/shardchain/internal/types"
)

// Step is the round-step enum a real BFT voting protocol would drive
// through prevote/precommit. With a single validator there is no voting
// to wait on, so Propose always falls straight through to Decided.
type Step int

const (
	StepPropose Step = iota
	StepDecided
)

// ThresholdParams is a placeholder for the vote-aggregation thresholds a
// real BFT collaborator would need (e.g. quorum size). Cryptographic vote
// aggregation is a non-goal here, so it carries no fields yet.
type ThresholdParams struct{}

// ConsensusParams configures one shard's consensus actor.
type ConsensusParams struct {
	StartHeight         types.Height
	InitialValidatorSet []types.Validator
	Address             []byte
	ThresholdParams     ThresholdParams
}

// ConsensusMsgKind discriminates the cast messages a supervisor routes to
// an actor's mailbox.
type ConsensusMsgKind int

const (
	MsgStartHeight ConsensusMsgKind = iota
	MsgPeerProposedValue
	MsgStop
)

// ConsensusMsg is the wire envelope the node supervisor dispatches by
// shard id.
type ConsensusMsg struct {
	ShardID     types.ShardId
	Kind        ConsensusMsgKind
	BlockNumber uint64
	Proposal    *types.FullProposal
}

// Actor runs one shard's consensus loop and owns its Proposer exclusively.
type Actor struct {
	instanceID uuid.UUID
	shardID    types.ShardId
	prop       proposer.Proposer
	height     types.Height
	blockTime  time.Duration
	timeout    time.Duration

	mailbox chan ConsensusMsg
	quit    chan struct{}
	done    chan struct{}

	logger *log.Logger
}

// Spawn starts a consensus actor for shardID at params.StartHeight and
// returns immediately; the actor's loop runs in its own goroutine. Each
// actor gets its own instanceID so restarts of the same shard are
// distinguishable in logs.
func Spawn(shardID types.ShardId, params ConsensusParams, prop proposer.Proposer, blockTime, timeout time.Duration) *Actor {
	instanceID := uuid.New()
	a := &Actor{
		instanceID: instanceID,
		shardID:    shardID,
		prop:       prop,
		height:     params.StartHeight,
		blockTime:  blockTime,
		timeout:    timeout,
		mailbox:    make(chan ConsensusMsg, 64),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     log.New(os.Stderr, "consensus["+instanceID.String()+"]: ", log.LstdFlags),
	}
	go a.run()
	return a
}

// ShardID reports the shard this actor drives.
func (a *Actor) ShardID() types.ShardId {
	return a.shardID
}

// Cast enqueues msg on the actor's mailbox. A full mailbox drops the
// message and logs a warning rather than blocking the caller — the
// supervisor's routing table must never stall on a slow shard.
func (a *Actor) Cast(msg ConsensusMsg) {
	select {
	case a.mailbox <- msg:
	default:
		a.logger.Printf("shard %d: mailbox full, dropping message kind %d", a.shardID, msg.Kind)
	}
}

// Stop requests the actor's loop to exit and waits for it to do so.
// Persistent state survives; only the in-process loop stops.
func (a *Actor) Stop() {
	close(a.quit)
	<-a.done
}

func (a *Actor) run() {
	defer close(a.done)

	ticker := time.NewTicker(a.blockTime)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-a.quit:
			return
		case msg := <-a.mailbox:
			a.handle(ctx, msg)
		case <-ticker.C:
			a.proposeAndDecide(ctx)
		}
	}
}

func (a *Actor) handle(ctx context.Context, msg ConsensusMsg) {
	switch msg.Kind {
	case MsgStartHeight:
		a.height = types.Height{ShardIndex: a.shardID, BlockNumber: msg.BlockNumber}
	case MsgPeerProposedValue:
		if msg.Proposal == nil {
			return
		}
		verdict, err := a.prop.AddProposedValue(ctx, msg.Proposal)
		if err != nil {
			a.logger.Printf("shard %d: add_proposed_value error: %v", a.shardID, err)
			return
		}
		if verdict != proposer.Valid {
			a.logger.Printf("shard %d: rejected peer proposal at %s", a.shardID, msg.Proposal.Height)
			return
		}
		hash, err := msg.Proposal.ShardHashOf()
		if err != nil {
			a.logger.Printf("shard %d: malformed peer proposal: %v", a.shardID, err)
			return
		}
		if err := a.prop.Decide(ctx, msg.Proposal.Height, msg.Proposal.Round, hash); err != nil {
			a.logger.Fatalf("shard %d: fatal commit error: %v", a.shardID, err)
		}
		a.height = types.Height{ShardIndex: a.shardID, BlockNumber: msg.Proposal.Height.BlockNumber + 1}
	case MsgStop:
		close(a.quit)
	}
}

// proposeAndDecide is the naive single-validator round: this node is
// always the proposer, and with no peers to vote, its own proposal decides
// immediately. A real BFT collaborator replaces this with prevote/
// precommit aggregation before calling Decide.
func (a *Actor) proposeAndDecide(ctx context.Context) {
	proposal, err := a.prop.ProposeValue(ctx, a.height, 0, a.timeout)
	if err != nil {
		a.logger.Printf("shard %d: propose_value error at %s: %v", a.shardID, a.height, err)
		return
	}
	hash, err := proposal.ShardHashOf()
	if err != nil {
		a.logger.Printf("shard %d: malformed own proposal: %v", a.shardID, err)
		return
	}
	// Storage write failures during commit are a safety-boundary
	// violation and must stop this shard's instance, not be swallowed.
	if err := a.prop.Decide(ctx, a.height, 0, hash); err != nil {
		a.logger.Fatalf("shard %d: fatal commit error at %s: %v", a.shardID, a.height, err)
	}
	a.height.BlockNumber++
}
