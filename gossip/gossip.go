// Package gossip specifies the Go-level contract between the core state
// machine and the peer-to-peer transport, without framing or wire encoding
// (spec §1 places gossip transport framing out of scope; spec §6 "Gossip
// substrate contract" names only the operations below). Structure mirrors
// the teacher's tos/peerset.go: a registered-peer table guarded by a single
// mutex, keyed by an opaque session id.
package gossip

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/rdpos-labs/rdchain/core/types"
)

var (
	// ErrPeerSetClosed is returned when a peer is registered after Close.
	ErrPeerSetClosed = errors.New("gossip: peer set closed")
	// ErrPeerAlreadyRegistered is returned when SessionID collides with a live peer.
	ErrPeerAlreadyRegistered = errors.New("gossip: peer already registered")
	// ErrPeerNotRegistered is returned when a requested peer id has no live session.
	ErrPeerNotRegistered = errors.New("gossip: peer not registered")
)

// SessionID identifies one peer connection. uuid.UUID gives every session a
// collision-free id without coordinating with the transport layer for
// numbering (spec §6 "getSessionsIds(kind) → [peerId]").
type SessionID = uuid.UUID

// PeerKind classifies a connected peer for getSessionsIds's filter.
type PeerKind int

const (
	// KindAny matches every connected peer.
	KindAny PeerKind = iota
	// KindValidator matches peers known to be committee members.
	KindValidator
)

// Peer is the minimal per-connection handle the substrate contract exposes
// to the core: enough to address a RequestValidatorTxs call at one peer.
type Peer interface {
	SessionID() SessionID
	IsValidator() bool
}

// Inbound is implemented by the core (core/state.State) to receive the
// events the substrate delivers (spec §6 "Inbound events the substrate
// delivers to the core").
type Inbound interface {
	OnBlock(block *types.Block) error
	OnUserTx(tx *types.BlockTx) error
	OnValidatorTx(tx *types.ValidatorTx) error
	OnValidatorMempoolRequest(from SessionID) ([]*types.ValidatorTx, error)
}

// Substrate is implemented by the transport layer and consumed by the core
// (spec §6 "Gossip substrate contract"): the outbound half of the
// core/transport boundary.
type Substrate interface {
	BroadcastBlock(block *types.Block) error
	BroadcastTxBlock(tx *types.BlockTx) error
	BroadcastTxValidator(tx *types.ValidatorTx) error
	RequestValidatorTxs(peer SessionID) ([]*types.ValidatorTx, error)
	GetSessionIDs(kind PeerKind) []SessionID
}

// PeerSet tracks connected peers and implements the peer-addressable half
// of Substrate (GetSessionIDs) in a transport-agnostic way; a concrete
// transport embeds it and supplies BroadcastBlock/BroadcastTxBlock/
// BroadcastTxValidator/RequestValidatorTxs over its own wire protocol.
type PeerSet struct {
	mu     sync.RWMutex
	peers  map[SessionID]Peer
	closed bool
}

// NewPeerSet returns an empty, open peer set.
func NewPeerSet() *PeerSet {
	return &PeerSet{peers: make(map[SessionID]Peer)}
}

// Register adds p, keyed by its SessionID.
func (ps *PeerSet) Register(p Peer) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return ErrPeerSetClosed
	}
	if _, ok := ps.peers[p.SessionID()]; ok {
		return ErrPeerAlreadyRegistered
	}
	ps.peers[p.SessionID()] = p
	return nil
}

// Unregister drops the peer with the given session id.
func (ps *PeerSet) Unregister(id SessionID) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if _, ok := ps.peers[id]; !ok {
		return ErrPeerNotRegistered
	}
	delete(ps.peers, id)
	return nil
}

// Peer returns the registered peer for id, if any.
func (ps *PeerSet) Peer(id SessionID) (Peer, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.peers[id]
	return p, ok
}

// GetSessionIDs implements the Substrate-facing query, filtered by kind.
func (ps *PeerSet) GetSessionIDs(kind PeerKind) []SessionID {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]SessionID, 0, len(ps.peers))
	for id, p := range ps.peers {
		if kind == KindValidator && !p.IsValidator() {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Close marks the set closed; further Register calls fail.
func (ps *PeerSet) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.closed = true
}

// Len reports the number of connected peers, used by rpcapi's net_peerCount.
func (ps *PeerSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.peers)
}
