// Package rpcapi specifies the semantics of the JSON-RPC surface named in
// spec §6, independent of wire encoding (spec §1: JSON framing is out of
// scope). API mirrors the teacher's internal/tosapi method-per-struct-field
// layout: a thin struct wrapping the core and gossip, each exported method
// is one RPC method with Go types instead of JSON-RPC params/result.
package rpcapi

import (
	"github.com/holiman/uint256"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/state"
	"github.com/rdpos-labs/rdchain/core/storage"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/gossip"
	"github.com/rdpos-labs/rdchain/params"
)

// PeerInfo is the narrow gossip view the API needs for net_listening/net_peerCount.
type PeerInfo interface {
	Len() int
}

// API is the JSON-RPC surface's backing implementation: the core's pure
// query functions plus the two mutating entry points spec §6 names
// (sendRawTransaction, call).
type API struct {
	state    *state.State
	peers    PeerInfo
	coinbase common.Address
	version  string
}

// New builds an API bound to state, an optional peer-count source (nil is
// valid — net_peerCount then reports zero), this validator's coinbase
// address, and a node version string for protocolVersion.
func New(st *state.State, peers PeerInfo, coinbase common.Address, version string) *API {
	return &API{state: st, peers: peers, coinbase: coinbase, version: version}
}

// ChainId returns the network's chain id.
func (a *API) ChainId() uint64 { return a.state.ChainID() }

// BlockNumber returns the height of the latest block, or zero before genesis.
func (a *API) BlockNumber() uint64 {
	latest := a.state.Storage().Latest()
	if latest == nil {
		return 0
	}
	return latest.Header.Height
}

// GetBlockByHash returns the block with the given hash.
func (a *API) GetBlockByHash(hash common.Hash) (*types.Block, error) {
	return a.state.Storage().GetByHash(hash)
}

// GetBlockByNumber returns the block at the given height.
func (a *API) GetBlockByNumber(height uint64) (*types.Block, error) {
	return a.state.Storage().GetByHeight(height)
}

// GetBlockTransactionCountByHash returns the number of user transactions in
// the block with the given hash.
func (a *API) GetBlockTransactionCountByHash(hash common.Hash) (int, error) {
	blk, err := a.state.Storage().GetByHash(hash)
	if err != nil {
		return 0, err
	}
	return len(blk.UserTxs), nil
}

// GetBlockTransactionCountByNumber returns the number of user transactions
// in the block at the given height.
func (a *API) GetBlockTransactionCountByNumber(height uint64) (int, error) {
	blk, err := a.state.Storage().GetByHeight(height)
	if err != nil {
		return 0, err
	}
	return len(blk.UserTxs), nil
}

// GetBalance returns addr's current native balance.
func (a *API) GetBalance(addr common.Address) *uint256.Int {
	return a.state.Ledger().GetBalance(addr)
}

// GetTransactionCount returns addr's current nonce.
func (a *API) GetTransactionCount(addr common.Address) uint64 {
	return a.state.Ledger().GetNonce(addr)
}

// GetCode returns the sentinel contract marker for addr, or empty bytes for
// a plain account (spec §6: "always empty bytes for non-contract addresses,
// a sentinel for contracts" — there is no bytecode since contracts are
// compiled into the node, so the sentinel is just the type tag).
func (a *API) GetCode(addr common.Address) []byte {
	tag, ok := a.state.TypeTag(addr)
	if !ok {
		return nil
	}
	return []byte(tag)
}

// GetTransactionByHash returns a previously included user transaction.
func (a *API) GetTransactionByHash(hash common.Hash) (*types.BlockTx, error) {
	tx, _, err := a.state.Storage().GetTx(hash)
	return tx, err
}

// GetTransactionByBlockHashAndIndex returns the user tx at index within the
// block with the given hash.
func (a *API) GetTransactionByBlockHashAndIndex(hash common.Hash, index uint64) (*types.BlockTx, error) {
	blk, err := a.state.Storage().GetByHash(hash)
	if err != nil {
		return nil, err
	}
	return txAt(blk, index)
}

// GetTransactionByBlockNumberAndIndex returns the user tx at index within
// the block at the given height.
func (a *API) GetTransactionByBlockNumberAndIndex(height uint64, index uint64) (*types.BlockTx, error) {
	blk, err := a.state.Storage().GetByHeight(height)
	if err != nil {
		return nil, err
	}
	return txAt(blk, index)
}

func txAt(blk *types.Block, index uint64) (*types.BlockTx, error) {
	if index >= uint64(len(blk.UserTxs)) {
		return nil, types.NewError(types.KindMalformed, "rpcapi: transaction index out of range")
	}
	return blk.UserTxs[index], nil
}

// Receipt is the minimal transaction receipt spec §6's getTransactionReceipt
// exposes: the inclusion location only. It carries no success or status
// field; a reverted contract call still lands in a block (spec §4.8 item 2)
// and gets the same Receipt as a successful one.
type Receipt struct {
	TxHash      common.Hash
	BlockHash   common.Hash
	BlockHeight uint64
	Index       uint64
}

// GetTransactionReceipt returns the receipt for a previously included
// transaction.
func (a *API) GetTransactionReceipt(hash common.Hash) (*Receipt, error) {
	tx, loc, err := a.state.Storage().GetTx(hash)
	if err != nil {
		return nil, err
	}
	blk, err := a.state.Storage().GetByHash(loc.BlockHash)
	if err != nil {
		return nil, err
	}
	return &Receipt{TxHash: tx.Hash(), BlockHash: loc.BlockHash, BlockHeight: blk.Header.Height, Index: loc.Index}, nil
}

// SendRawTransaction admits tx via State.AddTx (spec §6 "calls State.addTx").
func (a *API) SendRawTransaction(tx *types.BlockTx) (common.Hash, error) {
	if err := a.state.AddTx(tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// Call executes a read-only invocation via State.EthCall (spec §6 "calls
// State.ethCall").
func (a *API) Call(call state.CallInfo) ([]byte, error) {
	return a.state.EthCall(call)
}

// EstimateGas returns the flat intrinsic cost for a well-formed call
// target, or an error if the target has no contract and no function at all
// (spec §6 "returns intrinsic 21000 for valid calls; otherwise error").
func (a *API) EstimateGas(call state.CallInfo) (uint64, error) {
	if _, err := a.state.EthCall(call); err != nil {
		return 0, err
	}
	return params.IntrinsicGas, nil
}

// GasPrice returns the fixed floor gas price (spec §6 "gasPrice (constant)";
// spec Non-goals: "No fee market").
func (a *API) GasPrice() uint64 { return params.MinGasPrice }

// FeeHistory returns MinGasPrice repeated once per requested block, matching
// the "no fee market" invariant: there is nothing to report a history of.
func (a *API) FeeHistory(blockCount uint64) []uint64 {
	out := make([]uint64, blockCount)
	for i := range out {
		out[i] = params.MinGasPrice
	}
	return out
}

// GetLogs queries the event index (spec §6 "queries event index").
func (a *API) GetLogs(filter storage.LogFilter) ([]byte, error) {
	events, err := a.state.Storage().GetLogs(filter)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, ev := range events {
		out = append(out, ev.EncodeRLP()...)
	}
	return out, nil
}

// Syncing always reports false: there is no header-sync phase distinct from
// block processing in this node (spec §6 "syncing (false)").
func (a *API) Syncing() bool { return false }

// Coinbase returns this node's validator address, the zero address if none.
func (a *API) Coinbase() common.Address { return a.coinbase }

// ProtocolVersion returns the node version string supplied at construction.
func (a *API) ProtocolVersion() string { return a.version }

// NetListening reports whether the node has any peer info source attached.
func (a *API) NetListening() bool { return a.peers != nil }

// NetPeerCount returns the number of connected peers, zero if no peer
// source was attached.
func (a *API) NetPeerCount() int {
	if a.peers == nil {
		return 0
	}
	return a.peers.Len()
}

var _ PeerInfo = (*gossip.PeerSet)(nil)
