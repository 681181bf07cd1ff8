// Package state implements the transition function of spec §4.8: the sole
// owner of mutation, composing Ledger, Storage, both mempools, the contract
// runtime, and a non-owning handle to rdPoS (spec §9: "inject references
// through construction, keep them non-owning").
package state

import (
	"github.com/holiman/uint256"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/contracts"
	"github.com/rdpos-labs/rdchain/core/ledger"
	"github.com/rdpos-labs/rdchain/core/mempool"
	"github.com/rdpos-labs/rdchain/core/storage"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/gossip"
	"github.com/rdpos-labs/rdchain/log"
	"github.com/rdpos-labs/rdchain/params"
)

var logger = log.New("pkg", "state")

// compile-time assertion that State satisfies the substrate's inbound contract.
var _ gossip.Inbound = (*State)(nil)

// ConsensusHandle is the non-owning view State holds of rdPoS: block
// validation and the post-block randomness advance.
type ConsensusHandle interface {
	ValidateBlock(block *types.Block) error
	Advance(blockRandomness common.Hash)
}

// State ties every core component together behind the four operations spec
// §4.8 names.
type State struct {
	chainID uint64

	ledger    *ledger.Ledger
	storage   *storage.Storage
	userPool  *mempool.UserMempool
	validatorPool *mempool.ValidatorMempool
	registry  *contracts.Registry
	runtime   *contracts.Runtime
	consensus ConsensusHandle
	broadcast gossip.Substrate
}

// New wires a ready-to-use State. broadcast may be nil (no gossip attached,
// e.g. in tests).
func New(chainID uint64, l *ledger.Ledger, s *storage.Storage, registry *contracts.Registry, consensus ConsensusHandle, validatorPool *mempool.ValidatorMempool, broadcast gossip.Substrate) *State {
	userPool := mempool.NewUserMempool(l, chainID)
	runtime := contracts.NewRuntime(registry, contracts.NewBalanceBuffer(l), l.GetNonce)
	return &State{
		chainID:       chainID,
		ledger:        l,
		storage:       s,
		userPool:      userPool,
		validatorPool: validatorPool,
		registry:      registry,
		runtime:       runtime,
		consensus:     consensus,
		broadcast:     broadcast,
	}
}

// ValidateTransaction is a pure admission check; see mempool.UserMempool.Validate.
func (s *State) ValidateTransaction(tx *types.BlockTx) error {
	return s.userPool.Validate(tx)
}

// AddTx validates tx, inserts it into the user mempool, and broadcasts it
// (spec §4.8 "addTx").
func (s *State) AddTx(tx *types.BlockTx) error {
	if err := s.userPool.Add(tx); err != nil {
		return err
	}
	if s.broadcast != nil {
		return s.broadcast.BroadcastTxBlock(tx)
	}
	return nil
}

// ValidateBlock checks block against the chain head, rdPoS, and per-tx
// balance/nonce validity accounting for earlier txs in the same block
// (spec §4.8 "validateBlock").
func (s *State) ValidateBlock(block *types.Block) error {
	latest := s.storage.Latest()
	if latest == nil {
		if block.Header.Height != 1 || block.Header.PrevHash != (common.Hash{}) {
			return types.NewError(types.KindInvalidBlock, "state: first block must be height 1 with zero prevHash")
		}
	} else {
		if block.Header.Height != latest.Header.Height+1 {
			return types.NewError(types.KindInvalidBlock, "state: wrong height")
		}
		if block.Header.PrevHash != latest.Hash() {
			return types.NewError(types.KindInvalidBlock, "state: prevHash mismatch")
		}
		if block.Header.Timestamp <= latest.Header.Timestamp {
			return types.NewError(types.KindInvalidBlock, "state: timestamp does not advance")
		}
	}

	if err := s.consensus.ValidateBlock(block); err != nil {
		return err
	}

	overlay := newOverlayLedger(s.ledger)
	overlayPool := mempool.NewUserMempool(overlay, s.chainID)
	for _, tx := range block.UserTxs {
		if err := overlayPool.Validate(tx); err != nil {
			return err
		}
		overlay.apply(tx)
	}
	return nil
}

// ProcessBlock applies block's txs to the Ledger and contract state,
// appends it to Storage, refreshes both mempools, and advances rdPoS
// (spec §4.8 "processBlock" steps 1-5).
func (s *State) ProcessBlock(block *types.Block) error {
	var events []contracts.Event
	for i, tx := range block.UserTxs {
		events = append(events, s.applyUserTx(tx, block, uint64(i))...)
	}

	if err := s.storage.AppendBlock(block); err != nil {
		return err
	}
	for i := range events {
		events[i].LogIndex = uint64(i)
	}
	if err := s.storage.AppendEvents(block.Header.Height, events); err != nil {
		return err
	}

	s.userPool.PruneAfterBlock(block.UserTxs)
	s.validatorPool.Clear()
	s.consensus.Advance(block.Header.BlockRandomness)
	logger.Info("processed block", "height", block.Header.Height, "hash", block.Hash(), "txs", len(block.UserTxs), "events", len(events))
	return nil
}

func (s *State) applyUserTx(tx *types.BlockTx, block *types.Block, index uint64) []contracts.Event {
	gasCost := new(uint256.Int).Mul(new(uint256.Int).SetUint64(tx.GasLimit), tx.MaxFeePerGas)

	if _, isContract := s.registry.Lookup(tx.To); isContract || tx.To == params.ContractManagerAddress {
		_ = s.ledger.Debit(tx.From, gasCost) // validated prior to block acceptance
		_, events, _ := s.runtime.ExecuteTransaction(tx.From, tx.To, tx.Value, tx.Data, tx.Hash(), index, block.Header.Height)
		s.ledger.IncrementNonce(tx.From)
		return events
	}

	total := new(uint256.Int).Add(gasCost, tx.Value)
	if err := s.ledger.Debit(tx.From, total); err != nil {
		s.ledger.IncrementNonce(tx.From)
		return nil
	}
	s.ledger.Credit(tx.To, tx.Value)
	s.ledger.IncrementNonce(tx.From)
	return nil
}

// CallInfo is the input to EthCall: an unsigned, unmetered read-only
// invocation (spec §6 "call (calls State.ethCall)").
type CallInfo struct {
	From common.Address
	To   common.Address
	Data []byte
}

// EthCall executes a view call through the same dispatch path as a real
// transaction; the runtime's per-function Kind check rejects any attempt
// to mutate state (spec §4.8 "ethCall").
func (s *State) EthCall(call CallInfo) ([]byte, error) {
	out, _, err := s.runtime.ExecuteTransaction(call.From, call.To, new(uint256.Int), call.Data, common.Hash{}, 0, 0)
	return out, err
}

// OnBlock implements gossip.Inbound: validate then apply an incoming block.
func (s *State) OnBlock(block *types.Block) error {
	if err := s.ValidateBlock(block); err != nil {
		return err
	}
	return s.ProcessBlock(block)
}

// OnUserTx implements gossip.Inbound: admit a gossiped user transaction
// into the pool without re-broadcasting it (the peer that sent it is
// already gossiping to its own peers).
func (s *State) OnUserTx(tx *types.BlockTx) error {
	return s.userPool.Add(tx)
}

// OnValidatorTx implements gossip.Inbound: admit a gossiped commit/reveal
// transaction into the validator pool.
func (s *State) OnValidatorTx(tx *types.ValidatorTx) error {
	return s.validatorPool.Add(tx)
}

// OnValidatorMempoolRequest implements gossip.Inbound: answer a peer's
// requestValidatorTxs with every validator tx currently pending.
func (s *State) OnValidatorMempoolRequest(from gossip.SessionID) ([]*types.ValidatorTx, error) {
	return s.validatorPool.All(), nil
}

// Ledger exposes the read-only account view for RPC query methods.
func (s *State) Ledger() *ledger.Ledger { return s.ledger }

// Storage exposes the read-only block log for RPC query methods.
func (s *State) Storage() *storage.Storage { return s.storage }

// UserMempool exposes the pending user-tx pool for RPC query methods.
func (s *State) UserMempool() *mempool.UserMempool { return s.userPool }

// TypeTag reports the persisted contract type tag installed at addr, for
// the getCode RPC query (spec §6 "a sentinel for contracts").
func (s *State) TypeTag(addr common.Address) (string, bool) {
	return s.registry.TypeTag(addr)
}

// ChainID returns the network's chain id, for the chainId RPC query.
func (s *State) ChainID() uint64 { return s.chainID }
