// Package mempool implements the two unordered transaction pools of §4.5:
// the state-scoped user mempool and the consensus-scoped validator mempool.
// Ordering is imposed only at block construction time, outside this package.
package mempool

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
)

// LedgerView is the read-only slice of Ledger the user mempool needs to
// admit and re-check transactions.
type LedgerView interface {
	GetNonce(addr common.Address) uint64
	GetBalance(addr common.Address) *uint256.Int
}

// UserMempool holds pending, not-yet-included BlockTxs keyed by hash.
type UserMempool struct {
	mu      sync.RWMutex
	ledger  LedgerView
	chainID uint64
	byHash  map[common.Hash]*types.BlockTx
	byFromNonce map[common.Address]map[uint64]common.Hash
}

// NewUserMempool returns an empty mempool backed by ledger.
func NewUserMempool(ledger LedgerView, chainID uint64) *UserMempool {
	return &UserMempool{
		ledger:      ledger,
		chainID:     chainID,
		byHash:      make(map[common.Hash]*types.BlockTx),
		byFromNonce: make(map[common.Address]map[uint64]common.Hash),
	}
}

// totalCost returns gasLimit*maxFeePerGas + value, the balance a sender must
// cover for the mempool to admit the transaction.
func totalCost(tx *types.BlockTx) *uint256.Int {
	gas := new(uint256.Int).SetUint64(tx.GasLimit)
	cost := new(uint256.Int).Mul(gas, tx.MaxFeePerGas)
	return cost.Add(cost, tx.Value)
}

// Validate checks a transaction against current ledger state without
// mutating the mempool (spec §4.8 validateTransaction: "Pure; no mutation").
func (m *UserMempool) Validate(tx *types.BlockTx) error {
	if tx.ChainID != m.chainID {
		return types.ErrWrongChainID
	}
	nonce := m.ledger.GetNonce(tx.From)
	if tx.Nonce < nonce {
		return types.NewError(types.KindInvalidNonce, "mempool: nonce already used")
	}
	if tx.Nonce == nonce {
		// ok
	} else {
		m.mu.RLock()
		existing, hasOther := m.byFromNonce[tx.From][tx.Nonce]
		m.mu.RUnlock()
		if hasOther && existing != tx.Hash() {
			return types.NewError(types.KindInvalidNonce, "mempool: nonce already occupied by a different pending tx")
		}
	}
	balance := m.ledger.GetBalance(tx.From)
	if balance.Lt(totalCost(tx)) {
		return types.ErrInsufficientBalance
	}
	return nil
}

// Add validates and inserts tx. Returns KindDuplicate if the exact tx hash
// is already present.
func (m *UserMempool) Add(tx *types.BlockTx) error {
	m.mu.Lock()
	if _, exists := m.byHash[tx.Hash()]; exists {
		m.mu.Unlock()
		return types.ErrDuplicate
	}
	m.mu.Unlock()

	if err := m.Validate(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[tx.Hash()] = tx
	if m.byFromNonce[tx.From] == nil {
		m.byFromNonce[tx.From] = make(map[uint64]common.Hash)
	}
	m.byFromNonce[tx.From][tx.Nonce] = tx.Hash()
	return nil
}

// Has reports whether txHash is currently pending.
func (m *UserMempool) Has(txHash common.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byHash[txHash]
	return ok
}

// All returns every pending transaction, in unspecified order.
func (m *UserMempool) All() []*types.BlockTx {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.BlockTx, 0, len(m.byHash))
	for _, tx := range m.byHash {
		out = append(out, tx)
	}
	return out
}

func (m *UserMempool) remove(tx *types.BlockTx) {
	delete(m.byHash, tx.Hash())
	if byNonce, ok := m.byFromNonce[tx.From]; ok {
		delete(byNonce, tx.Nonce)
		if len(byNonce) == 0 {
			delete(m.byFromNonce, tx.From)
		}
	}
}

// PruneAfterBlock drops every included transaction, then re-validates the
// remaining pool against the post-block ledger and drops anything that no
// longer passes (spec §4.5 "Mempool purity").
func (m *UserMempool) PruneAfterBlock(included []*types.BlockTx) {
	m.mu.Lock()
	for _, tx := range included {
		m.remove(tx)
	}
	remaining := make([]*types.BlockTx, 0, len(m.byHash))
	for _, tx := range m.byHash {
		remaining = append(remaining, tx)
	}
	m.mu.Unlock()

	for _, tx := range remaining {
		if err := m.Validate(tx); err != nil {
			m.mu.Lock()
			m.remove(tx)
			m.mu.Unlock()
		}
	}
}

// Len reports the number of pending transactions.
func (m *UserMempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byHash)
}
