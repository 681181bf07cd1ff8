package mempool

import (
	"sync"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
)

// CommitteeView is the read-only slice of rdPoS state the validator mempool
// needs: who is in the committee for the upcoming height, and what that
// height is.
type CommitteeView interface {
	IsCommitteeMember(addr common.Address) bool
	NextHeight() uint64
}

// ValidatorMempool holds pending commit/reveal ValidatorTxs for the
// upcoming height, keyed by hash, with per-sender one-hash/one-seed limits.
type ValidatorMempool struct {
	mu        sync.RWMutex
	committee CommitteeView
	chainID   uint64
	byHash    map[common.Hash]*types.ValidatorTx
	hashBySender map[common.Address]common.Hash
	seedBySender map[common.Address]common.Hash
}

// NewValidatorMempool returns an empty mempool backed by committee.
func NewValidatorMempool(committee CommitteeView, chainID uint64) *ValidatorMempool {
	return &ValidatorMempool{
		committee:    committee,
		chainID:      chainID,
		byHash:       make(map[common.Hash]*types.ValidatorTx),
		hashBySender: make(map[common.Address]common.Hash),
		seedBySender: make(map[common.Address]common.Hash),
	}
}

// Add validates and inserts tx (spec §4.5 validator mempool admission rule).
func (m *ValidatorMempool) Add(tx *types.ValidatorTx) error {
	if tx.ChainID != m.chainID {
		return types.ErrWrongChainID
	}
	if !m.committee.IsCommitteeMember(tx.From) {
		return types.NewError(types.KindInvalidBlock, "validator mempool: sender not in committee")
	}
	if tx.Height != m.committee.NextHeight() {
		return types.NewError(types.KindInvalidBlock, "validator mempool: wrong height")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byHash[tx.Hash()]; exists {
		return types.ErrDuplicate
	}
	switch tx.Selector() {
	case types.SelectorRandomHash:
		if _, ok := m.hashBySender[tx.From]; ok {
			return types.NewError(types.KindDuplicate, "validator mempool: randomHash already submitted")
		}
		m.hashBySender[tx.From] = tx.Hash()
	case types.SelectorRandomSeed:
		if _, ok := m.seedBySender[tx.From]; ok {
			return types.NewError(types.KindDuplicate, "validator mempool: randomSeed already submitted")
		}
		m.seedBySender[tx.From] = tx.Hash()
	default:
		return types.NewError(types.KindMalformed, "validator mempool: unrecognized selector")
	}
	m.byHash[tx.Hash()] = tx
	return nil
}

// All returns every pending validator transaction, in unspecified order.
func (m *ValidatorMempool) All() []*types.ValidatorTx {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.ValidatorTx, 0, len(m.byHash))
	for _, tx := range m.byHash {
		out = append(out, tx)
	}
	return out
}

// CountFromSender reports how many of randomHash/randomSeed sender has
// already submitted (0, 1, or 2).
func (m *ValidatorMempool) CountFromSender(sender common.Address) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	if _, ok := m.hashBySender[sender]; ok {
		n++
	}
	if _, ok := m.seedBySender[sender]; ok {
		n++
	}
	return n
}

// CountHashes reports how many randomHash commits are currently pooled.
func (m *ValidatorMempool) CountHashes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hashBySender)
}

// Len reports the total number of pending validator transactions.
func (m *ValidatorMempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byHash)
}

// Clear empties the mempool entirely, called after every accepted block
// (spec §4.5: "validator mempool cleared entirely").
func (m *ValidatorMempool) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash = make(map[common.Hash]*types.ValidatorTx)
	m.hashBySender = make(map[common.Address]common.Hash)
	m.seedBySender = make(map[common.Address]common.Hash)
}
