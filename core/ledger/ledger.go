// Package ledger implements the address-keyed account table (§4.1): native
// balance and nonce, mutated only by State during block application or
// through an explicit admin credit path.
package ledger

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
)

// Ledger is the account table. It is safe for concurrent use; callers that
// need a stable multi-field view should use Snapshot.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[common.Address]*types.Account
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{accounts: make(map[common.Address]*types.Account)}
}

func (l *Ledger) getOrCreate(addr common.Address) *types.Account {
	a, ok := l.accounts[addr]
	if !ok {
		a = types.NewAccount()
		l.accounts[addr] = a
	}
	return a
}

// GetBalance returns addr's current balance, or zero if the account does not exist.
func (l *Ledger) GetBalance(addr common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.accounts[addr]; ok {
		return new(uint256.Int).Set(a.Balance)
	}
	return new(uint256.Int)
}

// GetNonce returns addr's current nonce, or zero if the account does not exist.
func (l *Ledger) GetNonce(addr common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.accounts[addr]; ok {
		return a.Nonce
	}
	return 0
}

// Credit adds amount to addr's balance, creating the account (nonce 0) if
// it does not exist. This is also the admin credit path used by genesis import.
func (l *Ledger) Credit(addr common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.getOrCreate(addr)
	a.Balance.Add(a.Balance, amount)
}

// Debit subtracts amount from addr's balance. Fails without side effects
// (KindInsufficientBalance) if that would underflow.
func (l *Ledger) Debit(addr common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[addr]
	if !ok || a.Balance.Lt(amount) {
		return types.NewError(types.KindInsufficientBalance, "ledger: insufficient balance for "+addr.Hex())
	}
	a.Balance.Sub(a.Balance, amount)
	return nil
}

// SetBalance overwrites addr's balance unconditionally, creating the
// account if necessary. Used only by the contract runtime's balance buffer
// to flush an already-validated set of payable transfers on commit (spec
// §4.6 "on commit, the buffer is flushed to the Ledger").
func (l *Ledger) SetBalance(addr common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.getOrCreate(addr)
	a.Balance.Set(amount)
}

// IncrementNonce increments addr's nonce by exactly one, creating the
// account if necessary. Called exactly once per applied user tx.
func (l *Ledger) IncrementNonce(addr common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.getOrCreate(addr)
	a.Nonce++
}

// Snapshot returns a deep-copied view of addr's account, safe to hold
// outside any lock (spec §5 "returning copies").
func (l *Ledger) Snapshot(addr common.Address) *types.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.accounts[addr]; ok {
		return a.Clone()
	}
	return types.NewAccount()
}

// TotalBalance sums every account's balance, used by conservation tests
// (spec §8 "Account conservation").
func (l *Ledger) TotalBalance() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := new(uint256.Int)
	for _, a := range l.accounts {
		total.Add(total, a.Balance)
	}
	return total
}

// Addresses returns every address with a non-default account, in
// unspecified order. Used for serialization/export (spec §8 "Deterministic
// state" callers sort this themselves before hashing).
func (l *Ledger) Addresses() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]common.Address, 0, len(l.accounts))
	for addr := range l.accounts {
		out = append(out, addr)
	}
	return out
}
