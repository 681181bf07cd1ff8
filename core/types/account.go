package types

import "github.com/holiman/uint256"

// Account is the ledger's per-address record: native balance and the nonce
// of the next user transaction the address may send. Mirrors the teacher's
// core/types.StateAccount, minus the storage/code trie roots this chain does
// not have (contracts live in the separate contracts.Registry, not in the
// account trie).
type Account struct {
	Balance *uint256.Int
	Nonce   uint64
}

// NewAccount returns a freshly created, zero-balance account.
func NewAccount() *Account {
	return &Account{Balance: new(uint256.Int)}
}

// Clone returns a deep copy, used wherever a snapshot-under-lock must
// outlive the lock (spec §5 "returning copies").
func (a *Account) Clone() *Account {
	return &Account{Balance: new(uint256.Int).Set(a.Balance), Nonce: a.Nonce}
}
