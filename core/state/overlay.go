package state

import (
	"github.com/holiman/uint256"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
)

// overlayLedger is a throwaway LedgerView that starts as a read-through to a
// real Ledger and accumulates per-address nonce/balance deltas, giving
// validateBlock the cumulative view spec §4.8 requires ("accounting for
// state changes of earlier txs in the same block") without mutating the
// real Ledger or duplicating mempool.UserMempool's admission logic.
type overlayLedger struct {
	base    ledgerReader
	nonces  map[common.Address]uint64
	balances map[common.Address]*uint256.Int
}

// ledgerReader is the read-only slice of *ledger.Ledger the overlay needs.
type ledgerReader interface {
	GetNonce(addr common.Address) uint64
	GetBalance(addr common.Address) *uint256.Int
}

func newOverlayLedger(base ledgerReader) *overlayLedger {
	return &overlayLedger{
		base:    &ledgerReaderAdapter{base},
		nonces:  make(map[common.Address]uint64),
		balances: make(map[common.Address]*uint256.Int),
	}
}

type ledgerReaderAdapter struct{ r ledgerReader }

func (a *ledgerReaderAdapter) GetNonce(addr common.Address) uint64 { return a.r.GetNonce(addr) }
func (a *ledgerReaderAdapter) GetBalance(addr common.Address) *uint256.Int {
	return a.r.GetBalance(addr)
}

// GetNonce implements mempool.LedgerView.
func (o *overlayLedger) GetNonce(addr common.Address) uint64 {
	if n, ok := o.nonces[addr]; ok {
		return n
	}
	return o.base.GetNonce(addr)
}

// GetBalance implements mempool.LedgerView.
func (o *overlayLedger) GetBalance(addr common.Address) *uint256.Int {
	if b, ok := o.balances[addr]; ok {
		return new(uint256.Int).Set(b)
	}
	return o.base.GetBalance(addr)
}

// apply folds tx's effect into the overlay, mirroring the plain-transfer
// accounting State.applyUserTx performs for real (gas + value debited from
// the sender, value credited to the recipient, sender nonce incremented).
// Contract-targeted txs are folded in the same way (gas + value), the worst
// case a contract call can cost, without running the runtime.
func (o *overlayLedger) apply(tx *types.BlockTx) {
	gasCost := new(uint256.Int).Mul(new(uint256.Int).SetUint64(tx.GasLimit), tx.MaxFeePerGas)
	total := new(uint256.Int).Add(gasCost, tx.Value)

	fromBal := o.GetBalance(tx.From)
	if fromBal.Lt(total) {
		fromBal = new(uint256.Int)
	} else {
		fromBal = new(uint256.Int).Sub(fromBal, total)
	}
	o.balances[tx.From] = fromBal

	toBal := o.GetBalance(tx.To)
	o.balances[tx.To] = new(uint256.Int).Add(toBal, tx.Value)

	o.nonces[tx.From] = o.GetNonce(tx.From) + 1
}
