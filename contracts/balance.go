package contracts

import (
	"github.com/holiman/uint256"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
)

// LedgerHandle is the narrow slice of Ledger the balance buffer needs: read
// the committed balance, and flush an already-validated absolute balance on
// commit. Kept as an interface so contracts never imports core/ledger's
// concrete type (spec §9 "inject references through construction").
type LedgerHandle interface {
	GetBalance(addr common.Address) *uint256.Int
	SetBalance(addr common.Address, amount *uint256.Int)
}

// BalanceBuffer overlays pending payable transfers on top of the Ledger for
// the lifetime of one transaction. Transfers are applied optimistically to
// the overlay and only flushed to the Ledger when the root frame commits;
// a revert of any frame discards that frame's share of the overlay via its
// journaled undo closures (spec §4.6 "per-call balance buffer").
type BalanceBuffer struct {
	ledger  LedgerHandle
	overlay map[common.Address]*uint256.Int
}

// NewBalanceBuffer creates a buffer backed by ledger, used by all calls
// within a single transaction.
func NewBalanceBuffer(ledger LedgerHandle) *BalanceBuffer {
	return &BalanceBuffer{ledger: ledger, overlay: make(map[common.Address]*uint256.Int)}
}

func (b *BalanceBuffer) balanceOf(addr common.Address) *uint256.Int {
	if v, ok := b.overlay[addr]; ok {
		return v
	}
	return b.ledger.GetBalance(addr)
}

// BalanceOf returns the pending balance of addr as seen within the
// transaction, including any uncommitted transfers.
func (b *BalanceBuffer) BalanceOf(addr common.Address) *uint256.Int {
	return new(uint256.Int).Set(b.balanceOf(addr))
}

// Transfer debits from and credits to within frame's journal. Fails with
// KindInsufficientBalance, leaving the overlay untouched, if from cannot
// cover amount.
func (b *BalanceBuffer) Transfer(frame *Frame, from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	fromBal := b.balanceOf(from)
	if fromBal.Lt(amount) {
		return types.NewError(types.KindInsufficientBalance, "contracts: payable transfer exceeds balance of "+from.Hex())
	}
	toBal := b.balanceOf(to)
	oldFrom, oldTo := new(uint256.Int).Set(fromBal), new(uint256.Int).Set(toBal)
	hadFrom, hadFromOk := b.overlay[from]
	hadTo, hadToOk := b.overlay[to]

	frame.enableRegister(balanceKey{b, from, to}, func() {
		if hadFromOk {
			b.overlay[from] = hadFrom
		} else {
			delete(b.overlay, from)
		}
		if hadToOk {
			b.overlay[to] = hadTo
		} else {
			delete(b.overlay, to)
		}
	})

	b.overlay[from] = new(uint256.Int).Sub(oldFrom, amount)
	b.overlay[to] = new(uint256.Int).Add(oldTo, amount)
	return nil
}

// balanceKey disambiguates registration identity per (from, to) pair so
// unrelated transfers in the same frame journal independently.
type balanceKey struct {
	buf      *BalanceBuffer
	from, to common.Address
}

// Flush writes every overlaid balance to the Ledger. Called exactly once,
// when the outermost (root) frame of a transaction commits.
func (b *BalanceBuffer) Flush() {
	for addr, bal := range b.overlay {
		b.ledger.SetBalance(addr, bal)
	}
	b.overlay = make(map[common.Address]*uint256.Int)
}
