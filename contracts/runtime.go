package contracts

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/crypto"
	"github.com/rdpos-labs/rdchain/log"
	"github.com/rdpos-labs/rdchain/params"
)

var logger = log.New("pkg", "contracts")

// CallContext is what a handler sees for the current invocation: the
// transaction's origin, the immediate caller, the value attached to this
// specific call, and the journal frame its mutations are registered
// against (spec §4.7 step 4: "set (origin, caller, value) on the callee").
type CallContext struct {
	Origin common.Address
	Caller common.Address
	To     common.Address
	Value  *uint256.Int

	TxHash      common.Hash
	TxIndex     uint64
	BlockHeight uint64

	Runtime *Runtime
	frame   *Frame
}

// Emit buffers ev under the active frame.
func (c *CallContext) Emit(name string, topics []common.Hash, data []byte) error {
	if len(topics) > MaxTopics {
		return types.NewError(types.KindMalformed, "contracts: too many event topics")
	}
	c.frame.emit(Event{
		Name:        name,
		Address:     c.To,
		Topics:      topics,
		Data:        data,
		TxHash:      c.TxHash,
		TxIndex:     c.TxIndex,
		BlockHeight: c.BlockHeight,
		LogIndex:    uint64(len(c.frame.events)),
	})
	return nil
}

// Call re-enters the runtime from inside a handler, pushing a nested frame
// (spec §4.7 "Nested calls push a new logger frame").
func (c *CallContext) Call(to common.Address, value *uint256.Int, data []byte) ([]byte, error) {
	return c.Runtime.dispatch(c.Origin, c.To, to, value, data, c.frame, c.TxHash, c.TxIndex, c.BlockHeight)
}

// Runtime dispatches transactions and nested calls against a Registry, a
// BalanceBuffer, and a reentrancy guard per contract address (spec §4.7,
// §5 "Each contract's reentrancy flag is a thread-local-per-call marker").
type Runtime struct {
	registry *Registry
	balances *BalanceBuffer
	nonceAt  func(common.Address) uint64

	mu        sync.Mutex
	executing map[common.Address]bool
}

// NewRuntime builds a Runtime over registry, with payable transfers applied
// through balances. nonceAt reports a creator's nonce at the start of the
// current transaction, used for contract address derivation.
func NewRuntime(registry *Registry, balances *BalanceBuffer, nonceAt func(common.Address) uint64) *Runtime {
	return &Runtime{
		registry:  registry,
		balances:  balances,
		nonceAt:   nonceAt,
		executing: make(map[common.Address]bool),
	}
}

// deployViaContractManager implements spec §4.7 step 1's sentinel route:
// a call to the unoccupied ContractManager address is a deploy request
// whose first 4 bytes select a constructor from the global table.
func (rt *Runtime) deployViaContractManager(origin, caller common.Address, data []byte, parent *Frame, txHash common.Hash, txIndex, blockHeight uint64) ([]byte, error) {
	if len(data) < 4 {
		return nil, types.NewError(types.KindMalformed, "contracts: deploy call data shorter than a constructor signature")
	}
	var sig [4]byte
	copy(sig[:], data[:4])
	nonce := rt.nonceAt(caller)
	addr := DeriveContractAddress(crypto.Keccak256, caller, nonce)

	frame := newFrame(parent)
	c, err := rt.Deploy(origin, addr, sig, data[4:], frame, txHash, txIndex, blockHeight)
	if err != nil {
		frame.revert(rt.registry.erase)
		if types.KindOf(err) == types.KindNone {
			err = types.NewError(types.KindContractExecution, err.Error())
		}
		return nil, err
	}
	frame.commit()
	_ = c
	return addr.Bytes(), nil
}

// ExecuteTransaction runs a top-level call as the root frame of a
// transaction: on success the frame commits and the balance buffer is
// flushed; on failure everything reverts and the error is returned as-is
// (dispatch has already given a handler error without a Kind
// KindContractExecution).
func (rt *Runtime) ExecuteTransaction(origin, to common.Address, value *uint256.Int, data []byte, txHash common.Hash, txIndex, blockHeight uint64) ([]byte, []Event, error) {
	root := newFrame(nil)
	out, err := rt.dispatch(origin, origin, to, value, data, root, txHash, txIndex, blockHeight)
	if err != nil {
		root.revert(rt.registry.erase)
		return nil, nil, err
	}
	rt.balances.Flush()
	return out, root.events, nil
}

// dispatch is the common path for both top-level calls and nested
// CallContext.Call re-entries (spec §4.7 numbered steps 1-4).
func (rt *Runtime) dispatch(origin, caller, to common.Address, value *uint256.Int, data []byte, parent *Frame, txHash common.Hash, txIndex, blockHeight uint64) ([]byte, error) {
	contract, ok := rt.registry.Lookup(to)
	if !ok {
		if to == params.ContractManagerAddress {
			return rt.deployViaContractManager(origin, caller, data, parent, txHash, txIndex, blockHeight)
		}
		return nil, types.ErrNoContract
	}
	if len(data) < 4 {
		return nil, types.NewError(types.KindMalformed, "contracts: call data shorter than a selector")
	}
	var selector [4]byte
	copy(selector[:], data[:4])
	fn, ok := contract.Functions()[selector]
	if !ok {
		return nil, types.ErrNoMethod
	}

	if fn.Kind == KindNonpayable && value != nil && !value.IsZero() {
		return nil, types.NewError(types.KindNotPayable, "contracts: nonpayable function called with value")
	}

	rt.mu.Lock()
	if rt.executing[to] {
		rt.mu.Unlock()
		logger.Warn("rejected reentrant call", "to", to, "selector", selector)
		return nil, types.ErrReentrancy
	}
	rt.executing[to] = true
	rt.mu.Unlock()
	defer func() {
		rt.mu.Lock()
		delete(rt.executing, to)
		rt.mu.Unlock()
	}()

	frame := newFrame(parent)

	if fn.Kind == KindPayable && value != nil && !value.IsZero() {
		if err := rt.balances.Transfer(frame, caller, to, value); err != nil {
			return nil, err
		}
	}

	ctx := &CallContext{
		Origin:      origin,
		Caller:      caller,
		To:          to,
		Value:       value,
		TxHash:      txHash,
		TxIndex:     txIndex,
		BlockHeight: blockHeight,
		Runtime:     rt,
		frame:       frame,
	}

	out, err := fn.Handler(ctx, data[4:])
	if err == nil && fn.Kind == KindView && (len(frame.undos) > 0 || len(frame.events) > 0 || len(frame.newContracts) > 0) {
		err = types.NewError(types.KindContractExecution, "contracts: view function attempted to mutate state")
	}
	if err != nil {
		frame.revert(rt.registry.erase)
		if types.KindOf(err) == types.KindNone {
			err = types.NewError(types.KindContractExecution, err.Error())
		}
		logger.Debug("call reverted", "to", to, "selector", selector, "err", err)
		return nil, err
	}
	frame.commit()
	return out, nil
}

// Deploy looks up the constructor registered for sig, runs it, and installs
// the resulting contract at addr (spec §4.7 step 1: "route to the
// constructor registry").
func (rt *Runtime) Deploy(origin common.Address, addr common.Address, sig [4]byte, in []byte, frame *Frame, txHash common.Hash, txIndex, blockHeight uint64) (Contract, error) {
	ctor, ok := rt.registry.Constructor(sig)
	if !ok {
		return nil, types.ErrNoMethod
	}
	ctx := &CallContext{Origin: origin, Caller: origin, To: addr, Value: new(uint256.Int), TxHash: txHash, TxIndex: txIndex, BlockHeight: blockHeight, Runtime: rt, frame: frame}
	c, err := ctor(ctx, in)
	if err != nil {
		return nil, err
	}
	rt.registry.deploy(frame, addr, c)
	return c, nil
}
