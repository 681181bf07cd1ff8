// Package contracts implements the journaled contract runtime of spec §4.6
// and §4.7: safe variables that commit or revert per nested call frame, a
// balance buffer reconciled with the Ledger, and a selector-dispatching
// runtime with a constructor/function registry.
//
// There is no teacher or pack example of a state journal for this exact
// shape (no core/vm/statedb.go was retrieved), so Frame is built directly
// from the spec's description of shadow-on-first-mutation commit/revert
// semantics, in the idiom the teacher uses elsewhere for stateful
// bookkeeping (sync-free single-goroutine-per-call, explicit struct state).
package contracts

import (
	"github.com/rdpos-labs/rdchain/common"
)

// Frame is one call-logger frame: the set of safe-variable shadows, events,
// and freshly-deployed-contract addresses touched during a single
// (possibly nested) contract invocation (spec §4.6). Balance-buffer
// mutations are journaled through the same enableRegister mechanism (see
// BalanceBuffer.Transfer) rather than a separate per-frame delta map.
type Frame struct {
	parent       *Frame
	registered   map[any]struct{}
	undos        []func()
	events       []Event
	newContracts []common.Address
}

func newFrame(parent *Frame) *Frame {
	return &Frame{
		parent:     parent,
		registered: make(map[any]struct{}),
	}
}

// enableRegister records undo under the frame's journal the first time a
// given safe-variable identity (key) is mutated in this frame; subsequent
// mutations within the same frame are no-ops here (spec: "registers itself
// ... on first mutation within the current call").
func (f *Frame) enableRegister(key any, undo func()) {
	if _, ok := f.registered[key]; ok {
		return
	}
	f.registered[key] = struct{}{}
	f.undos = append(f.undos, undo)
}

// emit buffers an event, visible only after the root frame commits.
func (f *Frame) emit(ev Event) {
	f.events = append(f.events, ev)
}

// markNewContract records addr as deployed during this frame, so a revert
// can erase it (spec: "New contract deployments created during a reverted
// call are erased").
func (f *Frame) markNewContract(addr common.Address) {
	f.newContracts = append(f.newContracts, addr)
}

// commit discards this frame's own shadows and merges everything the
// parent doesn't already know about into the parent frame, so that an
// ancestor revert still undoes mutations made by a since-committed child
// (spec: "an inner revert rolls back only its frame, leaving outer
// mutations intact unless the outer frame also reverts").
func (f *Frame) commit() {
	if f.parent == nil {
		return
	}
	p := f.parent
	for key := range f.registered {
		if _, exists := p.registered[key]; !exists {
			p.registered[key] = struct{}{}
		}
	}
	p.undos = append(p.undos, f.undos...)
	p.events = append(p.events, f.events...)
	p.newContracts = append(p.newContracts, f.newContracts...)
}

// revert undoes every mutation registered in this frame, in reverse
// registration order, and discards its events, balance deltas, and newly
// deployed contracts. It does not touch the parent frame.
func (f *Frame) revert(onEraseContract func(common.Address)) {
	for i := len(f.undos) - 1; i >= 0; i-- {
		f.undos[i]()
	}
	for _, addr := range f.newContracts {
		if onEraseContract != nil {
			onEraseContract(addr)
		}
	}
}

// SafeVar is a journaled scalar/struct value owned by a contract. Mutations
// go through Set, which registers the pre-image with the active frame the
// first time the variable is touched in that frame (spec §4.6).
type SafeVar[T any] struct {
	value T
}

// NewSafeVar constructs a safe variable with an initial value.
func NewSafeVar[T any](initial T) *SafeVar[T] {
	return &SafeVar[T]{value: initial}
}

// Get returns the current value, including any in-progress, uncommitted
// mutation from the active frame.
func (s *SafeVar[T]) Get() T { return s.value }

// Set mutates the value, journaling the pre-image in frame on first touch.
func (s *SafeVar[T]) Set(frame *Frame, v T) {
	old := s.value
	frame.enableRegister(s, func() { s.value = old })
	s.value = v
}

// SafeMap is a journaled mapping. Insert/Erase/Assign register the entire
// pre-image map on first touch within a frame (spec: "collection-level
// atomic mutators ... that register the entire pre-image when first
// touched"), which keeps revert O(1) shadow-swap instead of O(changes).
type SafeMap[K comparable, V any] struct {
	m map[K]V
}

// NewSafeMap constructs an empty safe map.
func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{m: make(map[K]V)}
}

func (s *SafeMap[K, V]) snapshot(frame *Frame) {
	old := make(map[K]V, len(s.m))
	for k, v := range s.m {
		old[k] = v
	}
	frame.enableRegister(s, func() { s.m = old })
}

// Get returns the value for key and whether it is present.
func (s *SafeMap[K, V]) Get(key K) (V, bool) {
	v, ok := s.m[key]
	return v, ok
}

// Insert adds or overwrites key with value.
func (s *SafeMap[K, V]) Insert(frame *Frame, key K, value V) {
	s.snapshot(frame)
	s.m[key] = value
}

// Erase removes key, if present.
func (s *SafeMap[K, V]) Erase(frame *Frame, key K) {
	s.snapshot(frame)
	delete(s.m, key)
}

// Assign replaces the entire map contents.
func (s *SafeMap[K, V]) Assign(frame *Frame, m map[K]V) {
	s.snapshot(frame)
	cpy := make(map[K]V, len(m))
	for k, v := range m {
		cpy[k] = v
	}
	s.m = cpy
}

// Len returns the number of entries currently in the map.
func (s *SafeMap[K, V]) Len() int { return len(s.m) }
