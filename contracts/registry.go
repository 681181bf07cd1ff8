package contracts

import (
	"sync"

	"github.com/rdpos-labs/rdchain/common"
)

// FunctionKind classifies a contract function's mutation/value contract
// (spec §4.7 "Enforce method kind").
type FunctionKind int

const (
	// KindView functions must not mutate state.
	KindView FunctionKind = iota
	// KindNonpayable functions may mutate state but must be called with value == 0.
	KindNonpayable
	// KindPayable functions may mutate state and receive a native-token value transfer.
	KindPayable
)

// HandlerFunc is a contract method implementation. ctx carries the call's
// origin/caller/value and the active journal frame; in is the call data
// following the 4-byte selector. A non-nil error aborts the call and
// reverts the current frame (spec §4.7 step 4).
type HandlerFunc func(ctx *CallContext, in []byte) ([]byte, error)

// Function is one entry of a contract's function table.
type Function struct {
	Kind    FunctionKind
	Handler HandlerFunc
}

// ConstructorFunc deploys a new instance of a contract type, returning the
// contract implementation to register at the derived address.
type ConstructorFunc func(ctx *CallContext, in []byte) (Contract, error)

// Contract is anything reachable through the runtime's dispatch table: a
// static type tag (used for persistent reload) and a selector-indexed
// function table (spec: "Each contract has a static type tag ... and a
// function table").
type Contract interface {
	TypeTag() string
	Functions() map[[4]byte]Function
}

// Registry holds deployed contract instances and the global
// signature-keyed constructor table, mirroring the teacher's
// sysaction.Registry dispatch-by-kind pattern (sysaction/executor.go)
// generalized from a flat handler list to an address-keyed map plus a
// constructor sub-table.
type Registry struct {
	mu           sync.RWMutex
	contracts    map[common.Address]Contract
	typeTags     map[common.Address]string
	constructors map[[4]byte]ConstructorFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		contracts:    make(map[common.Address]Contract),
		typeTags:     make(map[common.Address]string),
		constructors: make(map[[4]byte]ConstructorFunc),
	}
}

// RegisterConstructor adds a constructor keyed by a 4-byte signature hash,
// usually derived as keccak256(typeName)[:4].
func (r *Registry) RegisterConstructor(sig [4]byte, ctor ConstructorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[sig] = ctor
}

// Install places a deployed contract at addr, e.g. for protocol contracts
// assigned at genesis (spec: "A small fixed set of protocol contracts
// exists at genesis with well-known addresses").
func (r *Registry) Install(addr common.Address, c Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[addr] = c
	r.typeTags[addr] = c.TypeTag()
}

// Lookup returns the contract at addr, if any.
func (r *Registry) Lookup(addr common.Address) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[addr]
	return c, ok
}

// Constructor returns the constructor registered for sig, if any.
func (r *Registry) Constructor(sig [4]byte) (ConstructorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[sig]
	return c, ok
}

// deploy installs a freshly constructed contract at addr and marks it as
// new in frame so a revert can erase it again.
func (r *Registry) deploy(frame *Frame, addr common.Address, c Contract) {
	r.mu.Lock()
	r.contracts[addr] = c
	r.typeTags[addr] = c.TypeTag()
	r.mu.Unlock()
	frame.markNewContract(addr)
}

func (r *Registry) erase(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contracts, addr)
	delete(r.typeTags, addr)
}

// TypeTag returns the persisted type tag for addr, if deployed.
func (r *Registry) TypeTag(addr common.Address) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.typeTags[addr]
	return t, ok
}

// DeriveContractAddress computes keccak256(creator, creatorNonceAtTxStart)[12:],
// the low 20 bytes of the hash of the creator address concatenated with its
// nonce at the start of the deploying transaction (spec §3 "Address").
func DeriveContractAddress(crypto256 func(...[]byte) []byte, creator common.Address, creatorNonceAtTxStart uint64) common.Address {
	var nonceBuf [8]byte
	for i := 0; i < 8; i++ {
		nonceBuf[7-i] = byte(creatorNonceAtTxStart >> (8 * i))
	}
	h := crypto256(creator.Bytes(), nonceBuf[:])
	return common.BytesToAddress(h[12:])
}
