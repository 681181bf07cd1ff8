package contracts

import (
	"encoding/binary"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
)

// RdPoSView is the narrow slice of consensus/rdpos.RdPoS the protocol
// contract exposes to callers: producer, committee, and beacon state
// queries, all read-only (spec: "rdPoS sentinel" protocol contract).
type RdPoSView interface {
	Producer() common.Address
	Committee() []common.Address
	BestRandomSeed() common.Hash
	MinValidators() int
}

// SelectorProducer, SelectorCommittee, and SelectorBestRandomSeed are the
// view-function selectors of the rdPoS sentinel contract.
var (
	SelectorProducer       = [4]byte{0x5c, 0x19, 0xa9, 0x5c}
	SelectorCommittee      = [4]byte{0x06, 0xfd, 0xde, 0x03}
	SelectorBestRandomSeed = [4]byte{0x38, 0xcc, 0x48, 0x31}
)

// RdPoSContract is the read-only protocol contract installed at
// params.RdPoSAddress, letting other contracts query the consensus view
// without importing consensus/rdpos directly.
type RdPoSContract struct {
	view RdPoSView
}

// NewRdPoSContract wraps view for installation in a Registry.
func NewRdPoSContract(view RdPoSView) *RdPoSContract {
	return &RdPoSContract{view: view}
}

// TypeTag implements Contract.
func (c *RdPoSContract) TypeTag() string { return "rdPoS" }

// Functions implements Contract.
func (c *RdPoSContract) Functions() map[[4]byte]Function {
	return map[[4]byte]Function{
		SelectorProducer: {Kind: KindView, Handler: func(_ *CallContext, _ []byte) ([]byte, error) {
			addr := c.view.Producer()
			return addr.Bytes(), nil
		}},
		SelectorCommittee: {Kind: KindView, Handler: func(_ *CallContext, _ []byte) ([]byte, error) {
			committee := c.view.Committee()
			out := make([]byte, 0, len(committee)*common.AddressLength)
			for _, addr := range committee {
				out = append(out, addr.Bytes()...)
			}
			return out, nil
		}},
		SelectorBestRandomSeed: {Kind: KindView, Handler: func(_ *CallContext, _ []byte) ([]byte, error) {
			seed := c.view.BestRandomSeed()
			return seed.Bytes(), nil
		}},
	}
}

// KVStoreContract exposes the key-value store operations of spec §6 as a
// protocol contract, so on-chain logic (and tests) can exercise storage
// reads through the same dispatch path as user contracts.
type KVStoreContract struct {
	prefix string
	store  *SafeMap[string, []byte]
}

// NewKVStoreContract builds a view over an in-memory journaled KV table.
func NewKVStoreContract(prefix string) *KVStoreContract {
	return &KVStoreContract{prefix: prefix, store: NewSafeMap[string, []byte]()}
}

// TypeTag implements Contract.
func (c *KVStoreContract) TypeTag() string { return "kvstore:" + c.prefix }

var (
	selectorKVGet = [4]byte{0x69, 0x32, 0x69, 0x73}
	selectorKVPut = [4]byte{0x74, 0xb4, 0x6d, 0x29}
	selectorKVDel = [4]byte{0x5f, 0x7c, 0x98, 0x6a}
)

// Functions implements Contract. get is view; put/del are nonpayable.
func (c *KVStoreContract) Functions() map[[4]byte]Function {
	return map[[4]byte]Function{
		selectorKVGet: {Kind: KindView, Handler: func(_ *CallContext, in []byte) ([]byte, error) {
			v, ok := c.store.Get(string(in))
			if !ok {
				return nil, nil
			}
			return v, nil
		}},
		selectorKVPut: {Kind: KindNonpayable, Handler: func(ctx *CallContext, in []byte) ([]byte, error) {
			if len(in) < 4 {
				return nil, types.NewError(types.KindMalformed, "kvstore: put requires a 4-byte key length prefix")
			}
			klen := binary.BigEndian.Uint32(in[:4])
			if uint64(4+klen) > uint64(len(in)) {
				return nil, types.NewError(types.KindMalformed, "kvstore: truncated key")
			}
			key := in[4 : 4+klen]
			value := in[4+klen:]
			c.store.Insert(ctx.frame, string(key), append([]byte(nil), value...))
			return nil, nil
		}},
		selectorKVDel: {Kind: KindNonpayable, Handler: func(ctx *CallContext, in []byte) ([]byte, error) {
			c.store.Erase(ctx.frame, string(in))
			return nil, nil
		}},
	}
}
