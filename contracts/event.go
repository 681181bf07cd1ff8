package contracts

import (
	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/rlp"
)

// Event is a contract-emitted log entry, buffered in the frame it was
// emitted from and visible only after the root frame commits (spec §4.7
// "Event emission").
type Event struct {
	Name        string
	Address     common.Address
	Topics      []common.Hash // at most 4
	Data        []byte
	TxHash      common.Hash
	TxIndex     uint64
	BlockHeight uint64
	LogIndex    uint64
}

// MaxTopics is the maximum number of indexed topics an Event may carry.
const MaxTopics = 4

// EncodeRLP implements rlp.Encoder, letting core/storage persist events the
// same way it persists blocks and transactions (spec §6 event/log index).
func (e Event) EncodeRLP() []byte {
	topics := make([][]byte, len(e.Topics))
	for i, t := range e.Topics {
		topics[i] = rlp.Bytes(t.Bytes())
	}
	return rlp.List(
		rlp.Bytes([]byte(e.Name)),
		rlp.Bytes(e.Address.Bytes()),
		rlp.List(topics...),
		rlp.Bytes(e.Data),
		rlp.Bytes(e.TxHash.Bytes()),
		rlp.Uint64(e.TxIndex),
		rlp.Uint64(e.BlockHeight),
		rlp.Uint64(e.LogIndex),
	)
}

// DecodeEvent parses a buffer produced by Event.EncodeRLP.
func DecodeEvent(b []byte) (Event, error) {
	item, err := rlp.Decode(b)
	if err != nil {
		return Event{}, err
	}
	if !item.IsList() || len(item.List) != 8 {
		return Event{}, types.NewError(types.KindMalformed, "contracts: malformed event")
	}
	strField := func(it rlp.Item) ([]byte, error) {
		if it.IsList() {
			return nil, types.NewError(types.KindMalformed, "contracts: malformed event field")
		}
		return it.Data, nil
	}
	name, err := strField(item.List[0])
	if err != nil {
		return Event{}, err
	}
	addr, err := strField(item.List[1])
	if err != nil {
		return Event{}, err
	}
	if !item.List[2].IsList() {
		return Event{}, types.NewError(types.KindMalformed, "contracts: malformed event topics")
	}
	topics := make([]common.Hash, len(item.List[2].List))
	for i, t := range item.List[2].List {
		tb, err := strField(t)
		if err != nil {
			return Event{}, err
		}
		topics[i] = common.BytesToHash(tb)
	}
	data, err := strField(item.List[3])
	if err != nil {
		return Event{}, err
	}
	txHash, err := strField(item.List[4])
	if err != nil {
		return Event{}, err
	}
	txIndex, err := item.List[5].Uint64()
	if err != nil {
		return Event{}, err
	}
	blockHeight, err := item.List[6].Uint64()
	if err != nil {
		return Event{}, err
	}
	logIndex, err := item.List[7].Uint64()
	if err != nil {
		return Event{}, err
	}
	return Event{
		Name:        string(name),
		Address:     common.BytesToAddress(addr),
		Topics:      topics,
		Data:        data,
		TxHash:      common.BytesToHash(txHash),
		TxIndex:     txIndex,
		BlockHeight: blockHeight,
		LogIndex:    logIndex,
	}, nil
}
