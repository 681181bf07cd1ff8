// Package storage implements the append-only block log and its secondary
// indexes (§4.4): blockHash→height and txHash→(blockHash, positionInBlock).
// Each block is written with one Put and two PutBatch calls, one per table;
// the three writes are not atomic as a whole.
package storage

import (
	"encoding/binary"
	"sync"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/contracts"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/tosdb"
)

// Storage is the block log. Latest() and the getters are safe for
// concurrent use; mutation happens only through AppendBlock, serialized by
// mu (spec §5: "Storage.mutex guards the log and indexes; separate from State").
type Storage struct {
	mu     sync.RWMutex
	db     tosdb.KeyValueStore
	chainID uint64

	latest *types.Block
}

// Open loads the current head (if any) from db and returns a ready Storage.
// A freshly initialized db (no blocks yet) is valid; Latest returns nil.
func Open(db tosdb.KeyValueStore, chainID uint64) (*Storage, error) {
	s := &Storage{db: db, chainID: chainID}
	heights, err := db.GetKeys(tosdb.PrefixBlocks, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(heights) == 0 {
		return s, nil
	}
	var maxHeight uint64
	found := false
	for _, k := range heights {
		h := binary.BigEndian.Uint64(k)
		if !found || h > maxHeight {
			maxHeight, found = h, true
		}
	}
	blk, err := s.GetByHeight(maxHeight)
	if err != nil {
		return nil, err
	}
	s.latest = blk
	return s, nil
}

func heightKey(h uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], h)
	return b[:]
}

// Latest returns the most recently appended block, or nil if the log is empty.
func (s *Storage) Latest() *types.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// GetByHeight loads the block at the given height.
func (s *Storage) GetByHeight(height uint64) (*types.Block, error) {
	raw, err := s.db.Get(tosdb.PrefixBlocks, heightKey(height))
	if err != nil {
		return nil, err
	}
	return types.DeserializeBlock(raw, s.chainID)
}

// GetByHash loads the block with the given hash via the blockHash→height index.
func (s *Storage) GetByHash(hash common.Hash) (*types.Block, error) {
	raw, err := s.db.Get(tosdb.PrefixBlockHeightMaps, hash.Bytes())
	if err != nil {
		return nil, err
	}
	height := binary.BigEndian.Uint64(raw)
	return s.GetByHeight(height)
}

// TxLocation identifies where a transaction landed.
type TxLocation struct {
	BlockHash common.Hash
	Index     uint64
}

// GetTx loads a previously indexed user transaction and its location.
func (s *Storage) GetTx(txHash common.Hash) (*types.BlockTx, TxLocation, error) {
	raw, err := s.db.Get(tosdb.PrefixTxToBlocks, txHash.Bytes())
	if err != nil {
		return nil, TxLocation{}, err
	}
	if len(raw) != common.HashLength+8 {
		return nil, TxLocation{}, types.NewError(types.KindMalformed, "storage: corrupt tx index entry")
	}
	loc := TxLocation{
		BlockHash: common.BytesToHash(raw[:common.HashLength]),
		Index:     binary.BigEndian.Uint64(raw[common.HashLength:]),
	}
	blk, err := s.GetByHash(loc.BlockHash)
	if err != nil {
		return nil, TxLocation{}, err
	}
	if loc.Index >= uint64(len(blk.UserTxs)) {
		return nil, TxLocation{}, types.NewError(types.KindMalformed, "storage: tx index out of range")
	}
	return blk.UserTxs[loc.Index], loc, nil
}

// AppendBlock persists block as the new head: the blockHash→height index
// (one Put), the block body (one PutBatch), and one txHash→(blockHash,index)
// entry per user transaction (one PutBatch). The three writes are separate;
// if a later one fails, the earlier ones stay in the store.
func (s *Storage) AppendBlock(block *types.Block) error {
	raw, err := block.Serialize()
	if err != nil {
		return err
	}
	hash := block.Hash()

	var batch []tosdb.KV
	batch = append(batch, tosdb.KV{Key: heightKey(block.Header.Height), Value: raw})

	var heightBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], block.Header.Height)
	if err := s.db.Put(tosdb.PrefixBlockHeightMaps, hash.Bytes(), heightBuf[:]); err != nil {
		return types.NewError(types.KindIo, err.Error())
	}
	if err := s.db.PutBatch(tosdb.PrefixBlocks, batch); err != nil {
		return types.NewError(types.KindIo, err.Error())
	}

	var txBatch []tosdb.KV
	for i, tx := range block.UserTxs {
		entry := make([]byte, common.HashLength+8)
		copy(entry[:common.HashLength], hash.Bytes())
		binary.BigEndian.PutUint64(entry[common.HashLength:], uint64(i))
		txBatch = append(txBatch, tosdb.KV{Key: tx.Hash().Bytes(), Value: entry})
	}
	if len(txBatch) > 0 {
		if err := s.db.PutBatch(tosdb.PrefixTxToBlocks, txBatch); err != nil {
			return types.NewError(types.KindIo, err.Error())
		}
	}

	s.mu.Lock()
	s.latest = block
	s.mu.Unlock()
	return nil
}

func eventKey(height, logIndex uint64) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], height)
	binary.BigEndian.PutUint64(b[8:], logIndex)
	return b[:]
}

// AppendEvents indexes the events a block's contract calls emitted, keyed by
// height so getLogs (spec §6) can scan a height-ordered range (supplemented
// feature per SPEC_FULL.md, grounded on original_source/'s log index).
func (s *Storage) AppendEvents(height uint64, events []contracts.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := make([]tosdb.KV, len(events))
	for i, ev := range events {
		batch[i] = tosdb.KV{Key: eventKey(height, ev.LogIndex), Value: ev.EncodeRLP()}
	}
	if err := s.db.PutBatch(tosdb.PrefixEvents, batch); err != nil {
		return types.NewError(types.KindIo, err.Error())
	}
	return nil
}

// LogFilter narrows GetLogs: a nil field matches everything.
type LogFilter struct {
	FromHeight uint64
	ToHeight   uint64 // 0 means unbounded
	Address    *common.Address
	Topic      *common.Hash
}

// GetLogs scans the event index for entries matching filter, in ascending
// (height, logIndex) order.
func (s *Storage) GetLogs(filter LogFilter) ([]contracts.Event, error) {
	var start []byte
	if filter.FromHeight > 0 {
		start = eventKey(filter.FromHeight, 0)
	}
	var end []byte
	if filter.ToHeight > 0 {
		end = eventKey(filter.ToHeight+1, 0)
	}
	keys, err := s.db.GetKeys(tosdb.PrefixEvents, start, end)
	if err != nil {
		return nil, err
	}
	var out []contracts.Event
	for _, k := range keys {
		raw, err := s.db.Get(tosdb.PrefixEvents, k)
		if err != nil {
			return nil, err
		}
		ev, err := contracts.DecodeEvent(raw)
		if err != nil {
			return nil, err
		}
		if filter.Address != nil && ev.Address != *filter.Address {
			continue
		}
		if filter.Topic != nil && !hasTopic(ev.Topics, *filter.Topic) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func hasTopic(topics []common.Hash, want common.Hash) bool {
	for _, t := range topics {
		if t == want {
			return true
		}
	}
	return false
}
