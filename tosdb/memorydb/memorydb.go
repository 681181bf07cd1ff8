// Package memorydb is an in-memory tosdb.KeyValueStore backend, used by
// tests and by ephemeral nodes that don't need crash-safety.
package memorydb

import (
	"bytes"
	"sort"
	"sync"

	"github.com/rdpos-labs/rdchain/tosdb"
)

// Database is a map-backed tosdb.KeyValueStore.
type Database struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty in-memory store.
func New() *Database {
	return &Database{data: make(map[string][]byte)}
}

func key(prefix tosdb.Prefix, k []byte) string {
	return string(tosdb.NamespacedKey(prefix, k))
}

// Get implements tosdb.KeyValueReader.
func (db *Database) Get(prefix tosdb.Prefix, k []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.data[key(prefix, k)]
	if !ok {
		return nil, tosdb.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Has implements tosdb.KeyValueReader.
func (db *Database) Has(prefix tosdb.Prefix, k []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[key(prefix, k)]
	return ok, nil
}

// Put implements tosdb.KeyValueWriter.
func (db *Database) Put(prefix tosdb.Prefix, k, v []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[key(prefix, k)] = append([]byte(nil), v...)
	return nil
}

// Delete implements tosdb.KeyValueWriter.
func (db *Database) Delete(prefix tosdb.Prefix, k []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, key(prefix, k))
	return nil
}

// PutBatch implements tosdb.KeyValueWriter, applying every entry under a
// single lock so the batch is atomic with respect to other readers.
func (db *Database) PutBatch(prefix tosdb.Prefix, batch []tosdb.KV) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, kv := range batch {
		db.data[key(prefix, kv.Key)] = append([]byte(nil), kv.Value...)
	}
	return nil
}

// GetBatch implements tosdb.KeyValueReader. A nil keys slice returns every
// entry under prefix, sorted by key.
func (db *Database) GetBatch(prefix tosdb.Prefix, keys [][]byte) ([]tosdb.KV, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []tosdb.KV
	if keys == nil {
		header := string(prefix) + "/"
		for k, v := range db.data {
			if len(k) >= len(header) && k[:len(header)] == header {
				out = append(out, tosdb.KV{Key: []byte(k[len(header):]), Value: append([]byte(nil), v...)})
			}
		}
		sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
		return out, nil
	}
	for _, k := range keys {
		if v, ok := db.data[key(prefix, k)]; ok {
			out = append(out, tosdb.KV{Key: k, Value: append([]byte(nil), v...)})
		}
	}
	return out, nil
}

// GetKeys implements tosdb.KeyValueReader: all keys under prefix in
// [start, end) (either bound nil-able), sorted ascending.
func (db *Database) GetKeys(prefix tosdb.Prefix, start, end []byte) ([][]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	header := string(prefix) + "/"
	var out [][]byte
	for k := range db.data {
		if len(k) < len(header) || k[:len(header)] != header {
			continue
		}
		logical := []byte(k[len(header):])
		if start != nil && bytes.Compare(logical, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(logical, end) >= 0 {
			continue
		}
		out = append(out, logical)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	return out, nil
}

// Close implements tosdb.KeyValueStore.
func (db *Database) Close() error { return nil }
