// Package leveldb is the on-disk tosdb.KeyValueStore backend, backed by
// github.com/syndtr/goleveldb — the same engine the teacher codebase uses
// for its own tosdb/leveldb package.
package leveldb

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/rdpos-labs/rdchain/tosdb"
)

// Database wraps a goleveldb handle behind the tosdb.KeyValueStore contract.
type Database struct {
	db *leveldb.DB
}

// New opens (creating if absent) a leveldb database at path.
func New(path string) (*Database, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

// Get implements tosdb.KeyValueReader.
func (d *Database) Get(prefix tosdb.Prefix, key []byte) ([]byte, error) {
	v, err := d.db.Get(tosdb.NamespacedKey(prefix, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, tosdb.ErrNotFound
	}
	return v, err
}

// Has implements tosdb.KeyValueReader.
func (d *Database) Has(prefix tosdb.Prefix, key []byte) (bool, error) {
	return d.db.Has(tosdb.NamespacedKey(prefix, key), nil)
}

// Put implements tosdb.KeyValueWriter.
func (d *Database) Put(prefix tosdb.Prefix, key, value []byte) error {
	return d.db.Put(tosdb.NamespacedKey(prefix, key), value, nil)
}

// Delete implements tosdb.KeyValueWriter.
func (d *Database) Delete(prefix tosdb.Prefix, key []byte) error {
	return d.db.Delete(tosdb.NamespacedKey(prefix, key), nil)
}

// PutBatch implements tosdb.KeyValueWriter as a single atomic leveldb batch.
func (d *Database) PutBatch(prefix tosdb.Prefix, entries []tosdb.KV) error {
	batch := new(leveldb.Batch)
	for _, kv := range entries {
		batch.Put(tosdb.NamespacedKey(prefix, kv.Key), kv.Value)
	}
	return d.db.Write(batch, nil)
}

// GetBatch implements tosdb.KeyValueReader. A nil keys slice scans the
// entire prefix.
func (d *Database) GetBatch(prefix tosdb.Prefix, keys [][]byte) ([]tosdb.KV, error) {
	if keys != nil {
		out := make([]tosdb.KV, 0, len(keys))
		for _, k := range keys {
			v, err := d.Get(prefix, k)
			if err == tosdb.ErrNotFound {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, tosdb.KV{Key: k, Value: v})
		}
		return out, nil
	}
	header := []byte(string(prefix) + "/")
	iter := d.db.NewIterator(util.BytesPrefix(header), nil)
	defer iter.Release()
	var out []tosdb.KV
	for iter.Next() {
		logical := append([]byte(nil), iter.Key()[len(header):]...)
		out = append(out, tosdb.KV{Key: logical, Value: append([]byte(nil), iter.Value()...)})
	}
	return out, iter.Error()
}

// GetKeys implements tosdb.KeyValueReader: keys under prefix in [start, end).
func (d *Database) GetKeys(prefix tosdb.Prefix, start, end []byte) ([][]byte, error) {
	header := []byte(string(prefix) + "/")
	iter := d.db.NewIterator(util.BytesPrefix(header), nil)
	defer iter.Release()
	var out [][]byte
	for iter.Next() {
		logical := iter.Key()[len(header):]
		if start != nil && bytes.Compare(logical, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(logical, end) >= 0 {
			continue
		}
		out = append(out, append([]byte(nil), logical...))
	}
	return out, iter.Error()
}

// Close implements tosdb.KeyValueStore.
func (d *Database) Close() error { return d.db.Close() }
