// Package dbtest is a shared conformance suite every tosdb.KeyValueStore
// backend runs against, mirroring the teacher's own tosdb/dbtest package.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdpos-labs/rdchain/tosdb"
)

// TestDatabaseSuite exercises the full tosdb.KeyValueStore contract against
// a store returned by New for each subtest.
func TestDatabaseSuite(t *testing.T, newFn func() tosdb.KeyValueStore) {
	t.Run("PutGetHasDelete", func(t *testing.T) {
		db := newFn()
		defer db.Close()

		ok, err := db.Has(tosdb.PrefixBlocks, []byte("k"))
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, db.Put(tosdb.PrefixBlocks, []byte("k"), []byte("v")))
		ok, err = db.Has(tosdb.PrefixBlocks, []byte("k"))
		require.NoError(t, err)
		require.True(t, ok)

		v, err := db.Get(tosdb.PrefixBlocks, []byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("v"), v)

		require.NoError(t, db.Delete(tosdb.PrefixBlocks, []byte("k")))
		_, err = db.Get(tosdb.PrefixBlocks, []byte("k"))
		require.ErrorIs(t, err, tosdb.ErrNotFound)
	})

	t.Run("PrefixIsolation", func(t *testing.T) {
		db := newFn()
		defer db.Close()

		require.NoError(t, db.Put(tosdb.PrefixBlocks, []byte("x"), []byte("a")))
		require.NoError(t, db.Put(tosdb.PrefixNativeAccounts, []byte("x"), []byte("b")))

		v, err := db.Get(tosdb.PrefixBlocks, []byte("x"))
		require.NoError(t, err)
		require.Equal(t, []byte("a"), v)

		v, err = db.Get(tosdb.PrefixNativeAccounts, []byte("x"))
		require.NoError(t, err)
		require.Equal(t, []byte("b"), v)
	})

	t.Run("PutBatchAtomicAndGetBatch", func(t *testing.T) {
		db := newFn()
		defer db.Close()

		require.NoError(t, db.PutBatch(tosdb.PrefixTxToBlocks, []tosdb.KV{
			{Key: []byte("t1"), Value: []byte("v1")},
			{Key: []byte("t2"), Value: []byte("v2")},
		}))

		got, err := db.GetBatch(tosdb.PrefixTxToBlocks, [][]byte{[]byte("t1"), []byte("t2"), []byte("missing")})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("GetKeysRange", func(t *testing.T) {
		db := newFn()
		defer db.Close()

		for _, k := range []string{"a", "b", "c", "d"} {
			require.NoError(t, db.Put(tosdb.PrefixContracts, []byte(k), []byte(k)))
		}
		keys, err := db.GetKeys(tosdb.PrefixContracts, []byte("b"), []byte("d"))
		require.NoError(t, err)
		require.Len(t, keys, 2)
	})
}
