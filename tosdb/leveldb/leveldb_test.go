package leveldb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdpos-labs/rdchain/tosdb"
	"github.com/rdpos-labs/rdchain/tosdb/dbtest"
)

func TestLevelDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() tosdb.KeyValueStore {
			db, err := New(t.TempDir())
			require.NoError(t, err)
			return db
		})
	})
}
