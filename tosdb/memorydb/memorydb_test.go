package memorydb

import (
	"testing"

	"github.com/rdpos-labs/rdchain/tosdb"
	"github.com/rdpos-labs/rdchain/tosdb/dbtest"
)

func TestMemoryDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() tosdb.KeyValueStore {
			return New()
		})
	})
}
