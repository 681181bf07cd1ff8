package genesis

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/ledger"
	"github.com/rdpos-labs/rdchain/crypto"
	"github.com/rdpos-labs/rdchain/tosdb/memorydb"
)

func testValidators(t *testing.T, n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		priv, err := crypto.GenerateKey()
		require.NoError(t, err)
		out[i] = crypto.PubkeyToAddress(priv.PublicKey)
	}
	return out
}

func TestImportMintsBalancesAndPersistsValidators(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000001")
	validators := testValidators(t, 8)
	g := &Genesis{
		ChainID:          1337,
		ChainOwner:       owner,
		GenesisBalances:  []Balance{{Address: owner, Amount: uint256.NewInt(1_000_000_000_000)}},
		Validators:       validators,
		GenesisTimestamp: 1_700_000_000_000_000,
	}

	l := ledger.New()
	db := memorydb.New()
	engine, err := Import(g, l, db)
	require.NoError(t, err)
	require.NotNil(t, engine)

	require.Equal(t, uint256.NewInt(1_000_000_000_000), l.GetBalance(owner))

	loaded, err := LoadValidators(db)
	require.NoError(t, err)
	require.Equal(t, validators, loaded)

	require.Contains(t, validators, engine.Producer())
}

func TestSameGenesisProducesSameSeedAcrossNodes(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000001")
	validators := testValidators(t, 8)
	g := &Genesis{ChainID: 7, ChainOwner: owner, Validators: validators, GenesisTimestamp: 42}

	engineA, err := Import(g, ledger.New(), memorydb.New())
	require.NoError(t, err)
	engineB, err := Import(g, ledger.New(), memorydb.New())
	require.NoError(t, err)

	require.Equal(t, engineA.BestRandomSeed(), engineB.BestRandomSeed())
	require.Equal(t, engineA.Producer(), engineB.Producer())
}
