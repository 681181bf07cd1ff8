package state

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/contracts"
	"github.com/rdpos-labs/rdchain/core/ledger"
	"github.com/rdpos-labs/rdchain/core/mempool"
	"github.com/rdpos-labs/rdchain/core/storage"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/crypto"
	"github.com/rdpos-labs/rdchain/tosdb/memorydb"
)

const testChainID = 1337

type fakeConsensus struct {
	validateErr error
	advanced    []common.Hash
}

func (c *fakeConsensus) ValidateBlock(*types.Block) error { return c.validateErr }
func (c *fakeConsensus) Advance(seed common.Hash)         { c.advanced = append(c.advanced, seed) }

func signedTx(t *testing.T, to common.Address, nonce uint64, value uint64) (*types.BlockTx, common.Address) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := types.NewBlockTx(to, nil, testChainID, nonce, uint256.NewInt(value), uint256.NewInt(1), uint256.NewInt(1), 21000)
	_, err = types.SignBlockTx(tx, priv)
	require.NoError(t, err)
	return tx, tx.From
}

func newTestState(t *testing.T) (*State, *ledger.Ledger, *storage.Storage, *fakeConsensus) {
	l := ledger.New()
	s, err := storage.Open(memorydb.New(), testChainID)
	require.NoError(t, err)
	registry := contracts.NewRegistry()
	consensus := &fakeConsensus{}
	validatorPool := mempool.NewValidatorMempool(&alwaysCommittee{}, testChainID)
	st := New(testChainID, l, s, registry, consensus, validatorPool, nil)
	return st, l, s, consensus
}

type alwaysCommittee struct{}

func (alwaysCommittee) IsCommitteeMember(common.Address) bool { return true }
func (alwaysCommittee) NextHeight() uint64                    { return 1 }

func finalizedBlock(t *testing.T, height uint64, prevHash common.Hash, prevTime uint64, txs []*types.BlockTx) *types.Block {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	blk := types.NewMutableBlock(prevHash, height)
	blk.UserTxs = txs
	now := prevTime + 1000
	require.NoError(t, blk.Finalize(priv, now, prevTime))
	return blk
}

func TestAddTxValidatesAndBroadcasts(t *testing.T) {
	st, l, _, _ := newTestState(t)
	tx, from := signedTx(t, common.HexToAddress("0x00000000000000000000000000000000000002"), 0, 10)
	l.Credit(from, uint256.NewInt(1000))

	require.NoError(t, st.AddTx(tx))
	require.True(t, st.UserMempool().Has(tx.Hash()))
}

func TestValidateBlockRejectsWrongHeight(t *testing.T) {
	st, _, _, _ := newTestState(t)
	blk := finalizedBlock(t, 2, common.Hash{}, uint64(time.Now().UnixMicro()), nil)
	err := st.ValidateBlock(blk)
	require.Error(t, err)
	require.Equal(t, types.KindInvalidBlock, types.KindOf(err))
}

func TestValidateBlockAccountsForEarlierTxsInSameBlock(t *testing.T) {
	st, l, _, _ := newTestState(t)
	to := common.HexToAddress("0x00000000000000000000000000000000000002")

	tx1, from := signedTx(t, to, 0, 500)
	l.Credit(from, uint256.NewInt(1000))

	blk := finalizedBlock(t, 1, common.Hash{}, uint64(time.Now().UnixMicro()), []*types.BlockTx{tx1})
	require.NoError(t, st.ValidateBlock(blk))
}

func TestProcessBlockAppliesTransferAndPrunesMempool(t *testing.T) {
	st, l, strg, consensus := newTestState(t)
	to := common.HexToAddress("0x00000000000000000000000000000000000002")
	tx, from := signedTx(t, to, 0, 300)
	l.Credit(from, uint256.NewInt(10_000))
	require.NoError(t, st.AddTx(tx))

	blk := finalizedBlock(t, 1, common.Hash{}, uint64(time.Now().UnixMicro()), []*types.BlockTx{tx})
	require.NoError(t, st.ProcessBlock(blk))

	require.Equal(t, uint256.NewInt(300), l.GetBalance(to))
	require.Equal(t, uint64(1), l.GetNonce(from))
	require.False(t, st.UserMempool().Has(tx.Hash()))
	require.Equal(t, blk.Hash(), strg.Latest().Hash())
	require.Len(t, consensus.advanced, 1)
	require.Equal(t, blk.Header.BlockRandomness, consensus.advanced[0])
}

func TestEthCallRejectsMutationAndReturnsViewResult(t *testing.T) {
	st, _, _, _ := newTestState(t)
	c := &viewOnlyContract{}
	addr := common.HexToAddress("0x00000000000000000000000000000000000009")
	st.registry.Install(addr, c)

	out, err := st.EthCall(CallInfo{To: addr, Data: selectorViewOK[:]})
	require.NoError(t, err)
	require.Equal(t, []byte{42}, out)
}

var selectorViewOK = [4]byte{0xaa, 0xbb, 0xcc, 0xdd}

type viewOnlyContract struct{}

func (viewOnlyContract) TypeTag() string { return "viewonly" }
func (viewOnlyContract) Functions() map[[4]byte]contracts.Function {
	return map[[4]byte]contracts.Function{
		selectorViewOK: {Kind: contracts.KindView, Handler: func(*contracts.CallContext, []byte) ([]byte, error) {
			return []byte{42}, nil
		}},
	}
}
