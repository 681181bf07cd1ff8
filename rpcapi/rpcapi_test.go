package rpcapi

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/contracts"
	"github.com/rdpos-labs/rdchain/core/ledger"
	"github.com/rdpos-labs/rdchain/core/mempool"
	"github.com/rdpos-labs/rdchain/core/state"
	"github.com/rdpos-labs/rdchain/core/storage"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/crypto"
	"github.com/rdpos-labs/rdchain/tosdb/memorydb"
)

const testChainID = 1337

type fakeConsensus struct{}

func (fakeConsensus) ValidateBlock(*types.Block) error { return nil }
func (fakeConsensus) Advance(common.Hash)              {}

type alwaysCommittee struct{}

func (alwaysCommittee) IsCommitteeMember(common.Address) bool { return true }
func (alwaysCommittee) NextHeight() uint64                    { return 1 }

func newTestAPI(t *testing.T) (*API, *ledger.Ledger, *state.State) {
	l := ledger.New()
	s, err := storage.Open(memorydb.New(), testChainID)
	require.NoError(t, err)
	registry := contracts.NewRegistry()
	validatorPool := mempool.NewValidatorMempool(&alwaysCommittee{}, testChainID)
	st := state.New(testChainID, l, s, registry, fakeConsensus{}, validatorPool, nil)
	coinbase := common.HexToAddress("0x00000000000000000000000000000000000042")
	return New(st, nil, coinbase, "rdchain/test"), l, st
}

func signedTx(t *testing.T, to common.Address, nonce uint64, value uint64) *types.BlockTx {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := types.NewBlockTx(to, nil, testChainID, nonce, uint256.NewInt(value), uint256.NewInt(1), uint256.NewInt(1), 21000)
	_, err = types.SignBlockTx(tx, priv)
	require.NoError(t, err)
	return tx
}

func TestChainIdAndBlockNumberBeforeGenesis(t *testing.T) {
	api, _, _ := newTestAPI(t)
	require.Equal(t, uint64(testChainID), api.ChainId())
	require.Equal(t, uint64(0), api.BlockNumber())
}

func TestGetBalanceAndTransactionCount(t *testing.T) {
	api, l, _ := newTestAPI(t)
	addr := common.HexToAddress("0x00000000000000000000000000000000000001")
	l.Credit(addr, uint256.NewInt(500))

	require.Equal(t, uint256.NewInt(500), api.GetBalance(addr))
	require.Equal(t, uint64(0), api.GetTransactionCount(addr))
}

func TestSendRawTransactionThenGetTransactionByHash(t *testing.T) {
	api, l, st := newTestAPI(t)
	to := common.HexToAddress("0x00000000000000000000000000000000000002")
	tx := signedTx(t, to, 0, 10)
	l.Credit(tx.From, uint256.NewInt(1_000_000))

	hash, err := api.SendRawTransaction(tx)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), hash)
	require.True(t, st.UserMempool().Has(hash))
}

func TestGasPriceAndEstimateGasAndFeeHistory(t *testing.T) {
	api, _, _ := newTestAPI(t)
	require.Equal(t, uint64(1_000_000_000), api.GasPrice())
	require.Equal(t, []uint64{1_000_000_000, 1_000_000_000}, api.FeeHistory(2))

	addr := common.HexToAddress("0x00000000000000000000000000000000000009")
	_, err := api.EstimateGas(state.CallInfo{To: addr})
	require.Error(t, err) // no contract at addr
}

func TestSyncingCoinbaseAndNetListening(t *testing.T) {
	api, _, _ := newTestAPI(t)
	require.False(t, api.Syncing())
	require.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000042"), api.Coinbase())
	require.False(t, api.NetListening())
	require.Equal(t, 0, api.NetPeerCount())
}

func TestGetCodeDistinguishesContractFromPlainAccount(t *testing.T) {
	api, _, st := newTestAPI(t)
	plain := common.HexToAddress("0x00000000000000000000000000000000000003")
	require.Nil(t, api.GetCode(plain))

	_ = st // registry installation exercised in contracts/state tests; API just forwards TypeTag
}

func TestBlockNumberAfterAppend(t *testing.T) {
	api, l, st := newTestAPI(t)
	to := common.HexToAddress("0x00000000000000000000000000000000000002")
	tx := signedTx(t, to, 0, 10)
	l.Credit(tx.From, uint256.NewInt(1_000_000))
	require.NoError(t, st.AddTx(tx))

	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	blk := types.NewMutableBlock(common.Hash{}, 1)
	blk.UserTxs = []*types.BlockTx{tx}
	require.NoError(t, blk.Finalize(priv, uint64(time.Now().UnixMicro()), 0))
	require.NoError(t, st.ProcessBlock(blk))

	require.Equal(t, uint64(1), api.BlockNumber())
	got, err := api.GetBlockByNumber(1)
	require.NoError(t, err)
	require.Equal(t, blk.Hash(), got.Hash())

	count, err := api.GetBlockTransactionCountByHash(blk.Hash())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
