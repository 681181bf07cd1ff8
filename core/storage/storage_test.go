package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/contracts"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/crypto"
	"github.com/rdpos-labs/rdchain/tosdb/memorydb"
)

const testChainID = 1337

func signedUserTx(t *testing.T) *types.BlockTx {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := types.NewBlockTx(common.HexToAddress("0x00000000000000000000000000000000000001"), nil, testChainID, 0, uint256.NewInt(1), uint256.NewInt(1), uint256.NewInt(1), 21000)
	_, err = types.SignBlockTx(tx, priv)
	require.NoError(t, err)
	return tx
}

func finalizedBlock(t *testing.T, height uint64, prevHash common.Hash, prevTime uint64) *types.Block {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	blk := types.NewMutableBlock(prevHash, height)
	blk.UserTxs = []*types.BlockTx{signedUserTx(t)}
	now := prevTime + 1000
	require.NoError(t, blk.Finalize(priv, now, prevTime))
	return blk
}

func TestAppendAndRetrieveBlock(t *testing.T) {
	s, err := Open(memorydb.New(), testChainID)
	require.NoError(t, err)
	require.Nil(t, s.Latest())

	blk := finalizedBlock(t, 1, common.Hash{}, uint64(time.Now().UnixMicro()))
	require.NoError(t, s.AppendBlock(blk))

	require.Equal(t, blk.Hash(), s.Latest().Hash())

	byHeight, err := s.GetByHeight(1)
	require.NoError(t, err)
	require.Equal(t, blk.Hash(), byHeight.Hash())

	byHash, err := s.GetByHash(blk.Hash())
	require.NoError(t, err)
	require.Equal(t, blk.Hash(), byHash.Hash())

	tx, loc, err := s.GetTx(blk.UserTxs[0].Hash())
	require.NoError(t, err)
	require.Equal(t, blk.UserTxs[0].Hash(), tx.Hash())
	require.Equal(t, blk.Hash(), loc.BlockHash)
	require.Equal(t, uint64(0), loc.Index)
}

func TestReopenRecoversLatest(t *testing.T) {
	db := memorydb.New()
	s, err := Open(db, testChainID)
	require.NoError(t, err)

	blk1 := finalizedBlock(t, 1, common.Hash{}, uint64(time.Now().UnixMicro()))
	require.NoError(t, s.AppendBlock(blk1))
	blk2 := finalizedBlock(t, 2, blk1.Hash(), blk1.Header.Timestamp)
	require.NoError(t, s.AppendBlock(blk2))

	reopened, err := Open(db, testChainID)
	require.NoError(t, err)
	require.Equal(t, blk2.Hash(), reopened.Latest().Hash())
}

func TestAppendEventsAndGetLogsFiltersByAddressAndHeight(t *testing.T) {
	s, err := Open(memorydb.New(), testChainID)
	require.NoError(t, err)

	addrA := common.HexToAddress("0x00000000000000000000000000000000000005")
	addrB := common.HexToAddress("0x00000000000000000000000000000000000006")
	topic := common.HexToHash("0x" + strings.Repeat("01", 32))

	require.NoError(t, s.AppendEvents(1, []contracts.Event{
		{Name: "Transfer", Address: addrA, Topics: []common.Hash{topic}, BlockHeight: 1, LogIndex: 0},
		{Name: "Transfer", Address: addrB, BlockHeight: 1, LogIndex: 1},
	}))
	require.NoError(t, s.AppendEvents(2, []contracts.Event{
		{Name: "Transfer", Address: addrA, BlockHeight: 2, LogIndex: 0},
	}))

	all, err := s.GetLogs(LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	onlyA, err := s.GetLogs(LogFilter{Address: &addrA})
	require.NoError(t, err)
	require.Len(t, onlyA, 2)

	byTopic, err := s.GetLogs(LogFilter{Topic: &topic})
	require.NoError(t, err)
	require.Len(t, byTopic, 1)
	require.Equal(t, addrA, byTopic[0].Address)

	heightOne, err := s.GetLogs(LogFilter{FromHeight: 1, ToHeight: 1})
	require.NoError(t, err)
	require.Len(t, heightOne, 2)
}
