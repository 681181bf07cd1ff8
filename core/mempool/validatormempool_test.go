package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/crypto"
)

type fakeCommittee struct {
	members map[common.Address]bool
	next    uint64
}

func (f fakeCommittee) IsCommitteeMember(addr common.Address) bool { return f.members[addr] }
func (f fakeCommittee) NextHeight() uint64                         { return f.next }

func signedValidatorTx(t *testing.T, selector [4]byte, height uint64) (*types.ValidatorTx, common.Address) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	var payload [32]byte
	payload[0] = 0xAB
	tx := types.NewValidatorTx(selector, payload, testChainID, height)
	_, err = types.SignValidatorTx(tx, priv)
	require.NoError(t, err)
	return tx, tx.From
}

func TestValidatorMempoolRejectsDuplicateTx(t *testing.T) {
	tx1, addr := signedValidatorTx(t, types.SelectorRandomHash, 5)
	committee := fakeCommittee{members: map[common.Address]bool{addr: true}, next: 5}
	pool := NewValidatorMempool(committee, testChainID)

	require.NoError(t, pool.Add(tx1))
	require.Equal(t, 1, pool.Len())

	dup := *tx1
	require.Error(t, pool.Add(&dup))
}

func TestValidatorMempoolRejectsNonCommitteeMember(t *testing.T) {
	tx, _ := signedValidatorTx(t, types.SelectorRandomHash, 5)
	committee := fakeCommittee{members: map[common.Address]bool{}, next: 5}
	pool := NewValidatorMempool(committee, testChainID)

	require.Error(t, pool.Add(tx))
	require.Equal(t, 0, pool.Len())
}

func TestValidatorMempoolRejectsWrongHeight(t *testing.T) {
	tx, addr := signedValidatorTx(t, types.SelectorRandomHash, 5)
	committee := fakeCommittee{members: map[common.Address]bool{addr: true}, next: 6}
	pool := NewValidatorMempool(committee, testChainID)

	require.Error(t, pool.Add(tx))
}

func TestValidatorMempoolClear(t *testing.T) {
	tx, addr := signedValidatorTx(t, types.SelectorRandomHash, 5)
	committee := fakeCommittee{members: map[common.Address]bool{addr: true}, next: 5}
	pool := NewValidatorMempool(committee, testChainID)
	require.NoError(t, pool.Add(tx))
	require.Equal(t, 1, pool.Len())

	pool.Clear()
	require.Equal(t, 0, pool.Len())
	require.Equal(t, 0, pool.CountFromSender(addr))
}
