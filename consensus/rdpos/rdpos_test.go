package rdpos

import (
	"crypto/ecdsa"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/core/types"
	"github.com/rdpos-labs/rdchain/crypto"
)

func genValidators(t *testing.T, n int) ([]*ecdsa.PrivateKey, []common.Address) {
	keys := make([]*ecdsa.PrivateKey, n)
	addrs := make([]common.Address, n)
	for i := 0; i < n; i++ {
		priv, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys[i] = priv
		addrs[i] = crypto.PubkeyToAddress(priv.PublicKey)
	}
	return keys, addrs
}

func TestShuffleIsDeterministic(t *testing.T) {
	_, addrs := genValidators(t, 8)
	seed := common.BytesToHash([]byte("genesis-seed"))
	a := shuffle(addrs, seed)
	b := shuffle(addrs, seed)
	require.Equal(t, a, b)
}

func TestReseedChangesRandomList(t *testing.T) {
	_, addrs := genValidators(t, 8)
	engine, err := New(addrs, 4, common.Hash{})
	require.NoError(t, err)

	seed := common.BytesToHash([]byte("next-seed"))
	engine.Advance(seed)
	want := shuffle(engine.validators, seed)
	require.Equal(t, seed, engine.BestRandomSeed())
	require.Equal(t, want[0], engine.Producer())
	require.Equal(t, want[1:5], engine.Committee())
	require.Len(t, engine.Committee(), 4)
}

func TestNewRejectsTooFewValidators(t *testing.T) {
	_, addrs := genValidators(t, 4)
	_, err := New(addrs, 4, common.Hash{})
	require.Error(t, err)
}

func TestValidateBlockAcceptsWellFormedCommitReveal(t *testing.T) {
	keys, addrs := genValidators(t, 8)
	engine, err := New(addrs, 4, common.Hash{})
	require.NoError(t, err)

	committee := engine.Committee()
	keyFor := func(addr common.Address) *ecdsa.PrivateKey {
		for i, a := range addrs {
			if a == addr {
				return keys[i]
			}
		}
		t.Fatal("unknown address")
		return nil
	}

	seeds := make([][32]byte, len(committee))
	hashBySlot := make(map[common.Address]*types.ValidatorTx)
	seedBySlot := make(map[common.Address]*types.ValidatorTx)
	for i, member := range committee {
		seeds[i][0] = byte(i + 1)
		commit := common.BytesToHash(crypto.Keccak256(seeds[i][:]))
		var commitPayload [32]byte
		copy(commitPayload[:], commit.Bytes())

		hashTx := types.NewValidatorTx(types.SelectorRandomHash, commitPayload, 1337, 1)
		_, err := types.SignValidatorTx(hashTx, keyFor(member))
		require.NoError(t, err)
		hashBySlot[member] = hashTx

		seedTx := types.NewValidatorTx(types.SelectorRandomSeed, seeds[i], 1337, 1)
		_, err = types.SignValidatorTx(seedTx, keyFor(member))
		require.NoError(t, err)
		seedBySlot[member] = seedTx
	}

	ordered, err := engine.ValidatorTxOrder(hashBySlot, seedBySlot)
	require.NoError(t, err)
	require.Len(t, ordered, 8)

	producerKey := keyFor(engine.Producer())
	blk := types.NewMutableBlock(common.Hash{}, 1)
	blk.ValidatorTxs = ordered
	require.NoError(t, blk.Finalize(producerKey, 1000, 0))

	require.NoError(t, engine.ValidateBlock(blk))
}

func TestValidateBlockRejectsValidatorTxHeightMismatch(t *testing.T) {
	keys, addrs := genValidators(t, 8)
	engine, err := New(addrs, 4, common.Hash{})
	require.NoError(t, err)

	committee := engine.Committee()
	keyFor := func(addr common.Address) *ecdsa.PrivateKey {
		for i, a := range addrs {
			if a == addr {
				return keys[i]
			}
		}
		t.Fatal("unknown address")
		return nil
	}

	seeds := make([][32]byte, len(committee))
	hashBySlot := make(map[common.Address]*types.ValidatorTx)
	seedBySlot := make(map[common.Address]*types.ValidatorTx)
	for i, member := range committee {
		seeds[i][0] = byte(i + 1)
		commit := common.BytesToHash(crypto.Keccak256(seeds[i][:]))
		var commitPayload [32]byte
		copy(commitPayload[:], commit.Bytes())

		// the first committee slot commits to height 2 while the block is
		// height 1, simulating a stale validator tx replayed into this round.
		height := uint64(1)
		if i == 0 {
			height = 2
		}

		hashTx := types.NewValidatorTx(types.SelectorRandomHash, commitPayload, 1337, height)
		_, err := types.SignValidatorTx(hashTx, keyFor(member))
		require.NoError(t, err)
		hashBySlot[member] = hashTx

		seedTx := types.NewValidatorTx(types.SelectorRandomSeed, seeds[i], 1337, height)
		_, err = types.SignValidatorTx(seedTx, keyFor(member))
		require.NoError(t, err)
		seedBySlot[member] = seedTx
	}

	ordered, err := engine.ValidatorTxOrder(hashBySlot, seedBySlot)
	require.NoError(t, err)

	producerKey := keyFor(engine.Producer())
	blk := types.NewMutableBlock(common.Hash{}, 1)
	blk.ValidatorTxs = ordered
	require.NoError(t, blk.Finalize(producerKey, 1000, 0))

	require.Error(t, engine.ValidateBlock(blk))
}
