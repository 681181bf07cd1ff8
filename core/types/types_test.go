package types

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/crypto"
)

const testChainID = 1337

func TestBlockTxRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	to := common.HexToAddress("0x000000000000000000000000000000000000aa")
	tx := NewBlockTx(to, []byte("hello"), testChainID, 3, uint256.NewInt(100), uint256.NewInt(1_000_000_000), uint256.NewInt(1), 21000)
	_, err = SignBlockTx(tx, priv)
	require.NoError(t, err)

	enc := tx.EncodeRLP()
	decoded, err := DecodeBlockTx(enc, testChainID)
	require.NoError(t, err)
	require.Equal(t, tx.From, decoded.From)
	require.Equal(t, tx.Hash(), decoded.Hash())
	require.Equal(t, crypto.PubkeyToAddress(priv.PublicKey), decoded.From)
}

func TestBlockTxWrongChainID(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	tx := NewBlockTx(common.Address{}, nil, testChainID, 0, uint256.NewInt(0), uint256.NewInt(0), uint256.NewInt(0), 21000)
	_, err = SignBlockTx(tx, priv)
	require.NoError(t, err)

	_, err = DecodeBlockTx(tx.EncodeRLP(), testChainID+1)
	require.ErrorIs(t, err, ErrWrongChainID)
}

func TestValidatorTxRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	var seed [32]byte
	copy(seed[:], crypto.Keccak256([]byte("secret-seed")))

	tx := NewValidatorTx(SelectorRandomHash, seed, testChainID, 10)
	_, err = SignValidatorTx(tx, priv)
	require.NoError(t, err)

	decoded, err := DecodeValidatorTx(tx.EncodeRLP(), testChainID)
	require.NoError(t, err)
	require.Equal(t, tx.From, decoded.From)
	require.Equal(t, SelectorRandomHash, decoded.Selector())
	require.Equal(t, seed[:], decoded.Payload())
}

func TestBlockFinalizeAndSerializeRoundTrip(t *testing.T) {
	producerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	committee := make([]*ecdsaKeyAddr, 4)
	for i := range committee {
		k, err := crypto.GenerateKey()
		require.NoError(t, err)
		committee[i] = &ecdsaKeyAddr{key: k, addr: crypto.PubkeyToAddress(k.PublicKey)}
	}

	seeds := make([][32]byte, len(committee))
	for i := range seeds {
		copy(seeds[i][:], crypto.Keccak256([]byte{byte(i)}, []byte("seed")))
	}

	blk := NewMutableBlock(common.Hash{}, 1)
	var validatorTxs []*ValidatorTx
	for i, c := range committee {
		htx := NewValidatorTx(SelectorRandomHash, commitOf(seeds[i]), testChainID, 1)
		_, err := SignValidatorTx(htx, c.key)
		require.NoError(t, err)
		validatorTxs = append(validatorTxs, htx)
	}
	for i, c := range committee {
		stx := NewValidatorTx(SelectorRandomSeed, seeds[i], testChainID, 1)
		_, err := SignValidatorTx(stx, c.key)
		require.NoError(t, err)
		validatorTxs = append(validatorTxs, stx)
	}
	blk.ValidatorTxs = validatorTxs

	userTx := NewBlockTx(common.HexToAddress("0x00000000000000000000000000000000000001"), nil, testChainID, 0, uint256.NewInt(5), uint256.NewInt(1), uint256.NewInt(1), 21000)
	_, err = SignBlockTx(userTx, producerKey)
	require.NoError(t, err)
	blk.UserTxs = []*BlockTx{userTx}

	now := uint64(time.Now().UnixMicro())
	require.NoError(t, blk.Finalize(producerKey, now, now-1))
	require.True(t, blk.IsFinalized())

	raw, err := blk.Serialize()
	require.NoError(t, err)

	decoded, err := DeserializeBlock(raw, testChainID)
	require.NoError(t, err)
	require.Equal(t, blk.Hash(), decoded.Hash())
	require.Equal(t, blk.Header.BlockRandomness, decoded.Header.BlockRandomness)
	require.Equal(t, crypto.PubkeyToAddress(producerKey.PublicKey), decoded.ProducerAddr)
}

func TestBlockFinalizeRejectsNonAdvancingTimestamp(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	blk := NewMutableBlock(common.Hash{}, 1)
	err = blk.Finalize(priv, 100, 100)
	require.ErrorIs(t, err, ErrInvalidBlock)
}

type ecdsaKeyAddr struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// commitOf computes the randomHash commitment keccak256(seed), the value
// consensus/rdpos checks each randomSeed reveal against.
func commitOf(seed [32]byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(seed[:]))
	return out
}
