package crypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAndRecover(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)

	digest := Keccak256([]byte("hello rdchain"))
	sig, err := Sign(digest, priv)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)

	pub, err := Ecrecover(digest, sig)
	require.NoError(t, err)
	require.Equal(t, FromECDSAPub(&priv.PublicKey), pub)

	addr := PubkeyToAddress(priv.PublicKey)
	recoveredPub, err := UnmarshalPubkey(pub)
	require.NoError(t, err)
	require.Equal(t, addr, PubkeyToAddress(*recoveredPub))

	require.True(t, VerifySignature(pub, digest, sig[:64]))
}

func TestEncodeSignatureRejectsHighS(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	digest := Keccak256([]byte("msg"))
	sig, err := Sign(digest, priv)
	require.NoError(t, err)

	r, s, v, err := SignatureValues(sig)
	require.NoError(t, err)

	highS := new(big.Int).Sub(secp256k1N, s)
	_, err = EncodeSignature(r, highS, v)
	require.ErrorIs(t, err, ErrNonCanonicalS)
}
