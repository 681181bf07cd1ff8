// Package crypto wraps the secp256k1 signature scheme and keccak-256 hashing
// used throughout the chain: address derivation, transaction signing, and
// block-producer seals.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/rdpos-labs/rdchain/common"
)

// SignatureLength is the byte length of a recoverable secp256k1 signature:
// 32-byte r, 32-byte s, 1-byte recovery id.
const SignatureLength = 64 + 1

var (
	// ErrInvalidSignatureLen is returned when a signature is not SignatureLength bytes.
	ErrInvalidSignatureLen = errors.New("crypto: invalid signature length")
	// ErrInvalidRecoveryID is returned when the recovery id is out of range.
	ErrInvalidRecoveryID = errors.New("crypto: invalid recovery id")
	// ErrInvalidPubkey is returned when a public key cannot be parsed.
	ErrInvalidPubkey = errors.New("crypto: invalid public key")
	// ErrNonCanonicalS rejects signatures with a high-half s value (malleability).
	ErrNonCanonicalS = errors.New("crypto: non-canonical signature s value")
)

var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
var secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)

// Keccak256 returns the keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// Keccak256Hash returns the keccak-256 digest of data as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Keccak256(data...))
}

// PubkeyToAddress derives the 20-byte address from an uncompressed public key:
// the low 20 bytes of keccak-256(X || Y).
func PubkeyToAddress(pub ecdsa.PublicKey) common.Address {
	raw := FromECDSAPub(&pub)
	if raw == nil {
		return common.Address{}
	}
	return common.BytesToAddress(Keccak256(raw[1:])[12:])
}

// FromECDSAPub serializes a public key into 65-byte uncompressed SEC1 form
// (0x04 || X || Y).
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(btcec.S256(), pub.X, pub.Y)
}

// UnmarshalPubkey parses an uncompressed secp256k1 public key.
func UnmarshalPubkey(pub []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.Unmarshal(btcec.S256(), pub)
	if x == nil {
		return nil, ErrInvalidPubkey
	}
	return &ecdsa.PublicKey{Curve: btcec.S256(), X: x, Y: y}, nil
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return key.ToECDSA(), nil
}

// Sign produces a 65-byte recoverable signature (r || s || v) over a 32-byte
// digest. v is 0 or 1 and encodes parity, matching EIP-1559 style recovery.
func Sign(digestHash []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	if len(digestHash) != common.HashLength {
		return nil, fmt.Errorf("crypto: hash is required to be exactly %d bytes (%d)", common.HashLength, len(digestHash))
	}
	priv, _ := btcec.PrivKeyFromBytes(prv.D.Bytes())
	compact := btcecdsa.SignCompact(priv, digestHash, false)
	sig := make([]byte, SignatureLength)
	copy(sig[:64], compact[1:])
	recID := compact[0] - 27
	if recID >= 4 {
		recID -= 4
	}
	sig[64] = recID
	return sig, nil
}

// VerifySignature checks a 64-byte (r||s) signature against an uncompressed
// or raw-64-byte public key. Rejects high-s (malleable) signatures.
func VerifySignature(pubkey, digestHash, signature []byte) bool {
	if len(signature) != 64 {
		return false
	}
	s := new(big.Int).SetBytes(signature[32:64])
	if s.Cmp(secp256k1HalfN) > 0 {
		return false
	}
	pub, err := parseAnyPubkey(pubkey)
	if err != nil {
		return false
	}
	var rScalar, sScalar btcec.ModNScalar
	rScalar.SetByteSlice(signature[:32])
	sScalar.SetByteSlice(signature[32:64])
	sig := btcecdsa.NewSignature(&rScalar, &sScalar)
	return sig.Verify(digestHash, pub)
}

func parseAnyPubkey(pubkey []byte) (*btcec.PublicKey, error) {
	switch len(pubkey) {
	case 64:
		full := make([]byte, 65)
		full[0] = 0x04
		copy(full[1:], pubkey)
		return btcec.ParsePubKey(full)
	default:
		return btcec.ParsePubKey(pubkey)
	}
}

// SigToPub recovers the public key that produced sig over digestHash.
func SigToPub(digestHash, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, ErrInvalidSignatureLen
	}
	if sig[64] >= 4 {
		return nil, ErrInvalidRecoveryID
	}
	compact := make([]byte, 65)
	compact[0] = 27 + sig[64]
	copy(compact[1:], sig[:64])
	pub, _, err := btcecdsa.RecoverCompact(compact, digestHash)
	if err != nil {
		return nil, err
	}
	return pub.ToECDSA(), nil
}

// Ecrecover returns the uncompressed public key bytes that produced sig.
func Ecrecover(digestHash, sig []byte) ([]byte, error) {
	pub, err := SigToPub(digestHash, sig)
	if err != nil {
		return nil, err
	}
	return FromECDSAPub(pub), nil
}

// SignatureValues splits a 65-byte recoverable signature into (r, s, v).
func SignatureValues(sig []byte) (r, s, v *big.Int, err error) {
	if len(sig) != SignatureLength {
		return nil, nil, nil, ErrInvalidSignatureLen
	}
	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes([]byte{sig[64]})
	return r, s, v, nil
}

// EncodeSignature reassembles a 65-byte signature from (r, s, v) encoded as
// fixed 32-byte big-endian words and a single parity byte. Rejects high-s.
func EncodeSignature(r, s, v *big.Int) ([]byte, error) {
	if r == nil || s == nil || v == nil {
		return nil, errors.New("crypto: nil signature component")
	}
	if s.Cmp(secp256k1HalfN) > 0 {
		return nil, ErrNonCanonicalS
	}
	if !v.IsUint64() || v.Uint64() > 1 {
		return nil, ErrInvalidRecoveryID
	}
	sig := make([]byte, SignatureLength)
	rb, sb := r.Bytes(), s.Bytes()
	copy(sig[32-len(rb):32], rb)
	copy(sig[64-len(sb):64], sb)
	sig[64] = byte(v.Uint64())
	return sig, nil
}
