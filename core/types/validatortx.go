package types

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/crypto"
	"github.com/rdpos-labs/rdchain/rlp"
)

// Selector identifies the kind of validator-tx payload (§3: randomHash commit
// or randomSeed reveal).
type Selector [4]byte

var (
	SelectorRandomHash = Selector{0xcf, 0xff, 0xe7, 0x46}
	SelectorRandomSeed = Selector{0x6f, 0xc5, 0xa2, 0xd6}
)

// ValidatorTx is the consensus-payload transaction form (§4.2): a committee
// member's commit or reveal of its randomness seed for a specific height.
type ValidatorTx struct {
	From    common.Address // must equal a validator address; also the signer
	Data    []byte         // 4-byte selector || 32-byte payload
	ChainID uint64
	Height  uint64

	V, R, S *big.Int

	hash common.Hash
}

// NewValidatorTx builds an unsigned validator tx with the given selector and payload.
func NewValidatorTx(selector Selector, payload [32]byte, chainID, height uint64) *ValidatorTx {
	data := make([]byte, 0, 36)
	data = append(data, selector[:]...)
	data = append(data, payload[:]...)
	return &ValidatorTx{Data: data, ChainID: chainID, Height: height}
}

// Selector returns the 4-byte selector prefix of Data, or the zero selector
// if Data is shorter than 4 bytes.
func (tx *ValidatorTx) Selector() Selector {
	var s Selector
	if len(tx.Data) >= 4 {
		copy(s[:], tx.Data[:4])
	}
	return s
}

// Payload returns the 32-byte payload following the selector, or nil if the
// data is not exactly selector+payload length.
func (tx *ValidatorTx) Payload() []byte {
	if len(tx.Data) != 36 {
		return nil
	}
	return tx.Data[4:36]
}

func (tx *ValidatorTx) signingPayload() []byte {
	return rlp.List(
		rlp.Uint64(tx.ChainID),
		rlp.Bytes(tx.Data),
		rlp.Uint64(tx.Height),
	)
}

// SigningHash returns the keccak-256 digest signed by From.
func (tx *ValidatorTx) SigningHash() common.Hash {
	return crypto.Keccak256Hash(tx.signingPayload())
}

// EncodeRLP implements rlp.Encoder.
func (tx *ValidatorTx) EncodeRLP() []byte {
	return rlp.List(
		rlp.Uint64(tx.ChainID),
		rlp.Bytes(tx.Data),
		rlp.Uint64(tx.Height),
		rlp.BigInt(tx.V),
		rlp.BigInt(tx.R),
		rlp.BigInt(tx.S),
	)
}

// Hash returns the keccak-256 hash of the canonical RLP encoding, memoized.
func (tx *ValidatorTx) Hash() common.Hash {
	if tx.hash.IsZero() {
		tx.hash = crypto.Keccak256Hash(tx.EncodeRLP())
	}
	return tx.hash
}

// SignValidatorTx signs tx with prv, setting From, V, R, S.
func SignValidatorTx(tx *ValidatorTx, prv *ecdsa.PrivateKey) (*ValidatorTx, error) {
	sig, err := crypto.Sign(tx.SigningHash().Bytes(), prv)
	if err != nil {
		return nil, err
	}
	r, s, v, err := crypto.SignatureValues(sig)
	if err != nil {
		return nil, err
	}
	tx.R, tx.S, tx.V = r, s, v
	tx.From = crypto.PubkeyToAddress(prv.PublicKey)
	tx.hash = common.Hash{}
	return tx, nil
}

// DecodeValidatorTx parses and verifies a wire-encoded ValidatorTx.
func DecodeValidatorTx(b []byte, expectedChainID uint64) (*ValidatorTx, error) {
	item, err := rlp.Decode(b)
	if err != nil {
		return nil, NewError(KindMalformed, err.Error())
	}
	if !item.IsList() || len(item.List) != 6 {
		return nil, NewError(KindMalformed, "validatortx: wrong field count")
	}
	f := item.List
	chainID, err := f[0].Uint64()
	if err != nil {
		return nil, NewError(KindMalformed, "chainId")
	}
	data := f[1].Data
	height, err := f[2].Uint64()
	if err != nil {
		return nil, NewError(KindMalformed, "height")
	}
	v, err := f[3].BigInt()
	if err != nil {
		return nil, NewError(KindMalformed, "v")
	}
	r, err := f[4].BigInt()
	if err != nil {
		return nil, NewError(KindMalformed, "r")
	}
	s, err := f[5].BigInt()
	if err != nil {
		return nil, NewError(KindMalformed, "s")
	}
	if len(data) != 36 {
		return nil, NewError(KindMalformed, "validatortx: data must be 4+32 bytes")
	}
	tx := &ValidatorTx{Data: data, ChainID: chainID, Height: height, V: v, R: r, S: s}
	if tx.ChainID != expectedChainID {
		return nil, ErrWrongChainID
	}
	sig, err := crypto.EncodeSignature(r, s, v)
	if err != nil {
		return nil, NewError(KindInvalidSignature, err.Error())
	}
	pub, err := crypto.Ecrecover(tx.SigningHash().Bytes(), sig)
	if err != nil {
		return nil, NewError(KindInvalidSignature, err.Error())
	}
	tx.From = common.BytesToAddress(crypto.Keccak256(pub[1:])[12:])
	return tx, nil
}
