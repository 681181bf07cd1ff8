package types

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/crypto"
	"github.com/rdpos-labs/rdchain/rlp"
)

// BlockTx is the user-payload transaction form (§4.2): a value transfer or a
// contract call, signed by its sender and carrying EIP-1559-style fee fields.
type BlockTx struct {
	To                   common.Address
	From                 common.Address // recovered, not part of the signed payload
	Data                 []byte
	ChainID              uint64
	Nonce                uint64
	Value                *uint256.Int
	MaxFeePerGas         *uint256.Int
	MaxPriorityFeePerGas *uint256.Int
	GasLimit             uint64

	V, R, S *big.Int

	hash common.Hash
}

// NewBlockTx builds an unsigned transaction ready for SignBlockTx.
func NewBlockTx(to common.Address, data []byte, chainID, nonce uint64, value, maxFee, maxPriority *uint256.Int, gasLimit uint64) *BlockTx {
	if value == nil {
		value = new(uint256.Int)
	}
	if maxFee == nil {
		maxFee = new(uint256.Int)
	}
	if maxPriority == nil {
		maxPriority = new(uint256.Int)
	}
	return &BlockTx{
		To: to, Data: data, ChainID: chainID, Nonce: nonce,
		Value: value, MaxFeePerGas: maxFee, MaxPriorityFeePerGas: maxPriority, GasLimit: gasLimit,
	}
}

// signingPayload returns the RLP list of fields covered by the signature,
// i.e. everything except (from, v, r, s).
func (tx *BlockTx) signingPayload() []byte {
	return rlp.List(
		rlp.Uint64(tx.ChainID),
		rlp.Bytes(tx.To.Bytes()),
		rlp.Bytes(tx.Data),
		rlp.Uint64(tx.Nonce),
		rlp.Bytes(tx.Value.Bytes()),
		rlp.Bytes(tx.MaxFeePerGas.Bytes()),
		rlp.Bytes(tx.MaxPriorityFeePerGas.Bytes()),
		rlp.Uint64(tx.GasLimit),
	)
}

// SigningHash returns the keccak-256 digest signed by the sender.
func (tx *BlockTx) SigningHash() common.Hash {
	return crypto.Keccak256Hash(tx.signingPayload())
}

// EncodeRLP implements rlp.Encoder: the full wire form, signature included.
func (tx *BlockTx) EncodeRLP() []byte {
	return rlp.List(
		rlp.Uint64(tx.ChainID),
		rlp.Bytes(tx.To.Bytes()),
		rlp.Bytes(tx.Data),
		rlp.Uint64(tx.Nonce),
		rlp.Bytes(tx.Value.Bytes()),
		rlp.Bytes(tx.MaxFeePerGas.Bytes()),
		rlp.Bytes(tx.MaxPriorityFeePerGas.Bytes()),
		rlp.Uint64(tx.GasLimit),
		rlp.BigInt(tx.V),
		rlp.BigInt(tx.R),
		rlp.BigInt(tx.S),
	)
}

// Hash returns the keccak-256 hash of the canonical RLP encoding, memoized.
func (tx *BlockTx) Hash() common.Hash {
	if tx.hash.IsZero() {
		tx.hash = crypto.Keccak256Hash(tx.EncodeRLP())
	}
	return tx.hash
}

// SignBlockTx signs tx with prv, setting From, V, R, S and returning the signed tx.
func SignBlockTx(tx *BlockTx, prv *ecdsa.PrivateKey) (*BlockTx, error) {
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

// DecodeBlockTx parses and fully verifies a wire-encoded BlockTx: it checks
// chainId, rejects a non-canonical (high) s, and recovers From.
func DecodeBlockTx(b []byte, expectedChainID uint64) (*BlockTx, error) {
	item, err := rlp.Decode(b)
	if err != nil {
		return nil, NewError(KindMalformed, err.Error())
	}
	if !item.IsList() || len(item.List) != 11 {
		return nil, NewError(KindMalformed, "blocktx: wrong field count")
	}
	f := item.List
	chainID, err := f[0].Uint64()
	if err != nil {
		return nil, NewError(KindMalformed, "chainId")
	}
	toBytes := f[1].Data
	data := f[2].Data
	nonce, err := f[3].Uint64()
	if err != nil {
		return nil, NewError(KindMalformed, "nonce")
	}
	value, err := f[4].BigInt()
	if err != nil {
		return nil, NewError(KindMalformed, "value")
	}
	maxFee, err := f[5].BigInt()
	if err != nil {
		return nil, NewError(KindMalformed, "maxFeePerGas")
	}
	maxPrio, err := f[6].BigInt()
	if err != nil {
		return nil, NewError(KindMalformed, "maxPriorityFeePerGas")
	}
	gasLimit, err := f[7].Uint64()
	if err != nil {
		return nil, NewError(KindMalformed, "gasLimit")
	}
	v, err := f[8].BigInt()
	if err != nil {
		return nil, NewError(KindMalformed, "v")
	}
	r, err := f[9].BigInt()
	if err != nil {
		return nil, NewError(KindMalformed, "r")
	}
	s, err := f[10].BigInt()
	if err != nil {
		return nil, NewError(KindMalformed, "s")
	}

	tx := &BlockTx{
		To:                   common.BytesToAddress(toBytes),
		Data:                 data,
		ChainID:              chainID,
		Nonce:                nonce,
		Value:                uint256.MustFromBig(value),
		MaxFeePerGas:         uint256.MustFromBig(maxFee),
		MaxPriorityFeePerGas: uint256.MustFromBig(maxPrio),
		GasLimit:             gasLimit,
		V:                    v,
		R:                    r,
		S:                    s,
	}
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
