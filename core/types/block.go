package types

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"

	"github.com/rdpos-labs/rdchain/common"
	"github.com/rdpos-labs/rdchain/crypto"
)

// HeaderSize is the fixed, field-concatenated byte length of a Header per
// spec §4.3: prevHash(32) || blockRandomness(32) || validatorMerkleRoot(32)
// || txMerkleRoot(32) || timestamp(8 LE) || height(8 LE).
const HeaderSize = 32*4 + 8 + 8

// Header is the 144-byte fixed-format block header.
type Header struct {
	PrevHash            common.Hash
	BlockRandomness     common.Hash
	ValidatorMerkleRoot common.Hash
	TxMerkleRoot        common.Hash
	Timestamp           uint64 // microseconds since epoch
	Height              uint64
}

// Bytes serializes the header to its canonical 144-byte form.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:32], h.PrevHash[:])
	copy(b[32:64], h.BlockRandomness[:])
	copy(b[64:96], h.ValidatorMerkleRoot[:])
	copy(b[96:128], h.TxMerkleRoot[:])
	binary.LittleEndian.PutUint64(b[128:136], h.Timestamp)
	binary.LittleEndian.PutUint64(b[136:144], h.Height)
	return b
}

// ParseHeader parses a 144-byte buffer into a Header.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) != HeaderSize {
		return nil, NewError(KindMalformed, fmt.Sprintf("header: want %d bytes, have %d", HeaderSize, len(b)))
	}
	h := &Header{
		PrevHash:            common.BytesToHash(b[0:32]),
		BlockRandomness:     common.BytesToHash(b[32:64]),
		ValidatorMerkleRoot: common.BytesToHash(b[64:96]),
		TxMerkleRoot:        common.BytesToHash(b[96:128]),
		Timestamp:           binary.LittleEndian.Uint64(b[128:136]),
		Height:              binary.LittleEndian.Uint64(b[136:144]),
	}
	return h, nil
}

// Hash is the keccak-256 hash of the serialized header — the value signed by
// the block producer and used as the chain link (prevHash of the next block).
func (h *Header) Hash() common.Hash {
	return crypto.Keccak256Hash(h.Bytes())
}

// Block is a proposed or finalized block: an immutable header plus the
// ordered user and validator transaction lists, and the producer's
// signature over the header hash. A Block with a nil Signature is mutable
// (under construction); Finalize makes it immutable and hashable.
type Block struct {
	Header        *Header
	UserTxs       []*BlockTx
	ValidatorTxs  []*ValidatorTx
	Signature     []byte // 65 bytes: r || s || v
	ProducerAddr  common.Address
}

// NewMutableBlock starts a block under construction at the given height,
// chained off prev.
func NewMutableBlock(prevHash common.Hash, height uint64) *Block {
	return &Block{
		Header: &Header{PrevHash: prevHash, Height: height},
	}
}

// IsFinalized reports whether the block has been signed and is now immutable.
func (b *Block) IsFinalized() bool { return len(b.Signature) == SignatureLen }

// SignatureLen is the byte length of a block's producer signature.
const SignatureLen = crypto.SignatureLength

// Finalize computes the Merkle roots and randomness seed from the current
// tx lists, sets timestamp (must strictly exceed prevTimestamp), signs the
// header with prv, and marks the block immutable. Returns an error (instead
// of mutating) if timestamp does not strictly advance.
func (b *Block) Finalize(prv *ecdsa.PrivateKey, timestamp, prevTimestamp uint64) error {
	if timestamp <= prevTimestamp {
		return NewError(KindInvalidBlock, "block: timestamp must strictly exceed parent")
	}
	b.Header.Timestamp = timestamp
	b.Header.TxMerkleRoot = BlockTxMerkleRoot(b.UserTxs)
	b.Header.ValidatorMerkleRoot = ValidatorTxMerkleRoot(b.ValidatorTxs)
	seed, err := ComputeBlockRandomness(b.ValidatorTxs)
	if err != nil {
		return err
	}
	b.Header.BlockRandomness = seed

	sig, err := crypto.Sign(b.Header.Hash().Bytes(), prv)
	if err != nil {
		return err
	}
	b.Signature = sig
	b.ProducerAddr = crypto.PubkeyToAddress(prv.PublicKey)
	return nil
}

// ComputeBlockRandomness derives blockRandomness = keccak256(concat(revealed
// seeds in tx order)) from the validator tx list's randomSeed entries, in
// the order they appear.
func ComputeBlockRandomness(validatorTxs []*ValidatorTx) (common.Hash, error) {
	var concat []byte
	for _, tx := range validatorTxs {
		if tx.Selector() != SelectorRandomSeed {
			continue
		}
		p := tx.Payload()
		if len(p) != 32 {
			return common.Hash{}, NewError(KindMalformed, "validatortx: randomSeed payload must be 32 bytes")
		}
		concat = append(concat, p...)
	}
	return crypto.Keccak256Hash(concat), nil
}

// RecoverProducer recovers the address that signed this block's header hash.
func (b *Block) RecoverProducer() (common.Address, error) {
	if !b.IsFinalized() {
		return common.Address{}, NewError(KindInvalidBlock, "block: not finalized")
	}
	pub, err := crypto.Ecrecover(b.Header.Hash().Bytes(), b.Signature)
	if err != nil {
		return common.Address{}, NewError(KindInvalidSignature, err.Error())
	}
	return common.BytesToAddress(crypto.Keccak256(pub[1:])[12:]), nil
}

// Hash returns the block's identity hash (its header hash).
func (b *Block) Hash() common.Hash { return b.Header.Hash() }

// Serialize writes the full wire form (§4.3):
// signature(65) || header(144) || validatorTxStartOffset(8 LE) ||
// [user-tx: len(4 LE) || bytes]* || [validator-tx: len(4 LE) || bytes]*
func (b *Block) Serialize() ([]byte, error) {
	if !b.IsFinalized() {
		return nil, NewError(KindInvalidBlock, "block: cannot serialize a mutable block")
	}
	var userSection, validatorSection []byte
	for _, tx := range b.UserTxs {
		enc := tx.EncodeRLP()
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(enc)))
		userSection = append(userSection, lenBuf[:]...)
		userSection = append(userSection, enc...)
	}
	for _, tx := range b.ValidatorTxs {
		enc := tx.EncodeRLP()
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(enc)))
		validatorSection = append(validatorSection, lenBuf[:]...)
		validatorSection = append(validatorSection, enc...)
	}

	out := make([]byte, 0, SignatureLen+HeaderSize+8+len(userSection)+len(validatorSection))
	out = append(out, b.Signature...)
	out = append(out, b.Header.Bytes()...)

	validatorTxStartOffset := uint64(SignatureLen + HeaderSize + 8 + len(userSection))
	var offBuf [8]byte
	binary.LittleEndian.PutUint64(offBuf[:], validatorTxStartOffset)
	out = append(out, offBuf[:]...)
	out = append(out, userSection...)
	out = append(out, validatorSection...)
	return out, nil
}

// DeserializeBlock parses the wire form, recomputes both Merkle roots and
// the randomness seed, and requires byte-for-byte agreement with the header
// (§4.3 "Deserialization recomputes ... and requires byte-for-byte
// agreement"). It recovers the signer into ProducerAddr via RecoverProducer
// but does not check that address against the expected producer.
func DeserializeBlock(b []byte, chainID uint64) (*Block, error) {
	if len(b) < SignatureLen+HeaderSize+8 {
		return nil, NewError(KindMalformed, "block: too short")
	}
	sig := append([]byte(nil), b[:SignatureLen]...)
	header, err := ParseHeader(b[SignatureLen : SignatureLen+HeaderSize])
	if err != nil {
		return nil, err
	}
	validatorTxStartOffset := binary.LittleEndian.Uint64(b[SignatureLen+HeaderSize : SignatureLen+HeaderSize+8])
	if validatorTxStartOffset > uint64(len(b)) {
		return nil, NewError(KindMalformed, "block: validatorTxStartOffset out of range")
	}
	userSection := b[SignatureLen+HeaderSize+8 : validatorTxStartOffset]
	validatorSection := b[validatorTxStartOffset:]

	userTxs, err := decodeTxSection(userSection, func(raw []byte) (*BlockTx, error) {
		return DecodeBlockTx(raw, chainID)
	})
	if err != nil {
		return nil, err
	}
	validatorTxs, err := decodeValidatorSection(validatorSection, chainID)
	if err != nil {
		return nil, err
	}

	blk := &Block{Header: header, UserTxs: userTxs, ValidatorTxs: validatorTxs, Signature: sig}

	if got := BlockTxMerkleRoot(userTxs); got != header.TxMerkleRoot {
		return nil, NewError(KindInvalidBlock, "block: txMerkleRoot mismatch")
	}
	if got := ValidatorTxMerkleRoot(validatorTxs); got != header.ValidatorMerkleRoot {
		return nil, NewError(KindInvalidBlock, "block: validatorMerkleRoot mismatch")
	}
	seed, err := ComputeBlockRandomness(validatorTxs)
	if err != nil {
		return nil, err
	}
	if seed != header.BlockRandomness {
		return nil, NewError(KindInvalidBlock, "block: blockRandomness mismatch")
	}
	producer, err := blk.RecoverProducer()
	if err != nil {
		return nil, err
	}
	blk.ProducerAddr = producer
	return blk, nil
}

func decodeTxSection(section []byte, decode func([]byte) (*BlockTx, error)) ([]*BlockTx, error) {
	var out []*BlockTx
	for len(section) > 0 {
		if len(section) < 4 {
			return nil, NewError(KindMalformed, "block: truncated tx length prefix")
		}
		n := binary.LittleEndian.Uint32(section[:4])
		section = section[4:]
		if uint64(n) > uint64(len(section)) {
			return nil, NewError(KindMalformed, "block: truncated tx body")
		}
		tx, err := decode(section[:n])
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
		section = section[n:]
	}
	return out, nil
}

func decodeValidatorSection(section []byte, chainID uint64) ([]*ValidatorTx, error) {
	var out []*ValidatorTx
	for len(section) > 0 {
		if len(section) < 4 {
			return nil, NewError(KindMalformed, "block: truncated validator tx length prefix")
		}
		n := binary.LittleEndian.Uint32(section[:4])
		section = section[4:]
		if uint64(n) > uint64(len(section)) {
			return nil, NewError(KindMalformed, "block: truncated validator tx body")
		}
		tx, err := DecodeValidatorTx(section[:n], chainID)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
		section = section[n:]
	}
	return out, nil
}
