// Package rlp implements the subset of Recursive Length Prefix encoding
// needed to serialize transactions: unsigned integers, byte strings, and
// ordered lists of either. It mirrors the shape of the teacher's internal
// rlp fork (itself derived from go-ethereum's encoding) without the
// streaming/reflection machinery that codebase needs for general-purpose
// trie and receipt encoding.
package rlp

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
)

// ErrMalformed is returned for any input that cannot be parsed as valid RLP,
// including length mismatches and non-canonical (non-minimal) length prefixes.
var ErrMalformed = errors.New("rlp: malformed input")

// Encoder is implemented by types that know how to serialize themselves as
// an RLP list of fields, in the teacher's EncodeRLP() idiom.
type Encoder interface {
	EncodeRLP() []byte
}

// List concatenates pre-encoded items into a single RLP list.
func List(items ...[]byte) []byte {
	var buf bytes.Buffer
	for _, it := range items {
		buf.Write(it)
	}
	return wrapList(buf.Bytes())
}

// Uint64 encodes an unsigned integer as a minimal big-endian byte string.
func Uint64(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	var b [8]byte
	n := 8
	for n > 0 && v > 0 {
		n--
		b[n] = byte(v)
		v >>= 8
	}
	return Bytes(b[n:])
}

// BigInt encodes a non-negative big.Int as a minimal big-endian byte string.
func BigInt(v *big.Int) []byte {
	if v == nil || v.Sign() == 0 {
		return []byte{0x80}
	}
	return Bytes(v.Bytes())
}

// Bytes encodes a byte string per the RLP string rules.
func Bytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	return append(encodeLength(len(b), 0x80, 0xb7), b...)
}

// Bool encodes a boolean as RLP's canonical 0/1 byte strings.
func Bool(v bool) []byte {
	if v {
		return []byte{0x01}
	}
	return []byte{0x80}
}

func wrapList(body []byte) []byte {
	return append(encodeLength(len(body), 0xc0, 0xf7), body...)
}

func encodeLength(n int, small, largeBase byte) []byte {
	if n < 56 {
		return []byte{small + byte(n)}
	}
	lb := big.NewInt(int64(n)).Bytes()
	return append([]byte{largeBase + byte(len(lb))}, lb...)
}

// Encode serializes any Encoder into its RLP list form.
func Encode(e Encoder) []byte { return e.EncodeRLP() }

// Item is a parsed RLP value: either a byte string (List == nil) or a list
// of sub-items (List != nil, Data == nil).
type Item struct {
	Data []byte
	List []Item
}

// IsList reports whether the item is a list rather than a string.
func (it Item) IsList() bool { return it.List != nil }

// Decode parses exactly one top-level RLP item from b, erroring on trailing bytes.
func Decode(b []byte) (Item, error) {
	item, rest, err := decodeItem(b)
	if err != nil {
		return Item{}, err
	}
	if len(rest) != 0 {
		return Item{}, fmt.Errorf("%w: trailing bytes", ErrMalformed)
	}
	return item, nil
}

func decodeItem(b []byte) (Item, []byte, error) {
	if len(b) == 0 {
		return Item{}, nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	prefix := b[0]
	switch {
	case prefix < 0x80:
		return Item{Data: b[:1]}, b[1:], nil
	case prefix <= 0xb7:
		n := int(prefix - 0x80)
		if len(b) < 1+n {
			return Item{}, nil, fmt.Errorf("%w: short string", ErrMalformed)
		}
		if n == 1 && b[1] < 0x80 {
			return Item{}, nil, fmt.Errorf("%w: non-canonical single byte", ErrMalformed)
		}
		return Item{Data: b[1 : 1+n]}, b[1+n:], nil
	case prefix <= 0xbf:
		lenOfLen := int(prefix - 0xb7)
		if len(b) < 1+lenOfLen {
			return Item{}, nil, fmt.Errorf("%w: short string length", ErrMalformed)
		}
		n := int(new(big.Int).SetBytes(b[1 : 1+lenOfLen]).Int64())
		if n < 56 {
			return Item{}, nil, fmt.Errorf("%w: non-canonical length encoding", ErrMalformed)
		}
		start := 1 + lenOfLen
		if len(b) < start+n {
			return Item{}, nil, fmt.Errorf("%w: long string", ErrMalformed)
		}
		return Item{Data: b[start : start+n]}, b[start+n:], nil
	case prefix <= 0xf7:
		n := int(prefix - 0xc0)
		if len(b) < 1+n {
			return Item{}, nil, fmt.Errorf("%w: short list", ErrMalformed)
		}
		items, err := decodeList(b[1 : 1+n])
		if err != nil {
			return Item{}, nil, err
		}
		return Item{List: items}, b[1+n:], nil
	default:
		lenOfLen := int(prefix - 0xf7)
		if len(b) < 1+lenOfLen {
			return Item{}, nil, fmt.Errorf("%w: short list length", ErrMalformed)
		}
		n := int(new(big.Int).SetBytes(b[1 : 1+lenOfLen]).Int64())
		if n < 56 {
			return Item{}, nil, fmt.Errorf("%w: non-canonical length encoding", ErrMalformed)
		}
		start := 1 + lenOfLen
		if len(b) < start+n {
			return Item{}, nil, fmt.Errorf("%w: long list", ErrMalformed)
		}
		items, err := decodeList(b[start : start+n])
		if err != nil {
			return Item{}, nil, err
		}
		return Item{List: items}, b[start+n:], nil
	}
}

func decodeList(b []byte) ([]Item, error) {
	items := []Item{}
	for len(b) > 0 {
		item, rest, err := decodeItem(b)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		b = rest
	}
	return items, nil
}

// Uint64 decodes a minimal big-endian byte string item into a uint64.
func (it Item) Uint64() (uint64, error) {
	if it.IsList() || len(it.Data) > 8 {
		return 0, fmt.Errorf("%w: not a uint64", ErrMalformed)
	}
	if len(it.Data) > 0 && it.Data[0] == 0 {
		return 0, fmt.Errorf("%w: non-minimal uint encoding", ErrMalformed)
	}
	var v uint64
	for _, b := range it.Data {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// BigInt decodes a byte string item into a non-negative big.Int.
func (it Item) BigInt() (*big.Int, error) {
	if it.IsList() {
		return nil, fmt.Errorf("%w: not a big int", ErrMalformed)
	}
	if len(it.Data) > 0 && it.Data[0] == 0 {
		return nil, fmt.Errorf("%w: non-minimal int encoding", ErrMalformed)
	}
	return new(big.Int).SetBytes(it.Data), nil
}

// Bool decodes a canonical boolean byte string.
func (it Item) Bool() (bool, error) {
	if it.IsList() || len(it.Data) > 1 {
		return false, fmt.Errorf("%w: not a bool", ErrMalformed)
	}
	if len(it.Data) == 0 {
		return false, nil
	}
	if it.Data[0] != 1 {
		return false, fmt.Errorf("%w: non-canonical bool", ErrMalformed)
	}
	return true, nil
}
