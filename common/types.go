// Package common defines the address and hash primitives shared by every
// other package in the module: 20-byte addresses and 32-byte keccak hashes.
package common

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// AddressLength is the number of bytes in an Address.
	AddressLength = 20
	// HashLength is the number of bytes in a Hash.
	HashLength = 32
)

// Address represents a 20-byte account or contract identifier.
type Address [AddressLength]byte

// BytesToAddress sets the low-order bytes of the returned address to b,
// left-padding or truncating from the left as needed.
func BytesToAddress(b []byte) Address {
	var a Address
	a.setBytes(b)
	return a
}

func (a *Address) setBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// Bytes returns the raw bytes of a.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns a "0x"-prefixed hex encoding of a.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// Cmp compares two addresses lexicographically.
func (a Address) Cmp(other Address) int {
	for i := range a {
		if a[i] != other[i] {
			if a[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// HexToAddress decodes a hex string (with or without "0x" prefix) into an Address.
func HexToAddress(s string) Address { return BytesToAddress(FromHex(s)) }

// Hash represents a 32-byte keccak-256 digest.
type Hash [HashLength]byte

// BytesToHash sets the low-order bytes of the returned hash to b.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// BigToHash sets the big-endian representation of i as the hash value.
func BigToHash(i *big.Int) Hash { return BytesToHash(i.Bytes()) }

// Big returns the hash as a big.Int.
func (h Hash) Big() *big.Int { return new(big.Int).SetBytes(h[:]) }

// Bytes returns the raw bytes of h.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns a "0x"-prefixed hex encoding of h.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// HexToHash decodes a hex string (with or without "0x" prefix) into a Hash.
func HexToHash(s string) Hash { return BytesToHash(FromHex(s)) }

// FromHex decodes a hex string, tolerating an optional "0x"/"0X" prefix and
// an odd number of digits (left-padded with a zero nibble).
func FromHex(s string) []byte {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// ParseAddress errors out loudly instead of silently truncating malformed input.
func ParseAddress(s string) (Address, error) {
	b := FromHex(s)
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("common: invalid address length %q: have %d want %d", s, len(b), AddressLength)
	}
	return BytesToAddress(b), nil
}
