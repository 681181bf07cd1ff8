package rlp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripScalars(t *testing.T) {
	enc := Uint64(0xdeadbeef)
	item, err := Decode(enc)
	require.NoError(t, err)
	v, err := item.Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0xdeadbeef), v)

	item, err = Decode(Uint64(0))
	require.NoError(t, err)
	v, err = item.Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0), v)
}

func TestRoundTripList(t *testing.T) {
	payload := bytesOfLen(100)
	list := List(Uint64(7), Bytes(payload), Bool(true))
	item, err := Decode(list)
	require.NoError(t, err)
	require.True(t, item.IsList())
	require.Len(t, item.List, 3)

	n, err := item.List[0].Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(7), n)
	require.Equal(t, payload, item.List[1].Data)
	b, err := item.List[2].Bool()
	require.NoError(t, err)
	require.True(t, b)
}

func TestRejectsNonCanonicalSingleByte(t *testing.T) {
	_, err := Decode([]byte{0x81, 0x05})
	require.ErrorIs(t, err, ErrMalformed)
}

func bytesOfLen(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
