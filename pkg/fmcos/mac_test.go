package fmcos

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/fmcos/pkg/tlv"
)

func TestDESMAC(t *testing.T) {
	data := tlv.Hex("00A4040000")
	key := tlv.Hex(k1)

	mac, err := DESMAC(data, key, nil, MACSize)
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("DF44D7A2"), mac)

	full, err := DESMAC(data, key, make([]byte, 8), 8)
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("DF44D7A2A21E18EE"), full, "nil IV is the zero IV")
}

func TestTDESMAC(t *testing.T) {
	mac, err := TDESMAC(tlv.Hex("00A4040000"), testLineKey, tlv.Hex("1122334455667788"), MACSize)
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("836B1634"), mac)

	viaMAC, err := MAC(tlv.Hex("00A4040000"), testLineKey, tlv.Hex("1122334455667788"))
	require.NoError(t, err)
	assert.Equal(t, mac, viaMAC)
}

func TestMACPicksAlgorithmByKeyLength(t *testing.T) {
	data := tlv.Hex("00A4040000")

	des, err := MAC(data, tlv.Hex(k1), nil)
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("DF44D7A2"), des)

	_, err = MAC(data, tlv.Hex(k1+k2+k3), nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestMACDetectsEveryByteFlip(t *testing.T) {
	data := tlv.Hex("0000006400010100112233440000000000")
	key := tlv.Hex("FAC0380541D5CCE2")
	ref, err := DESMAC(data, key, nil, MACSize)
	require.NoError(t, err)

	for i := range data {
		flipped := append([]byte{}, data...)
		flipped[i] ^= 0x01
		mac, err := DESMAC(flipped, key, nil, MACSize)
		require.NoError(t, err)
		assert.NotEqual(t, ref, mac, "flip at %d", i)
	}
}

func TestMACArguments(t *testing.T) {
	_, err := DESMAC(nil, make([]byte, 16), nil, 4)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = DESMAC(nil, make([]byte, 8), make([]byte, 4), 4)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = DESMAC(nil, make([]byte, 8), nil, 9)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = TDESMAC(nil, make([]byte, 8), nil, 4)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestXORHalves(t *testing.T) {
	folded, err := XORHalves(tlv.Hex("0102030405060708 F0F0F0F0F0F0F0F0"))
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("F1F2F3F4F5F6F7F8"), folded)

	_, err = XORHalves(make([]byte, 8))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
