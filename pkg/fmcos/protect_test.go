package fmcos

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/fmcos/pkg/iso7816"
	"github.com/gregLibert/fmcos/pkg/tlv"
)

func TestProtectCommand(t *testing.T) {
	iv := tlv.Hex(testChallenge)
	update := func() *iso7816.CommandAPDU {
		cmd, err := UpdateBinaryCommand(0x00, 0x00, tlv.Hex("CAFE"))
		require.NoError(t, err)
		return cmd
	}

	tests := []struct {
		name string
		cmd  *iso7816.CommandAPDU
		lp   LineProtection
		want string
	}{
		{"MAC", update(), LineProtection{ProtectMAC, testLineKey},
			"04 D6 00 00 06 CA FE E6 B5 4D 3D"},
		{"MAC with single DES key", update(), LineProtection{ProtectMAC, tlv.Hex(k1)},
			"04 D6 00 00 06 CA FE 11 57 CE B8"},
		{"encrypt and MAC", update(), LineProtection{ProtectEncryptMAC, testLineKey},
			"04 D6 00 00 0C 58 FA A8 5C A5 58 B5 8B C8 1D DE 99"},
		{"no data", AppBlockCommand(BlockPermanent), LineProtection{ProtectEncryptMAC, testLineKey},
			"84 1E 00 01 04 91 9D 8F 5D"},
		{"none", update(), LineProtection{},
			"00 D6 00 00 02 CA FE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tlv.Format(tt.cmd.Data)
			got, err := ProtectCommand(tt.cmd, tt.lp, iv)
			assert.Equal(t, tt.want, encode(t, got, err))
			assert.Equal(t, before, tlv.Format(tt.cmd.Data), "input command left untouched")
		})
	}
}

func TestProtectCommandRejectsKey(t *testing.T) {
	cmd := CardBlockCommand()
	_, err := ProtectCommand(cmd, LineProtection{Mode: ProtectMAC, Key: make([]byte, 24)}, tlv.Hex(testChallenge))
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = ProtectCommand(cmd, LineProtection{Mode: 0x40, Key: testLineKey}, tlv.Hex(testChallenge))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestPacketMAC(t *testing.T) {
	mac, err := PacketMAC([4]byte{0x04, 0xB0, 0x00, 0x00}, nil, tlv.Hex(testChallenge), testLineKey)
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("7CCACC89"), mac)
}

func TestUnprotectResponse(t *testing.T) {
	iv := tlv.Hex(testChallenge)

	t.Run("MAC", func(t *testing.T) {
		data, err := UnprotectResponse("read", tlv.Hex("68656C6C6F 9E089DF1"), LineProtection{ProtectMAC, testLineKey}, iv)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("encrypt and MAC", func(t *testing.T) {
		data, err := UnprotectResponse("read", tlv.Hex("9EAF3CB758AC8322 D712948F"), LineProtection{ProtectEncryptMAC, testLineKey}, iv)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("flipped MAC", func(t *testing.T) {
		_, err := UnprotectResponse("read", tlv.Hex("68656C6C6F 9E089DF0"), LineProtection{ProtectMAC, testLineKey}, iv)
		var ie *IntegrityError
		require.True(t, errors.As(err, &ie), "got %v", err)
		assert.Equal(t, "response MAC", ie.Check)
		assert.Equal(t, tlv.Hex("9E089DF1"), ie.Expected)
		assert.Equal(t, tlv.Hex("9E089DF0"), ie.Actual)
	})

	t.Run("flipped data", func(t *testing.T) {
		_, err := UnprotectResponse("read", tlv.Hex("68656C6C6E 9E089DF1"), LineProtection{ProtectMAC, testLineKey}, iv)
		var ie *IntegrityError
		assert.True(t, errors.As(err, &ie))
	})

	t.Run("shorter than a MAC", func(t *testing.T) {
		_, err := UnprotectResponse("read", tlv.Hex("0102"), LineProtection{ProtectMAC, testLineKey}, iv)
		var pe *ProtocolError
		assert.True(t, errors.As(err, &pe))
	})

	t.Run("unprotected", func(t *testing.T) {
		data, err := UnprotectResponse("read", tlv.Hex("0102"), LineProtection{}, nil)
		require.NoError(t, err)
		assert.Equal(t, tlv.Hex("0102"), data)
	})
}
