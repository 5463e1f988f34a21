package fmcos

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/fmcos/pkg/iso7816"
	"github.com/gregLibert/fmcos/pkg/tlv"
)

// encode serialises a command the way the session sends it.
func encode(t *testing.T, cmd *iso7816.CommandAPDU, err error) string {
	t.Helper()
	require.NoError(t, err)
	raw, err := cmd.Bytes()
	require.NoError(t, err)
	return tlv.Format(raw)
}

func ok(cmd *iso7816.CommandAPDU) (*iso7816.CommandAPDU, error) { return cmd, nil }

func TestCommandEncoding(t *testing.T) {
	record, _ := NewCryptoKey(KeyCredit, 0xF0, 0xF4, 0x05, 0x98, tlv.Hex("A9E6E145F5DF09500A58EEF8575D49DB"))

	tests := []struct {
		name string
		cmd  func() (*iso7816.CommandAPDU, error)
		want string
	}{
		{"select MF", func() (*iso7816.CommandAPDU, error) { return SelectCommand(tlv.Hex("3F00"), nil) },
			"00 A4 00 00 02 3F 00 00"},
		{"select by name", func() (*iso7816.CommandAPDU, error) { return SelectCommand(nil, []byte("1PAY.SYS.DDF01")) },
			"00 A4 04 00 0E 31 50 41 59 2E 53 59 53 2E 44 44 46 30 31"},
		{"get challenge", func() (*iso7816.CommandAPDU, error) { return GetChallengeCommand(4) },
			"00 84 00 00 04"},
		{"erase df", func() (*iso7816.CommandAPDU, error) { return ok(EraseDFCommand()) },
			"80 0E 00 00 00"},
		{"external auth", func() (*iso7816.CommandAPDU, error) {
			return ok(ExternalAuthCommand(0x00, tlv.Hex("91B1D91F7A290ED5")))
		}, "00 82 00 00 08 91 B1 D9 1F 7A 29 0E D5"},
		{"internal auth", func() (*iso7816.CommandAPDU, error) {
			return ok(InternalAuthCommand(0x00, 0x00, tlv.Hex("1122334455667788")))
		}, "00 88 00 00 08 11 22 33 44 55 66 77 88"},
		{"create directory", func() (*iso7816.CommandAPDU, error) {
			return CreateDirectoryCommand(DirectoryDescriptor{FileID: 0x3F00, Space: 0x0800, CreatePerm: 0xF0, ErasePerm: 0xF0, AppID: 0x01, Name: []byte("MF")})
		}, "80 E0 3F 00 0A 38 08 00 F0 F0 01 FF FF 4D 46"},
		{"create keyfile", func() (*iso7816.CommandAPDU, error) {
			return ok(CreateKeyFileCommand(KeyFileDescriptor{FileID: 0x0000, Space: 0x0200, DFSID: 0x95, KeyPerm: 0xF0}))
		}, "80 E0 00 00 07 3F 02 00 95 F0 FF FF"},
		{"create binary file", func() (*iso7816.CommandAPDU, error) {
			return CreateFileCommand(FileDescriptor{FileID: 0x0002, Type: FileBinary, Size: 0x0050, ReadPerm: 0xF0, WritePerm: 0xF0, Access: 0xFF})
		}, "80 E0 00 02 07 28 00 50 F0 F0 FF FF"},
		{"create protected record file", func() (*iso7816.CommandAPDU, error) {
			return CreateFileCommand(FileDescriptor{FileID: 0x0018, Type: FileVariableRecord, Size: 0x0100, ReadPerm: 0xF0, WritePerm: 0xF0, Access: 0xFF, Protection: ProtectEncryptMAC})
		}, "80 E0 00 18 07 EC 01 00 F0 F0 FF FF"},
		{"create wallet", func() (*iso7816.CommandAPDU, error) {
			return CreateWalletCommand(WalletDescriptor{Balance: Wallet, Usage: 0xF0, LoopFileID: 0x18})
		}, "80 E0 00 02 07 2F 02 08 F0 00 FF 18"},
		{"write key", func() (*iso7816.CommandAPDU, error) { return WriteKeyCommand(KeyAdd, 0x00, record, ProtectNone) },
			"80 D4 01 00 15 3F F0 F4 05 98 A9 E6 E1 45 F5 DF 09 50 0A 58 EE F8 57 5D 49 DB"},
		{"update binary", func() (*iso7816.CommandAPDU, error) { return UpdateBinaryCommand(0x82, 0x00, tlv.Hex("CAFE")) },
			"00 D6 82 00 02 CA FE"},
		{"update record", func() (*iso7816.CommandAPDU, error) { return UpdateRecordCommand(0x01, 0x18, tlv.Hex("AABB"), false) },
			"00 DC 01 C4 02 AA BB"},
		{"append wrapped record", func() (*iso7816.CommandAPDU, error) { return AppendRecordCommand(0x18, tlv.Hex("AABB"), true) },
			"00 E2 00 C4 04 F7 02 AA BB"},
		{"read binary", func() (*iso7816.CommandAPDU, error) { return ReadBinaryCommand(0x82, 0x00, 16) },
			"00 B0 82 00 10"},
		{"read binary 256", func() (*iso7816.CommandAPDU, error) { return ReadBinaryCommand(0, 0, 0) },
			"00 B0 00 00 00"},
		{"read wrapped record", func() (*iso7816.CommandAPDU, error) { return ReadRecordCommand(0x01, 0x18, 2, true) },
			"00 B2 01 C4 04"},
		{"get balance", func() (*iso7816.CommandAPDU, error) { return GetBalanceCommand(Passbook) },
			"80 5C 00 01 04"},
		{"verify pin", func() (*iso7816.CommandAPDU, error) { return VerifyPINCommand(0x01, tlv.Hex("123456")) },
			"00 20 00 01 03 12 34 56"},
		{"change pin", func() (*iso7816.CommandAPDU, error) {
			return ChangePINCommand(0x01, tlv.Hex("123456"), tlv.Hex("654321"))
		}, "80 5E 01 01 07 12 34 56 FF 65 43 21"},
		{"reset pin", func() (*iso7816.CommandAPDU, error) {
			return ResetPINCommand(0x01, tlv.Hex("123456"), tlv.Hex("FB487A6D1B7CBF1BF84C666B8338376E"))
		}, "80 5E 00 01 07 12 34 56 4A CA 0A BF"},
		{"card block", func() (*iso7816.CommandAPDU, error) { return ok(CardBlockCommand()) },
			"84 16 00 00 00"},
		{"app block", func() (*iso7816.CommandAPDU, error) { return ok(AppBlockCommand(BlockPermanent)) },
			"84 1E 00 01 00"},
		{"app unblock", func() (*iso7816.CommandAPDU, error) { return ok(AppUnblockCommand()) },
			"84 18 00 00 00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.cmd()
			assert.Equal(t, tt.want, encode(t, cmd, err))
		})
	}
}

func TestCommandPreconditions(t *testing.T) {
	tests := map[string]func() (*iso7816.CommandAPDU, error){
		"select with id and name": func() (*iso7816.CommandAPDU, error) { return SelectCommand(tlv.Hex("3F00"), []byte("MF")) },
		"select with nothing":     func() (*iso7816.CommandAPDU, error) { return SelectCommand(nil, nil) },
		"select 3-byte id":        func() (*iso7816.CommandAPDU, error) { return SelectCommand(tlv.Hex("3F0001"), nil) },
		"select 17-byte name":     func() (*iso7816.CommandAPDU, error) { return SelectCommand(nil, make([]byte, 17)) },
		"challenge of 6":          func() (*iso7816.CommandAPDU, error) { return GetChallengeCommand(6) },
		"directory name too long": func() (*iso7816.CommandAPDU, error) {
			return CreateDirectoryCommand(DirectoryDescriptor{Name: make([]byte, 17)})
		},
		"create wallet file type": func() (*iso7816.CommandAPDU, error) {
			return CreateFileCommand(FileDescriptor{Type: FileWallet})
		},
		"create with bad protection": func() (*iso7816.CommandAPDU, error) {
			return CreateFileCommand(FileDescriptor{Type: FileBinary, Protection: 0x40})
		},
		"wallet with bad balance": func() (*iso7816.CommandAPDU, error) {
			return CreateWalletCommand(WalletDescriptor{Balance: 3})
		},
		"update 246 bytes": func() (*iso7816.CommandAPDU, error) {
			return UpdateBinaryCommand(0, 0, make([]byte, MaxProtectedData+1))
		},
		"wrapped record over the limit": func() (*iso7816.CommandAPDU, error) {
			return UpdateRecordCommand(1, 1, make([]byte, MaxProtectedData-1), true)
		},
		"read 256": func() (*iso7816.CommandAPDU, error) { return ReadBinaryCommand(0, 0, 256) },
		"read negative": func() (*iso7816.CommandAPDU, error) {
			return ReadRecordCommand(1, 1, -3, false)
		},
		"balance of unknown purse": func() (*iso7816.CommandAPDU, error) { return GetBalanceCommand(0) },
		"PIN of one byte":          func() (*iso7816.CommandAPDU, error) { return VerifyPINCommand(0, []byte{1}) },
		"new PIN of 7 bytes": func() (*iso7816.CommandAPDU, error) {
			return ChangePINCommand(0, tlv.Hex("1234"), make([]byte, 7))
		},
		"reset with 8-byte key": func() (*iso7816.CommandAPDU, error) {
			return ResetPINCommand(0, tlv.Hex("1234"), make([]byte, 8))
		},
		"unblock PIN of 7 bytes": func() (*iso7816.CommandAPDU, error) { return UnblockPINCommand(0, make([]byte, 7)) },
	}
	for name, build := range tests {
		t.Run(name, func(t *testing.T) {
			cmd, err := build()
			assert.Nil(t, cmd)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestUpdateAcceptsLargestProtectedPayload(t *testing.T) {
	cmd, err := UpdateBinaryCommand(0, 0, bytes.Repeat([]byte{0x11}, MaxProtectedData))
	require.NoError(t, err)

	protected, err := ProtectCommand(cmd, LineProtection{Mode: ProtectEncryptMAC, Key: testLineKey}, tlv.Hex(testChallenge))
	require.NoError(t, err)
	raw, err := protected.Bytes()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tlv.Format(raw), "04 D6 00 00 FC"), "246 bytes pad to 248 plus the MAC")
}
