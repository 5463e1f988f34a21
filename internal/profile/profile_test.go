package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const walletYAML = `
terminal: "66 66 66 66 66 66"
key_id: 0
application:
  file_id: 0x3F01
  space: 0x1500
  create_perm: 0xF0
  erase_perm: 0xF0
  app_id: 0x95
  name: walletTest
  keyfile:
    file_id: 0x0000
    space: 0x0200
    sid: 0x95
    perm: 0xF0
  loop_files:
    wallet: 0x18
    passbook: 0x19
    size: 0x0517
pin:
  key_id: 0
  value: "123456"
  error_counter: 0x33
keys:
  external_auth: F49DC1BA1B4DEB52647186BC59106C0D
  internal: 2B8A438742C851566F02D881B09D58C0
  line_protection: 8A021972BFEC9D152CA9EB82D7D12C09
  unlock_pin: D8F60FA2D791F3A658D27C05458243ED
  change_pin: FB487A6D1B7CBF1BF84C666B8338376E
  purchase: EB18CE6986C820970E876219052CE0CF
  credit: A9E6E145F5DF09500A58EEF8575D49DB
  debit: 97FB4EDA4B5237035946EE62D325D909
  overdraft: 94F63C4FAE5E4977D749928AD12BC128
  des_encrypt: C4608B786AF1992343E91A076670AE7C
  des_decrypt: B8D4190C76856901FC686F36AB9B1CE0
  des_mac: 46A3EA8B254EE2749CC681050FD0DBCC
`

func TestParseMatchesDefault(t *testing.T) {
	p, err := Parse([]byte(walletYAML))
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fmcos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(walletYAML), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3F01), p.Application.FileID)
	assert.Equal(t, HexBytes{0x12, 0x34, 0x56}, p.PIN.Value)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarshalRoundTrip(t *testing.T) {
	content, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(content), "credit: A9E6E145F5DF09500A58EEF8575D49DB")

	p, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(string) string
		wantErr string
	}{
		{
			name:    "unknown field",
			edit:    func(s string) string { return s + "extra: 1\n" },
			wantErr: "field extra not found",
		},
		{
			name:    "bad hex",
			edit:    func(s string) string { return strings.Replace(s, `value: "123456"`, `value: "12345G"`, 1) },
			wantErr: "is not hex",
		},
		{
			name:    "short terminal",
			edit:    func(s string) string { return strings.Replace(s, `"66 66 66 66 66 66"`, `"66 66"`, 1) },
			wantErr: "profile.terminal must be 6 bytes",
		},
		{
			name:    "long PIN",
			edit:    func(s string) string { return strings.Replace(s, `value: "123456"`, `value: "12345678901234"`, 1) },
			wantErr: "profile.pin.value",
		},
		{
			name: "8-byte credit key",
			edit: func(s string) string {
				return strings.Replace(s, "credit: A9E6E145F5DF09500A58EEF8575D49DB", "credit: A9E6E145F5DF0950", 1)
			},
			wantErr: "profile.keys.credit must be 16 bytes",
		},
		{
			name: "odd line protection key",
			edit: func(s string) string {
				return strings.Replace(s, "line_protection: 8A021972BFEC9D152CA9EB82D7D12C09", "line_protection: 8A0219", 1)
			},
			wantErr: "profile.keys.line_protection must be 8 or 16 bytes",
		},
		{
			name:    "name too long",
			edit:    func(s string) string { return strings.Replace(s, "name: walletTest", "name: walletTestWalletTest", 1) },
			wantErr: "profile.application.name",
		},
		{
			name:    "file id overflow",
			edit:    func(s string) string { return strings.Replace(s, "file_id: 0x3F01", "file_id: 0x13F01", 1) },
			wantErr: "parse profile yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.edit(walletYAML)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptionalDESKeys(t *testing.T) {
	var kept []string
	for _, line := range strings.Split(walletYAML, "\n") {
		if strings.Contains(line, "des_") {
			continue
		}
		kept = append(kept, line)
	}

	p, err := Parse([]byte(strings.Join(kept, "\n")))
	require.NoError(t, err)
	assert.Empty(t, p.Keys.DESMAC)
}
