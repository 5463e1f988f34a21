package fmcos

import (
	"bytes"

	"github.com/gregLibert/fmcos/pkg/iso7816"
)

// LINE PROTECTION:
// A protected command carries CLA bit 0x04 and ends with a 4-byte MAC computed over
//
//	CLA INS P1 P2 Lc' data        Lc' = len(data)+4, or 04 when there is no data
//
// chained from a fresh 8-byte challenge. In encrypt mode the data is first replaced by
// ENC(len || data) under the same key. Responses mirror this: the MAC closes the data
// field and, in encrypt mode, the rest is ENC(len || data).

// LineProtection pairs a protection mode with its key. The zero value is no protection.
type LineProtection struct {
	Mode Protection
	Key  []byte
}

// Enabled reports whether a MAC is involved.
func (lp LineProtection) Enabled() bool {
	return lp.Mode != ProtectNone
}

func (lp LineProtection) check() error {
	switch lp.Mode {
	case ProtectNone:
		return nil
	case ProtectMAC, ProtectEncryptMAC:
	default:
		return invalidf("unknown protection %s", lp.Mode)
	}
	if len(lp.Key) != 8 && len(lp.Key) != 16 {
		return invalidf("line protection key must be 8 or 16 bytes, got %d", len(lp.Key))
	}
	return nil
}

// PacketMAC is the MAC of a command header and its data. An empty data field MACs as
// a bare header with Lc' = 4.
func PacketMAC(header [4]byte, data, iv, key []byte) ([]byte, error) {
	buf := make([]byte, 0, 5+len(data))
	buf = append(buf, header[:]...)
	buf = append(buf, byte(len(data)+MACSize))
	buf = append(buf, data...)
	return MAC(buf, key, iv)
}

// ProtectCommand returns a copy of cmd with the protected CLA and data field. A command
// without data is only MACed, whatever the mode.
func ProtectCommand(cmd *iso7816.CommandAPDU, lp LineProtection, iv []byte) (*iso7816.CommandAPDU, error) {
	if err := lp.check(); err != nil {
		return nil, err
	}
	out := *cmd
	if !lp.Enabled() {
		return &out, nil
	}
	out.Class = cmd.Class.WithLineProtection()

	data := cmd.Data
	if lp.Mode == ProtectEncryptMAC && len(data) > 0 {
		plain := make([]byte, 0, len(data)+1)
		plain = append(plain, byte(len(data)))
		plain = append(plain, data...)

		var err error
		if data, err = Encrypt(plain, lp.Key); err != nil {
			return nil, err
		}
	}

	mac, err := PacketMAC(out.Header(), data, iv, lp.Key)
	if err != nil {
		return nil, err
	}
	out.Data = append(append([]byte{}, data...), mac...)
	return &out, nil
}

// UnprotectResponse checks the trailing MAC of a response data field and, in encrypt
// mode, deciphers what precedes it.
func UnprotectResponse(op string, data []byte, lp LineProtection, iv []byte) ([]byte, error) {
	if err := lp.check(); err != nil {
		return nil, err
	}
	if !lp.Enabled() {
		return data, nil
	}
	if len(data) < MACSize {
		return nil, &ProtocolError{Op: op, Reason: "protected response shorter than its MAC"}
	}

	msg, cardMAC := data[:len(data)-MACSize], data[len(data)-MACSize:]
	expected, err := MAC(msg, lp.Key, iv)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(expected, cardMAC) {
		return nil, &IntegrityError{Op: op, Check: "response MAC", Expected: expected, Actual: cardMAC}
	}

	if lp.Mode != ProtectEncryptMAC {
		return msg, nil
	}

	plain, err := Decrypt(msg, lp.Key)
	if err != nil {
		return nil, &ProtocolError{Op: op, Reason: "cannot decipher response: " + err.Error()}
	}
	if len(plain) == 0 || int(plain[0]) > len(plain)-1 {
		return nil, &ProtocolError{Op: op, Reason: "deciphered length byte out of range"}
	}
	return plain[1 : 1+int(plain[0])], nil
}
