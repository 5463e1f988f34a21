package fmcos

import (
	"encoding/binary"

	"github.com/gregLibert/fmcos/pkg/iso7816"
	"github.com/gregLibert/fmcos/pkg/tlv"
)

// Select selects by 2-byte file id or by DF name; exactly one must be non-nil.
func (s *Session) Select(fileID, name []byte) (*SelectResult, error) {
	cmd, err := SelectCommand(fileID, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trace, err := s.exchange("select", cmd, false)
	if err != nil {
		return nil, err
	}
	res := &SelectResult{Trace: trace}
	resp := trace.Response()
	if !resp.Status.IsSuccess() {
		return res, &CardStatusError{Op: "select", Status: resp.Status}
	}
	res.Info, err = ParseSelectResponse(resp.Data)
	if err != nil {
		s.log.Debug().Err(err).Hex("fci", resp.Data).Msg("select response decoded partially")
	}
	if s.cfg.Debug && res.Info.DFName() != nil {
		s.log.Debug().
			Str("df_name", tlv.MakeSafeASCII(res.Info.DFName())).
			Hex("control", res.Info.ControlMessage()).
			Msg("selected DF")
	}
	return res, nil
}

// SelectFile selects by file id.
func (s *Session) SelectFile(id uint16) (*SelectResult, error) {
	return s.Select(binary.BigEndian.AppendUint16(nil, id), nil)
}

// SelectName selects a DF by name.
func (s *Session) SelectName(name []byte) (*SelectResult, error) {
	return s.Select(nil, name)
}

// GetChallenge returns an n-byte challenge (4 or 8) extended with zeros to 8 bytes,
// ready to serve as a MAC IV.
func (s *Session) GetChallenge(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getChallenge("get challenge", n)
}

// EraseDF erases the current DF.
func (s *Session) EraseDF() (*iso7816.ResponseAPDU, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run("erase df", EraseDFCommand())
}

// ExternalAuthenticate proves knowledge of an 8 or 16 byte key by encrypting a fresh
// 8-byte challenge.
func (s *Session) ExternalAuthenticate(keyID byte, key []byte) (*iso7816.ResponseAPDU, error) {
	if len(key) != 8 && len(key) != 16 {
		return nil, invalidf("external authentication key must be 8 or 16 bytes, got %d", len(key))
	}
	c, err := SelectCipher(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, err := s.getChallenge("external authenticate", 8)
	if err != nil {
		return nil, err
	}
	cryptogram, err := c.Encrypt(challenge)
	if err != nil {
		return nil, err
	}
	return s.runOnce("external authenticate", ExternalAuthCommand(keyID, cryptogram))
}

// InternalAuthenticate passes data through to the card.
func (s *Session) InternalAuthenticate(p1, p2 byte, data []byte) (*iso7816.ResponseAPDU, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run("internal authenticate", InternalAuthCommand(p1, p2, data))
}

// CreateDirectory creates an MF or DF.
func (s *Session) CreateDirectory(d DirectoryDescriptor) (*iso7816.ResponseAPDU, error) {
	cmd, err := CreateDirectoryCommand(d)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run("create directory", cmd)
}

// CreateKeyFile creates the key file of the current DF.
func (s *Session) CreateKeyFile(k KeyFileDescriptor) (*iso7816.ResponseAPDU, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run("create keyfile", CreateKeyFileCommand(k))
}

// CreateFile creates a binary, record or loop file.
func (s *Session) CreateFile(f FileDescriptor) (*iso7816.ResponseAPDU, error) {
	cmd, err := CreateFileCommand(f)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run("create file", cmd)
}

// CreateWallet creates a passbook or wallet EDEP.
func (s *Session) CreateWallet(w WalletDescriptor) (*iso7816.ResponseAPDU, error) {
	cmd, err := CreateWalletCommand(w)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run("create wallet", cmd)
}

// WriteKey installs (mode KeyAdd) or updates a key. With protection, lineKey is the
// key the card checks the MAC with, usually the external authentication key.
func (s *Session) WriteKey(mode, keyID byte, rec KeyRecord, prot Protection, lineKey []byte) (*iso7816.ResponseAPDU, error) {
	cmd, err := WriteKeyCommand(mode, keyID, rec, prot)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, _, err := s.protected("write key", cmd, LineProtection{Mode: prot, Key: lineKey})
	return resp, err
}

// UpdateBinary writes data at the offset carried by P1/P2.
func (s *Session) UpdateBinary(p1, p2 byte, data []byte, lp LineProtection) (*iso7816.ResponseAPDU, error) {
	cmd, err := UpdateBinaryCommand(p1, p2, data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, _, err := s.protected("update binary", cmd, lp)
	return resp, err
}

// UpdateRecord rewrites a record. wrap stores the data inside an F7 TLV.
func (s *Session) UpdateRecord(record, sfi byte, data []byte, wrap bool, lp LineProtection) (*iso7816.ResponseAPDU, error) {
	cmd, err := UpdateRecordCommand(record, sfi, data, wrap)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, _, err := s.protected("update record", cmd, lp)
	return resp, err
}

// AppendRecord appends a record. wrap stores the data inside an F7 TLV.
func (s *Session) AppendRecord(sfi byte, data []byte, wrap bool, lp LineProtection) (*iso7816.ResponseAPDU, error) {
	cmd, err := AppendRecordCommand(sfi, data, wrap)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, _, err := s.protected("append record", cmd, lp)
	return resp, err
}

// ReadBinary reads length bytes. Protected reads are MAC checked and, in encrypt
// mode, deciphered; the returned data never includes the MAC.
func (s *Session) ReadBinary(p1, p2 byte, length int, lp LineProtection) ([]byte, error) {
	cmd, err := ReadBinaryCommand(p1, p2, length)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read("read binary", cmd, lp)
}

// ReadRecord reads a record. wrapped records lose their F7 header.
func (s *Session) ReadRecord(record, sfi byte, length int, wrapped bool, lp LineProtection) ([]byte, error) {
	cmd, err := ReadRecordCommand(record, sfi, length, wrapped)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read("read record", cmd, lp)
	if err != nil || !wrapped || s.cfg.Simulation {
		return data, err
	}
	value, err := tlv.UnwrapRecord(data)
	if err != nil {
		return nil, &ProtocolError{Op: "read record", Reason: err.Error()}
	}
	return value, nil
}

func (s *Session) read(op string, cmd *iso7816.CommandAPDU, lp LineProtection) ([]byte, error) {
	resp, iv, err := s.protected(op, cmd, lp)
	if err != nil {
		return nil, err
	}
	if !lp.Enabled() || s.cfg.Simulation {
		return resp.Data, nil
	}
	return UnprotectResponse(op, resp.Data, lp, iv)
}

// GetBalance reads a purse balance.
func (s *Session) GetBalance(b BalanceType) (uint32, error) {
	cmd, err := GetBalanceCommand(b)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.run("get balance", cmd)
	if err != nil {
		return 0, err
	}
	if len(resp.Data) != 4 {
		return 0, &ProtocolError{Op: "get balance", Reason: "balance is not 4 bytes"}
	}
	return binary.BigEndian.Uint32(resp.Data), nil
}

// VerifyPIN presents a PIN. On 63Cx the response is returned with the error so the
// caller can read the remaining tries.
func (s *Session) VerifyPIN(keyID byte, pin []byte) (*iso7816.ResponseAPDU, error) {
	cmd, err := VerifyPINCommand(keyID, pin)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run("verify pin", cmd)
}

// ChangePIN replaces a PIN knowing the old one.
func (s *Session) ChangePIN(keyID byte, oldPIN, newPIN []byte) (*iso7816.ResponseAPDU, error) {
	cmd, err := ChangePINCommand(keyID, oldPIN, newPIN)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run("change pin", cmd)
}

// ResetPIN sets a new PIN with the change-PIN key.
func (s *Session) ResetPIN(keyID byte, newPIN, changePINKey []byte) (*iso7816.ResponseAPDU, error) {
	if len(changePINKey) != 16 {
		return nil, invalidf("change PIN key must be 16 bytes, got %d", len(changePINKey))
	}
	cmd, err := ResetPINCommand(keyID, newPIN, changePINKey)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runOnce("reset pin", cmd)
}

// UnblockPIN restores a blocked PIN with the unlock-PIN key. The PIN travels
// encrypted and MACed.
func (s *Session) UnblockPIN(keyID byte, pin, unlockKey []byte) (*iso7816.ResponseAPDU, error) {
	cmd, err := UnblockPINCommand(keyID, pin)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, _, err := s.protected("unblock pin", cmd, LineProtection{Mode: ProtectEncryptMAC, Key: unlockKey})
	return resp, err
}

// CardBlock blocks the whole card for good.
func (s *Session) CardBlock(lineKey []byte) (*iso7816.ResponseAPDU, error) {
	return s.macOnly("card block", CardBlockCommand(), lineKey)
}

// AppBlock blocks the current application.
func (s *Session) AppBlock(mode BlockMode, lineKey []byte) (*iso7816.ResponseAPDU, error) {
	if mode != BlockTemporary && mode != BlockPermanent {
		return nil, invalidf("unknown block mode 0x%02X", byte(mode))
	}
	return s.macOnly("application block", AppBlockCommand(mode), lineKey)
}

// AppUnblock lifts a temporary application block.
func (s *Session) AppUnblock(lineKey []byte) (*iso7816.ResponseAPDU, error) {
	return s.macOnly("application unblock", AppUnblockCommand(), lineKey)
}

func (s *Session) macOnly(op string, cmd *iso7816.CommandAPDU, lineKey []byte) (*iso7816.ResponseAPDU, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, _, err := s.protected(op, cmd, LineProtection{Mode: ProtectMAC, Key: lineKey})
	return resp, err
}
