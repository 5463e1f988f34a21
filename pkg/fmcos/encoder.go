package fmcos

import (
	"encoding/binary"

	"github.com/gregLibert/fmcos/pkg/iso7816"
	"github.com/gregLibert/fmcos/pkg/tlv"
)

const (
	// MaxProtectedData is the largest clear data field that still fits once padding and
	// the MAC are added.
	MaxProtectedData = 245
	// MaxReadLength is the largest Le of READ BINARY / READ RECORD.
	MaxReadLength = 255
	// TerminalIDSize is the length of the terminal id in purse commands.
	TerminalIDSize = 6
)

// DirectoryDescriptor is the CREATE FILE payload of an MF or DF.
type DirectoryDescriptor struct {
	FileID     uint16
	Space      uint16
	CreatePerm byte
	ErasePerm  byte
	AppID      byte
	Name       []byte
}

// KeyFileDescriptor is the CREATE FILE payload of a key file.
type KeyFileDescriptor struct {
	FileID  uint16
	Space   uint16
	DFSID   byte
	KeyPerm byte
}

// FileDescriptor is the CREATE FILE payload of a binary, record or loop file.
type FileDescriptor struct {
	FileID     uint16
	Type       FileType
	Size       uint16
	ReadPerm   byte
	WritePerm  byte
	Access     byte
	Protection Protection
}

// WalletDescriptor is the CREATE FILE payload of an EDEP. The balance type is the
// file id.
type WalletDescriptor struct {
	Balance    BalanceType
	Usage      byte
	LoopFileID byte
}

func fileIDParams(id uint16) (byte, byte) {
	return byte(id >> 8), byte(id)
}

func createFile(id uint16, data []byte) *iso7816.CommandAPDU {
	p1, p2 := fileIDParams(id)
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_CREATE_FILE, p1, p2, data, 0)
}

// SelectCommand selects by 2-byte file id or by DF name. Exactly one must be given.
func SelectCommand(fileID, name []byte) (*iso7816.CommandAPDU, error) {
	switch {
	case fileID != nil && name != nil:
		return nil, invalidf("SELECT takes a file id or a name, not both")
	case name != nil:
		if len(name) == 0 || len(name) > 16 {
			return nil, invalidf("DF name must be 1 to 16 bytes, got %d", len(name))
		}
		return iso7816.SelectName(name), nil
	case fileID != nil:
		if len(fileID) != 2 {
			return nil, invalidf("file id must be 2 bytes, got %d", len(fileID))
		}
		return iso7816.SelectFile(binary.BigEndian.Uint16(fileID)), nil
	}
	return nil, invalidf("SELECT needs a file id or a name")
}

// GetChallengeCommand asks for a 4 or 8 byte challenge.
func GetChallengeCommand(n int) (*iso7816.CommandAPDU, error) {
	if n != 4 && n != 8 {
		return nil, invalidf("challenge length must be 4 or 8, got %d", n)
	}
	return iso7816.NewCommandAPDU(iso7816.ClassInterindustry, iso7816.INS_GET_CHALLENGE, 0, 0, nil, n), nil
}

// EraseDFCommand erases the current DF.
func EraseDFCommand() *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_ERASE_DF, 0, 0, nil, 0)
}

// ExternalAuthCommand carries the challenge encrypted by the host.
func ExternalAuthCommand(keyID byte, cryptogram []byte) *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(iso7816.ClassInterindustry, iso7816.INS_EXTERNAL_AUTHENTICATE, 0, keyID, cryptogram, 0)
}

// InternalAuthCommand is a passthrough.
func InternalAuthCommand(p1, p2 byte, data []byte) *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(iso7816.ClassInterindustry, iso7816.INS_INTERNAL_AUTHENTICATE, p1, p2, data, 0)
}

// CreateDirectoryCommand: 38 space(2) create erase appid FFFF name.
func CreateDirectoryCommand(d DirectoryDescriptor) (*iso7816.CommandAPDU, error) {
	if len(d.Name) > 16 {
		return nil, invalidf("DF name must be at most 16 bytes, got %d", len(d.Name))
	}
	data := []byte{byte(FileDirectory)}
	data = binary.BigEndian.AppendUint16(data, d.Space)
	data = append(data, d.CreatePerm, d.ErasePerm, d.AppID, 0xFF, 0xFF)
	data = append(data, d.Name...)
	return createFile(d.FileID, data), nil
}

// CreateKeyFileCommand: 3F space(2) sid perm FFFF.
func CreateKeyFileCommand(k KeyFileDescriptor) *iso7816.CommandAPDU {
	data := []byte{byte(FileKeyfile)}
	data = binary.BigEndian.AppendUint16(data, k.Space)
	data = append(data, k.DFSID, k.KeyPerm, 0xFF, 0xFF)
	return createFile(k.FileID, data)
}

// CreateFileCommand: type|protection size(2) read write FF access.
func CreateFileCommand(f FileDescriptor) (*iso7816.CommandAPDU, error) {
	switch f.Type {
	case FileBinary, FileFixedRecord, FileVariableRecord, FileLoop:
	default:
		return nil, invalidf("CREATE FILE does not build %s files", f.Type)
	}
	if f.Protection != ProtectNone && f.Protection != ProtectMAC && f.Protection != ProtectEncryptMAC {
		return nil, invalidf("unknown protection %s", f.Protection)
	}
	data := []byte{byte(f.Type) | byte(f.Protection)}
	data = binary.BigEndian.AppendUint16(data, f.Size)
	data = append(data, f.ReadPerm, f.WritePerm, 0xFF, f.Access)
	return createFile(f.FileID, data), nil
}

// CreateWalletCommand: 2F 0208 usage 00FF loop-file.
func CreateWalletCommand(w WalletDescriptor) (*iso7816.CommandAPDU, error) {
	if w.Balance != Passbook && w.Balance != Wallet {
		return nil, invalidf("unknown balance type %s", w.Balance)
	}
	data := []byte{byte(FileWallet), 0x02, 0x08, w.Usage, 0x00, 0xFF, w.LoopFileID}
	return createFile(uint16(w.Balance), data), nil
}

// WriteKeyCommand builds the clear WRITE KEY command. With protection the type byte
// and CLA already carry the protection bits; the data field still has to go through
// ProtectCommand.
func WriteKeyCommand(mode, keyID byte, rec KeyRecord, prot Protection) (*iso7816.CommandAPDU, error) {
	data, err := EncodeKeyRecord(rec, prot)
	if err != nil {
		return nil, err
	}
	cla := iso7816.ClassProprietary
	if prot != ProtectNone {
		cla = cla.WithLineProtection()
	}
	return iso7816.NewCommandAPDU(cla, iso7816.INS_WRITE_KEY, mode, keyID, data, 0), nil
}

// UpdateBinaryCommand writes data at the offset carried by P1/P2.
func UpdateBinaryCommand(p1, p2 byte, data []byte) (*iso7816.CommandAPDU, error) {
	return updateCommand(iso7816.INS_UPDATE_BINARY, p1, p2, data)
}

// UpdateRecordCommand rewrites a record of the file with the given SFI.
func UpdateRecordCommand(record, sfi byte, data []byte, wrap bool) (*iso7816.CommandAPDU, error) {
	data, err := recordData(data, wrap)
	if err != nil {
		return nil, err
	}
	return updateCommand(iso7816.INS_UPDATE_RECORD, record, iso7816.RecordP2(sfi, iso7816.RecordByNumber), data)
}

// AppendRecordCommand appends a record to the file with the given SFI.
func AppendRecordCommand(sfi byte, data []byte, wrap bool) (*iso7816.CommandAPDU, error) {
	data, err := recordData(data, wrap)
	if err != nil {
		return nil, err
	}
	return updateCommand(iso7816.INS_APPEND_RECORD, 0, iso7816.RecordP2(sfi, iso7816.RecordByNumber), data)
}

func recordData(data []byte, wrap bool) ([]byte, error) {
	if !wrap {
		return data, nil
	}
	wrapped, err := tlv.WrapRecord(data)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	return wrapped, nil
}

func updateCommand(ins iso7816.InsCode, p1, p2 byte, data []byte) (*iso7816.CommandAPDU, error) {
	if len(data) > MaxProtectedData {
		return nil, invalidf("data is %d bytes, at most %d fit", len(data), MaxProtectedData)
	}
	return iso7816.NewCommandAPDU(iso7816.ClassInterindustry, ins, p1, p2, data, 0), nil
}

// ReadBinaryCommand reads length bytes. A length of 0 asks for 256 (Le 00).
func ReadBinaryCommand(p1, p2 byte, length int) (*iso7816.CommandAPDU, error) {
	return readCommand(iso7816.INS_READ_BINARY, p1, p2, length)
}

// ReadRecordCommand reads a record of the file with the given SFI. TLV records need
// two more bytes for the F7 header.
func ReadRecordCommand(record, sfi byte, length int, wrapped bool) (*iso7816.CommandAPDU, error) {
	if wrapped {
		length += 2
	}
	return readCommand(iso7816.INS_READ_RECORD, record, iso7816.RecordP2(sfi, iso7816.RecordByNumber), length)
}

func readCommand(ins iso7816.InsCode, p1, p2 byte, length int) (*iso7816.CommandAPDU, error) {
	if length < 0 || length > MaxReadLength {
		return nil, invalidf("read length must be 0 to %d, got %d", MaxReadLength, length)
	}
	ne := length
	if ne == 0 {
		ne = iso7816.MaxShortLe
	}
	return iso7816.NewCommandAPDU(iso7816.ClassInterindustry, ins, p1, p2, nil, ne), nil
}

// GetBalanceCommand reads the 4-byte balance of a purse.
func GetBalanceCommand(b BalanceType) (*iso7816.CommandAPDU, error) {
	if b != Passbook && b != Wallet {
		return nil, invalidf("unknown balance type %s", b)
	}
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_GET_BALANCE, 0, byte(b), nil, 4), nil
}

// VerifyPINCommand presents a PIN.
func VerifyPINCommand(keyID byte, pin []byte) (*iso7816.CommandAPDU, error) {
	if err := checkPIN(pin); err != nil {
		return nil, err
	}
	return iso7816.NewCommandAPDU(iso7816.ClassInterindustry, iso7816.INS_VERIFY, 0, keyID, pin, 0), nil
}

// ChangePINCommand: old FF new.
func ChangePINCommand(keyID byte, oldPIN, newPIN []byte) (*iso7816.CommandAPDU, error) {
	if err := checkPIN(oldPIN); err != nil {
		return nil, err
	}
	if err := checkPIN(newPIN); err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(oldPIN)+1+len(newPIN))
	data = append(data, oldPIN...)
	data = append(data, 0xFF)
	data = append(data, newPIN...)
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_CHANGE_PIN, 0x01, keyID, data, 0), nil
}

// ResetPINCommand: new PIN followed by its DES MAC under the folded change-PIN key.
func ResetPINCommand(keyID byte, newPIN, changePINKey []byte) (*iso7816.CommandAPDU, error) {
	if err := checkPIN(newPIN); err != nil {
		return nil, err
	}
	macKey, err := XORHalves(changePINKey)
	if err != nil {
		return nil, err
	}
	mac, err := DESMAC(newPIN, macKey, nil, MACSize)
	if err != nil {
		return nil, err
	}
	data := append(append([]byte{}, newPIN...), mac...)
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_CHANGE_PIN, 0x00, keyID, data, 0), nil
}

// UnblockPINCommand builds the clear PIN UNBLOCK header; the data field is the
// encrypted PIN and is produced by ProtectCommand.
func UnblockPINCommand(keyID byte, pin []byte) (*iso7816.CommandAPDU, error) {
	if err := checkPIN(pin); err != nil {
		return nil, err
	}
	return iso7816.NewCommandAPDU(iso7816.ClassProprietaryProtected, iso7816.INS_PIN_UNBLOCK, keyID, 0, pin, 0), nil
}

// CardBlockCommand, AppBlockCommand and AppUnblockCommand carry no data of their own;
// the MAC is appended by ProtectCommand.
func CardBlockCommand() *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(iso7816.ClassProprietaryProtected, iso7816.INS_CARD_BLOCK, 0, 0, nil, 0)
}

func AppBlockCommand(mode BlockMode) *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(iso7816.ClassProprietaryProtected, iso7816.INS_APPLICATION_BLOCK, 0, byte(mode), nil, 0)
}

func AppUnblockCommand() *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(iso7816.ClassProprietaryProtected, iso7816.INS_APPLICATION_UNBLOCK, 0, 0, nil, 0)
}
