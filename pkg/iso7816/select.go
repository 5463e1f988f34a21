package iso7816

import (
	"encoding/binary"
	"fmt"
)

// SELECT COMMAND LOGIC:
// The SELECT command (INS 'A4') makes a file (MF, DF or EF) current.
//
// FMCOS supports two selection methods (P1):
// - 0x00: by 2-byte file identifier, sent as data. The card answers with its FCI, so Le=00 is requested.
// - 0x04: by DF name (the application name given at CREATE DIRECTORY time), sent as data, no Le.
//
// P2 is always 0x00 (first or only occurrence, return FCI).

// SelectionMethod defines how the file is targeted (P1).
type SelectionMethod byte

const (
	SelectByFileID SelectionMethod = 0x00
	SelectByDFName SelectionMethod = 0x04
)

func (s SelectionMethod) String() string {
	switch s {
	case SelectByFileID:
		return "Select by File ID"
	case SelectByDFName:
		return "Select by DF Name"
	default:
		return fmt.Sprintf("Unknown Method (0x%02X)", byte(s))
	}
}

// MasterFileID is the identifier of the MF.
const MasterFileID uint16 = 0x3F00

// SelectFile creates a SELECT by file identifier.
func SelectFile(fileID uint16) *CommandAPDU {
	data := binary.BigEndian.AppendUint16(nil, fileID)
	return NewCommandAPDU(ClassInterindustry, INS_SELECT, byte(SelectByFileID), 0x00, data, MaxShortLe)
}

// SelectName creates a SELECT by DF name.
func SelectName(name []byte) *CommandAPDU {
	return NewCommandAPDU(ClassInterindustry, INS_SELECT, byte(SelectByDFName), 0x00, name, 0)
}
