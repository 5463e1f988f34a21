package iso7816

import (
	"fmt"
)

// RECORD REFERENCE LOGIC:
// READ RECORD (B2), UPDATE RECORD (DC) and APPEND RECORD (E2) address a record file
// through P1/P2.
//
// P1: record number (00 = current record, unused by APPEND RECORD).
//
// P2 (Reference Control):
// - Bits 8-4: Short File Identifier (SFI). 0 means the current EF.
// - Bits 3-1: Mode. FMCOS uses '100' (P1 is a record number).

// RecordMode is the low 3 bits of P2.
type RecordMode byte

const (
	RecordByID       RecordMode = 0b000
	RecordByNumber   RecordMode = 0b100
	RecordAllFromP1  RecordMode = 0b101
	RecordAllToFirst RecordMode = 0b110
)

func (m RecordMode) String() string {
	switch m {
	case RecordByID:
		return "Ref ID: First Occurrence"
	case RecordByNumber:
		return "Ref Num: Record P1"
	case RecordAllFromP1:
		return "Ref Num: All from P1"
	case RecordAllToFirst:
		return "Ref Num: All from Last to P1"
	default:
		return fmt.Sprintf("Unknown Mode (0x%X)", byte(m))
	}
}

// RecordP2 builds (SFI << 3) | mode. Only the low 5 bits of sfi are used.
func RecordP2(sfi byte, mode RecordMode) byte {
	return (sfi&0x1F)<<3 | byte(mode)&0x07
}

// SFIFromP2 recovers the short file identifier of a record P2.
func SFIFromP2(p2 byte) byte {
	return p2 >> 3
}
