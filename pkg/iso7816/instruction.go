package iso7816

import (
	"fmt"
)

// Instruction Byte (INS).
//
// The INS byte identifies the command to be performed by the card. FMCOS reuses the
// ISO/IEC 7816-4 codes for file access and authentication, and defines its own codes
// in the 0x50-0x5E range for the electronic purse functions and in 0xD4/0xE0 for
// personalisation.
//
// INS values where the upper nibble is '6' or '9' are invalid: they are reserved for
// Status Words (SW1) and transport procedure bytes (ISO/IEC 7816-3).

// InsCode is a typed representation of the instruction byte.
type InsCode byte

// Instruction codes used by FMCOS.
const (
	INS_ERASE_DF               InsCode = 0x0E
	INS_CARD_BLOCK             InsCode = 0x16
	INS_APPLICATION_UNBLOCK    InsCode = 0x18
	INS_APPLICATION_BLOCK      InsCode = 0x1E
	INS_VERIFY                 InsCode = 0x20
	INS_PIN_UNBLOCK            InsCode = 0x24
	INS_INITIALIZE_TRANSACTION InsCode = 0x50
	INS_CREDIT_FOR_LOAD        InsCode = 0x52
	INS_DEBIT_FOR_PURCHASE     InsCode = 0x54
	INS_UPDATE_OVERDRAWN_LIMIT InsCode = 0x58
	INS_GET_BALANCE            InsCode = 0x5C
	INS_CHANGE_PIN             InsCode = 0x5E
	INS_EXTERNAL_AUTHENTICATE  InsCode = 0x82
	INS_GET_CHALLENGE          InsCode = 0x84
	INS_INTERNAL_AUTHENTICATE  InsCode = 0x88
	INS_SELECT                 InsCode = 0xA4
	INS_READ_BINARY            InsCode = 0xB0
	INS_READ_RECORD            InsCode = 0xB2
	INS_GET_RESPONSE           InsCode = 0xC0
	INS_GET_DATA               InsCode = 0xCA
	INS_WRITE_KEY              InsCode = 0xD4
	INS_UPDATE_BINARY          InsCode = 0xD6
	INS_UPDATE_RECORD          InsCode = 0xDC
	INS_CREATE_FILE            InsCode = 0xE0
	INS_APPEND_RECORD          InsCode = 0xE2
)

var insNames = map[InsCode]string{
	INS_ERASE_DF:               "ERASE DF",
	INS_CARD_BLOCK:             "CARD BLOCK",
	INS_APPLICATION_UNBLOCK:    "APPLICATION UNBLOCK",
	INS_APPLICATION_BLOCK:      "APPLICATION BLOCK",
	INS_VERIFY:                 "VERIFY",
	INS_PIN_UNBLOCK:            "PIN UNBLOCK",
	INS_INITIALIZE_TRANSACTION: "INITIALIZE FOR TRANSACTION",
	INS_CREDIT_FOR_LOAD:        "CREDIT FOR LOAD",
	INS_DEBIT_FOR_PURCHASE:     "DEBIT FOR PURCHASE",
	INS_UPDATE_OVERDRAWN_LIMIT: "UPDATE OVERDRAWN LIMIT",
	INS_GET_BALANCE:            "GET BALANCE",
	INS_CHANGE_PIN:             "CHANGE PIN",
	INS_EXTERNAL_AUTHENTICATE:  "EXTERNAL AUTHENTICATE",
	INS_GET_CHALLENGE:          "GET CHALLENGE",
	INS_INTERNAL_AUTHENTICATE:  "INTERNAL AUTHENTICATE",
	INS_SELECT:                 "SELECT",
	INS_READ_BINARY:            "READ BINARY",
	INS_READ_RECORD:            "READ RECORD",
	INS_GET_RESPONSE:           "GET RESPONSE",
	INS_GET_DATA:               "GET DATA",
	INS_WRITE_KEY:              "WRITE KEY",
	INS_UPDATE_BINARY:          "UPDATE BINARY",
	INS_UPDATE_RECORD:          "UPDATE RECORD",
	INS_CREATE_FILE:            "CREATE FILE",
	INS_APPEND_RECORD:          "APPEND RECORD",
}

// String returns the command name, or the hex value for unknown codes.
func (i InsCode) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	return fmt.Sprintf("INS(0x%02X)", byte(i))
}

// Validate rejects '6X' and '9X' values.
func (i InsCode) Validate() error {
	highNibble := byte(i) & 0xF0
	if highNibble == 0x60 || highNibble == 0x90 {
		return fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(i))
	}
	return nil
}

// Verbose returns a human-readable description of the instruction.
func (i InsCode) Verbose() string {
	return fmt.Sprintf("INS: 0x%02X | Command: %s", byte(i), i.String())
}
