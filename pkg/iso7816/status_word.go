package iso7816

import (
	"fmt"

	"github.com/gregLibert/fmcos/pkg/bits"
)

// Status Word decoding for FMCOS.
//
// Besides the ISO/IEC 7816-4 codes, FMCOS returns three proprietary status words for the
// electronic purse:
//
//	93 02  MAC invalid (MAC1/MAC2 sent by the terminal did not verify)
//	94 01  Amount insufficient
//	94 03  Key index not supported
//
// Some ranges carry dynamic information:
//
// 1. '61XX': Process completed, XX bytes available for GET RESPONSE.
// 2. '6CXX': Wrong length, XX is the correct Le.
// 3. '62XX' and '64XX' with XX in [0x02, 0x80]: Triggering by the card.
// 4. '63CX': Verification failed, X tries left (PIN and external authentication keys).
//
// Each status word maps to a Category so callers can react without matching strings.
// Codes outside the table fall into CategoryUnknown; decoding never fails.

// StatusWord represents the two-byte status response (SW1-SW2) returned by the card.
type StatusWord uint16

// Status words referenced by the driver.
const (
	SW_NO_ERROR                      StatusWord = 0x9000
	SW_FILE_FILLED_UP                StatusWord = 0x6381
	SW_MEMORY_FAILURE                StatusWord = 0x6581
	SW_WRONG_LENGTH                  StatusWord = 0x6700
	SW_SECURITY_STATUS_NOT_SATISFIED StatusWord = 0x6982
	SW_AUTH_METHOD_BLOCKED           StatusWord = 0x6983
	SW_REFERENCE_DATA_NOT_USABLE     StatusWord = 0x6984
	SW_CONDITIONS_NOT_SATISFIED      StatusWord = 0x6985
	SW_FILE_NOT_FOUND                StatusWord = 0x6A82
	SW_RECORD_NOT_FOUND              StatusWord = 0x6A83
	SW_FILE_ALREADY_EXISTS           StatusWord = 0x6A89
	SW_INS_NOT_SUPPORTED             StatusWord = 0x6D00
	SW_CLA_NOT_SUPPORTED             StatusWord = 0x6E00
	SW_MAC_INVALID                   StatusWord = 0x9302
	SW_INSUFFICIENT_FUNDS            StatusWord = 0x9401
	SW_KEY_INDEX_NOT_SUPPORTED       StatusWord = 0x9403
)

// Category groups status words by what went wrong.
type Category int

const (
	CategoryUnknown Category = iota
	CategorySuccess
	CategoryWarning
	CategoryVerificationFailed
	CategoryExecutionError
	CategoryMemoryFailure
	CategoryWrongLength
	CategoryFunctionNotSupported
	CategoryCommandNotAllowed
	CategorySecurityNotSatisfied
	CategoryWrongParameters
	CategoryNotFound
	CategoryAlreadyExists
	CategoryInvalidInstruction
	CategoryInvalidClass
	CategoryMACInvalid
	CategoryInsufficientFunds
	CategoryKeyNotSupported
)

var categoryNames = map[Category]string{
	CategoryUnknown:              "unknown",
	CategorySuccess:              "success",
	CategoryWarning:              "warning",
	CategoryVerificationFailed:   "verification failed",
	CategoryExecutionError:       "execution error",
	CategoryMemoryFailure:        "memory failure",
	CategoryWrongLength:          "wrong length",
	CategoryFunctionNotSupported: "function not supported",
	CategoryCommandNotAllowed:    "command not allowed",
	CategorySecurityNotSatisfied: "security status not satisfied",
	CategoryWrongParameters:      "wrong parameters",
	CategoryNotFound:             "not found",
	CategoryAlreadyExists:        "already exists",
	CategoryInvalidInstruction:   "invalid instruction",
	CategoryInvalidClass:         "invalid class",
	CategoryMACInvalid:           "MAC invalid",
	CategoryInsufficientFunds:    "insufficient funds",
	CategoryKeyNotSupported:      "key not supported",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

type statusEntry struct {
	category Category
	text     string
}

// statusTable holds the fixed codes. Ranges are resolved in lookup.
var statusTable = map[StatusWord]statusEntry{
	0x9000: {CategorySuccess, "Operation Successful"},

	0x6281: {CategoryWarning, "Part of returned data may be corrupted"},
	0x6282: {CategoryWarning, "End of file or record reached before reading Ne bytes"},
	0x6283: {CategoryWarning, "Selected file deactivated"},
	0x6284: {CategoryWarning, "File control information not formatted"},
	0x6285: {CategoryWarning, "Selected file in termination state"},
	0x6286: {CategoryWarning, "No input data available from a sensor on the card"},

	0x6381: {CategoryWarning, "File filled up by the last write"},

	0x6401: {CategoryExecutionError, "Immediate response required by the card"},

	0x6581: {CategoryMemoryFailure, "Memory failure"},

	0x6700: {CategoryWrongLength, "Invalid length"},

	0x6881: {CategoryFunctionNotSupported, "Logical channel not supported"},
	0x6882: {CategoryFunctionNotSupported, "Secure messaging not supported"},
	0x6883: {CategoryFunctionNotSupported, "Last command of the chain expected"},
	0x6884: {CategoryFunctionNotSupported, "Command chaining not supported"},

	0x6981: {CategoryCommandNotAllowed, "Command incompatible with file structure"},
	0x6982: {CategorySecurityNotSatisfied, "Security status not satisfied"},
	0x6983: {CategorySecurityNotSatisfied, "Authentication method blocked"},
	0x6984: {CategorySecurityNotSatisfied, "Reference data not usable"},
	0x6985: {CategoryCommandNotAllowed, "Conditions of use not satisfied"},
	0x6986: {CategoryCommandNotAllowed, "Command not allowed (no current EF)"},
	0x6987: {CategoryCommandNotAllowed, "Expected secure messaging data objects missing"},
	0x6988: {CategoryCommandNotAllowed, "Incorrect secure messaging data objects"},

	0x6A80: {CategoryWrongParameters, "Incorrect parameters in the command data field"},
	0x6A81: {CategoryFunctionNotSupported, "Function not supported"},
	0x6A82: {CategoryNotFound, "File or application not found"},
	0x6A83: {CategoryNotFound, "Record not found"},
	0x6A84: {CategoryWrongParameters, "Not enough memory space in the file"},
	0x6A85: {CategoryWrongParameters, "Nc inconsistent with TLV structure"},
	0x6A86: {CategoryWrongParameters, "Incorrect parameters P1-P2"},
	0x6A87: {CategoryWrongParameters, "Nc inconsistent with parameters P1-P2"},
	0x6A88: {CategoryNotFound, "Referenced data or reference data not found"},
	0x6A89: {CategoryAlreadyExists, "File already exists"},
	0x6A8A: {CategoryAlreadyExists, "DF name already exists"},

	0x6D00: {CategoryInvalidInstruction, "Invalid INS parameter"},
	0x6E00: {CategoryInvalidClass, "Invalid CLA parameter"},

	0x9302: {CategoryMACInvalid, "Invalid MAC"},
	0x9401: {CategoryInsufficientFunds, "The amount is insufficient"},
	0x9403: {CategoryKeyNotSupported, "Key indexes are not supported"},
}

const unknownStatusText = "Unknown return code"

// NewStatusWord creates a StatusWord instance from two separate bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the first byte (high byte) of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the second byte (low byte) of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsTriggeringByCard checks if the status indicates a "Triggering by the card" event.
func (sw StatusWord) IsTriggeringByCard() bool {
	sw2 := sw.SW2()
	if sw2 < 0x02 || sw2 > 0x80 {
		return false
	}
	return sw.SW1() == 0x62 || sw.SW1() == 0x64
}

// IsCounter checks for '63CX', a failed verification with X tries left.
func (sw StatusWord) IsCounter() bool {
	return sw.SW1() == 0x63 && bits.HighNibble(sw.SW2()) == 0x0C
}

// RetriesLeft returns X of '63CX'. ok is false for any other status.
func (sw StatusWord) RetriesLeft() (n int, ok bool) {
	if !sw.IsCounter() {
		return 0, false
	}
	return int(bits.GetRange(sw.SW2(), 4, 1)), true
}

// IsSuccess returns true only for 9000. FMCOS completes every command with 9000;
// '61XX' is resolved by Client before callers see it.
func (sw StatusWord) IsSuccess() bool {
	return sw == SW_NO_ERROR
}

// IsWarning returns true if the status indicates a warning (62XX or 63XX).
func (sw StatusWord) IsWarning() bool {
	sw1 := sw.SW1()
	return sw1 == 0x62 || sw1 == 0x63
}

// IsError returns true for execution and checking errors (64XX to 6FXX) and
// the FMCOS purse errors (93XX, 94XX).
func (sw StatusWord) IsError() bool {
	sw1 := sw.SW1()
	return (sw1 >= 0x64 && sw1 <= 0x6F) || sw1 == 0x93 || sw1 == 0x94
}

func (sw StatusWord) lookup() statusEntry {
	if e, ok := statusTable[sw]; ok {
		return e
	}

	switch {
	case sw.IsTriggeringByCard():
		if sw.SW1() == 0x64 {
			return statusEntry{CategoryExecutionError, "Triggering by the card"}
		}
		return statusEntry{CategoryWarning, "Triggering by the card"}
	case sw.IsCounter():
		return statusEntry{CategoryVerificationFailed, "Counter from 0 to 15 encoded by 'X'(SW2&0xF)"}
	}

	return statusEntry{CategoryUnknown, unknownStatusText}
}

// Category classifies the status word.
func (sw StatusWord) Category() Category {
	return sw.lookup().category
}

// Describe returns the text of the FMCOS status table, "Unknown return code" when absent.
func (sw StatusWord) Describe() string {
	return sw.lookup().text
}

// String returns the 4 hex digits, e.g. "6A82".
func (sw StatusWord) String() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

// Verbose returns a human-readable description of the status word.
// Dynamic ranges get their embedded value spelled out.
func (sw StatusWord) Verbose() string {
	sw2 := sw.SW2()

	if n, ok := sw.RetriesLeft(); ok {
		return fmt.Sprintf("[%04X] Verification failed, %d tries left", uint16(sw), n)
	}

	switch sw.SW1() {
	case 0x61:
		return fmt.Sprintf("[%04X] Process completed, %d bytes available", uint16(sw), sw2)
	case 0x6C:
		return fmt.Sprintf("[%04X] Wrong length, correct Le is %d", uint16(sw), sw2)
	}

	return fmt.Sprintf("[%04X] %s", uint16(sw), sw.Describe())
}
