package iso7816

import (
	"fmt"

	"github.com/gregLibert/fmcos/pkg/bits"
)

// Class Byte (CLA) as used by FMCOS.
//
// FMCOS only issues four class values:
//
//	00  interindustry command (SELECT, VERIFY, READ BINARY, ...)
//	04  interindustry command with line protection
//	80  proprietary command (CREATE FILE, WRITE KEY, GET BALANCE, ...)
//	84  proprietary command with line protection
//
// Structure:
// Bit 8: Proprietary (1) or Interindustry (0).
// Bit 3: Line protection. The data field ends with a 4-byte MAC computed over the
//        header and data (and may be encrypted).
// Bits 2-1: Logical channel (always 0 in practice, kept for GET RESPONSE).

// Class represents the CLA byte.
type Class byte

// Classes issued by the FMCOS driver.
const (
	ClassInterindustry          Class = 0x00
	ClassInterindustryProtected Class = 0x04
	ClassProprietary            Class = 0x80
	ClassProprietaryProtected   Class = 0x84
)

// NewClass validates a raw CLA byte.
func NewClass(cla byte) (Class, error) {
	if cla == 0xFF {
		return 0, fmt.Errorf("invalid CLA value: 0xFF is reserved")
	}
	return Class(cla), nil
}

// IsProprietary reports bit 8.
func (c Class) IsProprietary() bool {
	return bits.IsSet(byte(c), 8)
}

// IsLineProtected reports bit 3, the FMCOS secure messaging flag.
func (c Class) IsLineProtected() bool {
	return bits.IsSet(byte(c), 3)
}

// Channel returns the logical channel (bits 2-1).
func (c Class) Channel() uint8 {
	return bits.GetRange(byte(c), 2, 1)
}

// WithLineProtection returns the class with the protection bit raised.
func (c Class) WithLineProtection() Class {
	return Class(bits.Set(byte(c), 3))
}

// Plain returns the class with the protection bit lowered.
func (c Class) Plain() Class {
	return Class(bits.Clear(byte(c), 3))
}

// Encode returns the byte representation.
func (c Class) Encode() byte {
	return byte(c)
}

// Verbose returns a human-readable description of the CLA byte configuration.
func (c Class) Verbose() string {
	kind := "Interindustry"
	if c.IsProprietary() {
		kind = "Proprietary"
	}

	protection := "None"
	if c.IsLineProtected() {
		protection = "Line protection (MAC)"
	}

	return fmt.Sprintf("Class: %s (0x%02X)\nSecure Messaging: %s\nLogical Channel: %d",
		kind, byte(c), protection, c.Channel())
}
