// Package bits holds the small bit helpers used to read and build the
// flag-carrying bytes of FMCOS commands (CLA, file type tags, key type tags
// and status words). Bits are numbered 1 (LSB) to 8 (MSB), as in ISO 7816.
package bits

// Bit returns a byte with only the n-th bit set (1 to 8).
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet checks if the n-th bit is set (1 to 8).
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// Set returns b with bit n raised.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// Clear returns b with bit n lowered.
func Clear(b byte, n uint) byte {
	return b &^ Bit(n)
}

// GetRange extracts the value held by bits high..low.
// Example: GetRange(0b00001100, 4, 3) returns 3 (0b11)
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}

	return (b >> (low - 1)) & mask(high, low)
}

// SetRange writes v into bits high..low of b, leaving the other bits untouched.
// Bits of v that do not fit the range are dropped.
func SetRange(b byte, high, low uint, v byte) byte {
	if high < low || high > 8 || low < 1 {
		return b
	}

	m := mask(high, low)
	return b&^(m<<(low-1)) | (v&m)<<(low-1)
}

// HighNibble returns bits 8..5.
func HighNibble(b byte) byte { return b >> 4 }

// LowNibble returns bits 4..1.
func LowNibble(b byte) byte { return b & 0x0F }

func mask(high, low uint) byte {
	width := high - low + 1
	return byte((1 << width) - 1)
}
