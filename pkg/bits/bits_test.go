package bits

import "testing"

func TestBit(t *testing.T) {
	tests := []struct {
		n        uint
		expected byte
	}{
		{1, 0x01}, {3, 0x04}, {7, 0x40}, {8, 0x80}, {0, 0x00},
		{9, 0x00}, // out of range is silently ignored
	}

	for _, tt := range tests {
		if res := Bit(tt.n); res != tt.expected {
			t.Errorf("Bit(%d) = 0x%02X; want 0x%02X", tt.n, res, tt.expected)
		}
	}
}

func TestSetClear(t *testing.T) {
	// CLA 0x80 becomes the line protected 0x84 and back.
	cla := Set(0x80, 3)
	if cla != 0x84 {
		t.Fatalf("Set(0x80, 3) = 0x%02X; want 0x84", cla)
	}
	if !IsSet(cla, 3) {
		t.Error("bit 3 should be set")
	}
	if back := Clear(cla, 3); back != 0x80 {
		t.Errorf("Clear(0x84, 3) = 0x%02X; want 0x80", back)
	}
}

func TestGetRange(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		high     uint
		low      uint
		expected byte
	}{
		{"retry counter of 63C3", 0xC3, 4, 1, 3},
		{"protection bits of 0xC0 file tag", 0xE8, 8, 7, 3},
		{"protection bits of unprotected tag", 0x28, 8, 7, 0},
		{"full byte", 0xAA, 8, 1, 0xAA},
		{"inverted range", 0xFF, 1, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := GetRange(tt.input, tt.high, tt.low); res != tt.expected {
				t.Errorf("GetRange(0x%02X, %d, %d) = %d; want %d", tt.input, tt.high, tt.low, res, tt.expected)
			}
		})
	}
}

func TestSetRange(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		high     uint
		low      uint
		value    byte
		expected byte
	}{
		{"MAC protection on binary file", 0x28, 8, 7, 0b10, 0xA8},
		{"encrypt protection on loop file", 0x2E, 8, 7, 0b11, 0xEE},
		{"overflowing value is masked", 0x00, 2, 1, 0xFF, 0x03},
		{"bad range leaves input", 0x12, 0, 4, 0x01, 0x12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := SetRange(tt.input, tt.high, tt.low, tt.value); res != tt.expected {
				t.Errorf("SetRange(0x%02X, %d, %d, %d) = 0x%02X; want 0x%02X",
					tt.input, tt.high, tt.low, tt.value, res, tt.expected)
			}
		})
	}
}

func TestNibbles(t *testing.T) {
	if HighNibble(0x6A) != 0x6 || LowNibble(0x6A) != 0xA {
		t.Errorf("nibbles of 0x6A = %X/%X", HighNibble(0x6A), LowNibble(0x6A))
	}
}
