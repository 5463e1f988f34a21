package fmcos

import (
	"errors"
)

// BlockSize is the DES block size.
const BlockSize = 8

// ErrInvalidPadding is returned by Unpad when no 80 00.. trailer is found.
var ErrInvalidPadding = errors.New("invalid ISO7816 padding")

// Pad appends 0x80 and zeros up to the next multiple of blockSize. A full block is
// added when data is already aligned.
func Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	out = append(out, 0x80)
	for i := 1; i < n; i++ {
		out = append(out, 0x00)
	}
	return out
}

// Unpad strips an ISO7816 padding trailer.
func Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	for i := len(data) - 1; i >= 0 && i >= len(data)-blockSize; i-- {
		switch data[i] {
		case 0x00:
			continue
		case 0x80:
			return data[:i], nil
		default:
			return nil, ErrInvalidPadding
		}
	}
	return nil, ErrInvalidPadding
}
