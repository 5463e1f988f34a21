package tlv

import (
	"fmt"
)

// RecordTag wraps the content of TLV formatted records (fixed and variable length files
// created with the TLV attribute).
const RecordTag byte = 0xF7

// WrapRecord returns F7 L data.
func WrapRecord(data []byte) ([]byte, error) {
	return Build(RecordTag, data)
}

// UnwrapRecord checks the F7 tag and returns the value. Bytes beyond the announced
// length (record padding) are dropped.
func UnwrapRecord(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("record too short for a TLV header: %d bytes", len(data))
	}
	if data[0] != RecordTag {
		return nil, fmt.Errorf("unexpected record tag %02X, want %02X", data[0], RecordTag)
	}

	length := int(data[1])
	if 2+length > len(data) {
		return nil, fmt.Errorf("record announces %d bytes, %d present", length, len(data)-2)
	}
	return data[2 : 2+length], nil
}
