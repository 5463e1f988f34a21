package tlv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"
)

// LENIENT DECODING:
// FMCOS answers a SELECT with a short FCI made of 1-byte length TLVs:
//
//	6F L
//	   84 L <DF name>
//	   A5 L
//	      88 01 <SFI>         or   9F0C L <issuer data>
//
// Cards are not always careful with the lengths, so decoding reads items one after the
// other and stops at the first one that does not fit, keeping what was read so far.
//
// Tag: one byte, or two when the low 5 bits of the first byte are all set (9F0C).
// Length: always one byte.
// Constructed tags (bit 6 set) get their children decoded too when the value parses
// cleanly; otherwise only Value is kept.

// ErrTruncated reports that decoding stopped before the end of the input.
var ErrTruncated = errors.New("tlv data truncated")

// DecodeLenient reads a flat sequence of tag/length/value items.
// On malformed trailing data it returns the items read so far with ErrTruncated.
func DecodeLenient(data []byte) ([]bertlv.TLV, error) {
	var nodes []bertlv.TLV
	pos := 0

	for pos < len(data) {
		tagLen := 1
		if data[pos]&0x1F == 0x1F {
			tagLen = 2
		}
		if pos+tagLen >= len(data) {
			return nodes, fmt.Errorf("%w: missing length at offset %d", ErrTruncated, pos)
		}

		tag := strings.ToUpper(fmt.Sprintf("%X", data[pos:pos+tagLen]))
		length := int(data[pos+tagLen])
		start := pos + tagLen + 1
		end := start + length

		if end > len(data) {
			nodes = append(nodes, bertlv.TLV{Tag: tag, Value: data[start:]})
			return nodes, fmt.Errorf("%w: tag %s wants %d bytes, %d left", ErrTruncated, tag, length, len(data)-start)
		}

		node := bertlv.TLV{Tag: tag, Value: data[start:end]}
		if data[pos]&0x20 != 0 {
			if children, err := DecodeLenient(node.Value); err == nil {
				node.TLVs = children
			}
		}
		nodes = append(nodes, node)
		pos = end
	}

	return nodes, nil
}

// Build encodes one item with a 1-byte tag and a 1-byte length.
func Build(tag byte, value []byte) ([]byte, error) {
	if len(value) > 0xFF {
		return nil, fmt.Errorf("tlv value of %d bytes does not fit a 1-byte length", len(value))
	}
	out := make([]byte, 0, len(value)+2)
	out = append(out, tag, byte(len(value)))
	return append(out, value...), nil
}
