package iso7816

import (
	"bytes"
	"errors"
	"fmt"
)

// APDU structures and encodings according to ISO/IEC 7816-3 and 7816-4, restricted to the
// short length form accepted by FMCOS.
//
// COMMAND APDU (C-APDU):
//
//	CLA INS P1 P2 [Lc DATA] [Le]
//
// ENCODING CASES:
// - Case 1: No Data, No Response. FMCOS still expects a length byte: header + 00.
// - Case 2: No Data, Response Expected (Header + Le).
// - Case 3: Data Present, No Response (Header + Lc + Data).
// - Case 4: Data Present, Response Expected (Header + Lc + Data + Le).
//
// Le is carried as Ne (the number of expected bytes): 0 means absent, 256 is encoded 0x00.
//
// RESPONSE APDU (R-APDU):
//
//	[DATA] SW1 SW2
//
// The trailer is always present; the data field may be empty.

// APDU Limits.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in one length byte.
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length (Ne). 0x00 encodes 256.
	MaxShortLe = 256

	// headerSize is CLA INS P1 P2.
	headerSize = 4
)

var (
	// ErrDataTooLong is returned when a command carries more than MaxShortLc bytes.
	ErrDataTooLong = errors.New("apdu data exceeds 255 bytes")

	// ErrInvalidLe is returned when Ne is outside 0..MaxShortLe.
	ErrInvalidLe = errors.New("apdu expected length out of range")

	// ErrShortResponse is returned when a response does not even hold SW1 SW2.
	ErrShortResponse = errors.New("response shorter than status word")

	// ErrMalformedCommand is returned by ParseCommandAPDU on inconsistent length bytes.
	ErrMalformedCommand = errors.New("malformed command apdu")
)

// CommandAPDU represents a command sent to the card.
type CommandAPDU struct {
	Class       Class
	Instruction InsCode
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla Class, ins InsCode, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// Header returns CLA INS P1 P2.
func (c *CommandAPDU) Header() [headerSize]byte {
	return [headerSize]byte{c.Class.Encode(), byte(c.Instruction), c.P1, c.P2}
}

// Bytes encodes the CommandAPDU into its byte representation (C-APDU).
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	if nc > MaxShortLc {
		return nil, fmt.Errorf("%w: %d bytes for %s", ErrDataTooLong, nc, c.Instruction)
	}
	if c.Ne < 0 || c.Ne > MaxShortLe {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLe, c.Ne)
	}

	buf := new(bytes.Buffer)
	header := c.Header()
	buf.Write(header[:])

	if nc > 0 {
		buf.WriteByte(byte(nc))
		buf.Write(c.Data)
	}

	switch {
	case c.Ne == MaxShortLe:
		buf.WriteByte(0x00) // 0x00 represents 256
	case c.Ne > 0:
		buf.WriteByte(byte(c.Ne))
	case nc == 0:
		// Case 1: FMCOS wants an explicit empty Lc.
		buf.WriteByte(0x00)
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | CLA: %02X | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction, c.Class.Encode(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ParseCommandAPDU decodes a short C-APDU. A lone byte after the header is read
// as Le, which also covers the FMCOS case 1 trailer (00 is then Ne 256).
func ParseCommandAPDU(raw []byte) (*CommandAPDU, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedCommand, len(raw))
	}

	cmd := &CommandAPDU{
		Class:       Class(raw[0]),
		Instruction: InsCode(raw[1]),
		P1:          raw[2],
		P2:          raw[3],
	}

	body := raw[headerSize:]
	switch {
	case len(body) == 0:
		return cmd, nil
	case len(body) == 1:
		cmd.Ne = decodeLe(body[0])
		return cmd, nil
	}

	lc := int(body[0])
	rest := body[1:]
	switch len(rest) {
	case lc:
	case lc + 1:
		cmd.Ne = decodeLe(rest[lc])
	default:
		return nil, fmt.Errorf("%w: Lc %d with %d trailing bytes", ErrMalformedCommand, lc, len(rest))
	}
	cmd.Data = append([]byte(nil), rest[:lc]...)

	return cmd, nil
}

func decodeLe(b byte) int {
	if b == 0 {
		return MaxShortLe
	}
	return int(b)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU parses raw bytes received from the card into a ResponseAPDU.
// The input must contain at least 2 bytes (SW1, SW2).
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: length %d", ErrShortResponse, len(raw))
	}

	indexSW1 := len(raw) - 2

	return &ResponseAPDU{
		Data:   raw[:indexSW1],
		Status: NewStatusWord(raw[indexSW1], raw[indexSW1+1]),
	}, nil
}

// Bytes serializes the response back to DATA SW1 SW2.
func (r *ResponseAPDU) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, r.Status.SW1(), r.Status.SW2())
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
