package iso7816

import (
	"fmt"
)

// CLIENT & PROTOCOL LOGIC:
// The Client sits between the FMCOS session and the physical reader. It hides the two
// T=0 transport behaviours that some contact readers still surface:
//
// 1. "61 XX" (Response Available):
//    XX bytes are waiting. The client sends GET RESPONSE with Le = XX.
//
// 2. "6C XX" (Wrong Length):
//    The Le was wrong. The client re-sends the original command with Le = XX.
//    Line protected commands and commands passed to SendOnce are never re-sent:
//    their MAC is bound to a challenge the card has already consumed, so the 6CXX
//    answer is returned as is.
//
// Send() returns a Trace holding every physical exchange made for the logical request.
// Contactless FMCOS cards answer in one round, so most traces hold a single Exchange.

// maxRounds bounds the 61XX/6CXX follow-ups of a single Send.
const maxRounds = 8

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// TransmitError wraps a failure reported by the Transmitter.
type TransmitError struct {
	Err error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmission error: %v", e.Err)
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}

// Client manages the communication with the card.
type Client struct {
	Card Transmitter
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits a command and handles protocol logic (61xx, 6Cxx).
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	return c.send(cmd, 0, !cmd.Class.IsLineProtected())
}

// SendOnce is Send without the 6Cxx re-send. 61xx is still followed by GET RESPONSE.
func (c *Client) SendOnce(cmd *CommandAPDU) (Trace, error) {
	return c.send(cmd, 0, false)
}

func (c *Client) send(cmd *CommandAPDU, round int, resend bool) (Trace, error) {
	if round >= maxRounds {
		return nil, fmt.Errorf("gave up after %d GET RESPONSE/Le retries", maxRounds)
	}

	rawCmd, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.Card.Transmit(rawCmd)
	if err != nil {
		return nil, &TransmitError{Err: err}
	}

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return nil, err
	}

	trace := Trace{{Command: cmd, Response: resp}}

	sw1 := resp.Status.SW1()
	sw2 := resp.Status.SW2()

	var next *CommandAPDU
	switch sw1 {
	case 0x61:
		// GET RESPONSE stays on the logical channel of the original command.
		next = NewCommandAPDU(Class(cmd.Class.Channel()), INS_GET_RESPONSE, 0x00, 0x00, nil, decodeLe(sw2))
	case 0x6C:
		if !resend {
			return trace, nil
		}
		retry := *cmd
		retry.Ne = decodeLe(sw2)
		next = &retry
	default:
		return trace, nil
	}

	subTrace, err := c.send(next, round+1, resend)
	trace = append(trace, subTrace...)
	return trace, err
}
