package fmcos

import (
	"errors"
	"fmt"

	"github.com/gregLibert/fmcos/pkg/iso7816"
)

// ErrInvalidArgument marks precondition violations. They are reported before anything
// is sent to the card.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// TransportError is an I/O failure of the reader bridge.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a malformed or unexpected answer from the card.
type ProtocolError struct {
	Op     string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol: %s", e.Op, e.Reason)
}

// CardStatusError is a status word other than 9000 on a step that needs success.
type CardStatusError struct {
	Op     string
	Status iso7816.StatusWord
}

func (e *CardStatusError) Error() string {
	return fmt.Sprintf("%s: card returned %s", e.Op, e.Status.Verbose())
}

// Category is the status word category, for diagnostics.
func (e *CardStatusError) Category() iso7816.Category {
	return e.Status.Category()
}

// IntegrityError is a MAC or TAC mismatch. It is never downgraded to a warning.
type IntegrityError struct {
	Op       string
	Check    string // MAC1, TAC, response MAC...
	Expected []byte
	Actual   []byte
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s mismatch: computed %X, card sent %X", e.Op, e.Check, e.Expected, e.Actual)
}

// TransactionError reports the phase at which a two-phase flow stopped.
type TransactionError struct {
	Flow  string
	Phase int
	State TransactionState
	Err   error
}

func (e *TransactionError) Error() string {
	if e.Ambiguous() {
		return fmt.Sprintf("%s: phase 2 failed after phase 1 succeeded, card balance unknown: %v", e.Flow, e.Err)
	}
	return fmt.Sprintf("%s: phase %d failed: %v", e.Flow, e.Phase, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Ambiguous is true when the card may have committed the operation: phase 1 was
// accepted and verified, then phase 2 failed.
func (e *TransactionError) Ambiguous() bool {
	return e.Phase == 2
}

// classify turns an iso7816 client failure into the fmcos taxonomy.
func classify(op string, err error) error {
	var te *iso7816.TransmitError
	if errors.As(err, &te) {
		return &TransportError{Op: op, Err: te.Err}
	}
	return &ProtocolError{Op: op, Reason: err.Error()}
}

var (
	errNoTransport = errors.New("no card transport configured")
	errNoDetector  = errors.New("transport cannot detect cards")
)
