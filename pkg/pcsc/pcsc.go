// Package pcsc connects FMCOS sessions to PC/SC readers.
//
// A Reader is opened on a reader name and connects to the card lazily, so it can be
// opened before a card is presented and polled with WaitForCard:
//
//	r, err := pcsc.Open("ACR122")
//	...
//	defer r.Close()
//	uid, err := pcsc.WaitForCard(ctx, r, 30, time.Second)
//	s := fmcos.NewSession(r, cfg)
package pcsc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ebfe/scard"
)

var (
	// ErrNoReader is returned when no reader matches.
	ErrNoReader = errors.New("no smart card reader found")
	// ErrNoCard is returned when a command is sent with no card in the field.
	ErrNoCard = errors.New("no card in the field")
)

// getUID is the PC/SC pseudo APDU asking the reader for the card UID.
var getUID = []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}

// Reader wraps a PC/SC context and the card connection of one reader.
type Reader struct {
	ctx  *scard.Context
	card *scard.Card
	Name string
}

// ListReaders returns the names of the connected readers.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establishing context: %w", err)
	}
	defer func() { _ = ctx.Release() }()

	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("listing readers: %w", err)
	}
	return readers, nil
}

// Open selects the first reader whose name contains match (case insensitive). An
// empty match takes the first reader.
func Open(match string) (*Reader, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establishing context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		_ = ctx.Release()
		return nil, fmt.Errorf("%w: %v", ErrNoReader, err)
	}
	name, err := pickReader(readers, match)
	if err != nil {
		_ = ctx.Release()
		return nil, err
	}
	return &Reader{ctx: ctx, Name: name}, nil
}

func pickReader(readers []string, match string) (string, error) {
	if len(readers) == 0 {
		return "", ErrNoReader
	}
	if match == "" {
		return readers[0], nil
	}
	for _, r := range readers {
		if strings.Contains(strings.ToLower(r), strings.ToLower(match)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: none matches %q among %s", ErrNoReader, match, strings.Join(readers, ", "))
}

func (r *Reader) connect() error {
	if r.card != nil {
		return nil
	}
	// T=0 or T=1 explicitly, some drivers refuse ProtocolAny.
	card, err := r.ctx.Connect(r.Name, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		if errors.Is(err, scard.ErrNoSmartcard) || errors.Is(err, scard.ErrRemovedCard) {
			return ErrNoCard
		}
		return fmt.Errorf("connecting to %s: %w", r.Name, err)
	}
	r.card = card
	return nil
}

func (r *Reader) disconnect() {
	if r.card != nil {
		_ = r.card.Disconnect(scard.LeaveCard)
		r.card = nil
	}
}

// Transmit sends one APDU. A removed card drops the connection so the next call
// reconnects.
func (r *Reader) Transmit(apdu []byte) ([]byte, error) {
	if r == nil || r.ctx == nil {
		return nil, errors.New("reader not open")
	}
	if err := r.connect(); err != nil {
		return nil, err
	}
	resp, err := r.card.Transmit(apdu)
	if err != nil {
		if errors.Is(err, scard.ErrRemovedCard) || errors.Is(err, scard.ErrResetCard) {
			r.disconnect()
		}
		return nil, err
	}
	return resp, nil
}

// FindCard reports whether a card is in the field and returns its UID.
func (r *Reader) FindCard() ([]byte, bool, error) {
	states := []scard.ReaderState{{Reader: r.Name, CurrentState: scard.StateUnaware}}
	if err := r.ctx.GetStatusChange(states, 0); err != nil && !errors.Is(err, scard.ErrTimeout) {
		return nil, false, fmt.Errorf("reading %s state: %w", r.Name, err)
	}
	if states[0].EventState&scard.StatePresent == 0 {
		r.disconnect()
		return nil, false, nil
	}

	resp, err := r.Transmit(getUID)
	if errors.Is(err, ErrNoCard) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading UID: %w", err)
	}
	uid, err := parseUID(resp)
	if err != nil {
		return nil, false, err
	}
	return uid, true, nil
}

func parseUID(resp []byte) ([]byte, error) {
	if len(resp) < 2 {
		return nil, fmt.Errorf("UID response too short: %X", resp)
	}
	n := len(resp) - 2
	if resp[n] != 0x90 || resp[n+1] != 0x00 {
		return nil, fmt.Errorf("reader refused GET DATA: %X", resp[n:])
	}
	return append([]byte(nil), resp[:n]...), nil
}

// Close disconnects the card and releases the context.
func (r *Reader) Close() error {
	if r == nil {
		return nil
	}
	r.disconnect()
	if r.ctx == nil {
		return nil
	}
	err := r.ctx.Release()
	r.ctx = nil
	return err
}
