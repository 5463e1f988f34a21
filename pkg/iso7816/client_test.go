package iso7816

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

// scriptedCard replays canned responses and records what it received.
type scriptedCard struct {
	responses []string
	sent      []string
	err       error
}

func (s *scriptedCard) Transmit(cmd []byte) ([]byte, error) {
	s.sent = append(s.sent, strings.ToUpper(hex.EncodeToString(cmd)))
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return []byte{0x6F, 0x00}, nil
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return hex.DecodeString(next)
}

func TestClient_Send(t *testing.T) {
	balance := NewCommandAPDU(ClassProprietary, INS_GET_BALANCE, 0x00, 0x02, nil, 4)

	t.Run("Single exchange", func(t *testing.T) {
		card := &scriptedCard{responses: []string{"000003E89000"}}
		trace, err := NewClient(card).Send(balance)
		if err != nil {
			t.Fatal(err)
		}
		if len(trace) != 1 || !trace.IsSuccess() {
			t.Fatalf("unexpected trace %+v", trace)
		}
		if card.sent[0] != "805C000204" {
			t.Errorf("sent %s", card.sent[0])
		}
	})

	t.Run("61XX triggers GET RESPONSE", func(t *testing.T) {
		card := &scriptedCard{responses: []string{"6104", "000003E89000"}}
		trace, err := NewClient(card).Send(balance)
		if err != nil {
			t.Fatal(err)
		}
		if len(trace) != 2 {
			t.Fatalf("trace length = %d, want 2", len(trace))
		}
		if card.sent[1] != "00C0000004" {
			t.Errorf("GET RESPONSE = %s, want 00C0000004", card.sent[1])
		}
		if hex.EncodeToString(trace.Response().Data) != "000003e8" {
			t.Errorf("final data = %X", trace.Response().Data)
		}
	})

	t.Run("6CXX re-sends with corrected Le", func(t *testing.T) {
		card := &scriptedCard{responses: []string{"6C04", "000003E89000"}}
		cmd := NewCommandAPDU(ClassProprietary, INS_GET_BALANCE, 0x00, 0x02, nil, 2)
		if _, err := NewClient(card).Send(cmd); err != nil {
			t.Fatal(err)
		}
		if card.sent[1] != "805C000204" {
			t.Errorf("retry = %s, want 805C000204", card.sent[1])
		}
		if cmd.Ne != 2 {
			t.Error("original command must not be mutated")
		}
	})

	t.Run("6CXX is not re-sent for line protected commands", func(t *testing.T) {
		card := &scriptedCard{responses: []string{"6C08", "000003E89000"}}
		cmd := NewCommandAPDU(ClassInterindustryProtected, INS_READ_BINARY, 0x95, 0x00, []byte{0x90, 0xE7, 0x26, 0x9E}, 4)
		trace, err := NewClient(card).Send(cmd)
		if err != nil {
			t.Fatal(err)
		}
		if len(card.sent) != 1 {
			t.Fatalf("sent %v, want a single command", card.sent)
		}
		if got := trace.Response().Status; got != NewStatusWord(0x6C, 0x08) {
			t.Errorf("status = %s, want 6C08", got)
		}
	})

	t.Run("SendOnce keeps 6CXX but follows 61XX", func(t *testing.T) {
		card := &scriptedCard{responses: []string{"6C04"}}
		if _, err := NewClient(card).SendOnce(balance); err != nil {
			t.Fatal(err)
		}
		if len(card.sent) != 1 {
			t.Fatalf("sent %v, want a single command", card.sent)
		}

		card = &scriptedCard{responses: []string{"6104", "000003E89000"}}
		trace, err := NewClient(card).SendOnce(balance)
		if err != nil {
			t.Fatal(err)
		}
		if len(trace) != 2 || !trace.IsSuccess() {
			t.Fatalf("unexpected trace %+v", trace)
		}
	})

	t.Run("Endless 61XX is bounded", func(t *testing.T) {
		card := &scriptedCard{responses: strings.Split(strings.Repeat("6104,", maxRounds+2), ",")}
		if _, err := NewClient(card).Send(balance); err == nil {
			t.Fatal("expected an error")
		}
		if len(card.sent) != maxRounds {
			t.Errorf("sent %d commands, want %d", len(card.sent), maxRounds)
		}
	})

	t.Run("Transmit failure is wrapped", func(t *testing.T) {
		boom := errors.New("reader unplugged")
		card := &scriptedCard{err: boom}
		_, err := NewClient(card).Send(balance)

		var te *TransmitError
		if !errors.As(err, &te) || !errors.Is(err, boom) {
			t.Fatalf("expected TransmitError wrapping %v, got %v", boom, err)
		}
	})

	t.Run("Short response", func(t *testing.T) {
		card := &scriptedCard{responses: []string{"90"}}
		if _, err := NewClient(card).Send(balance); !errors.Is(err, ErrShortResponse) {
			t.Fatalf("expected ErrShortResponse, got %v", err)
		}
	})
}
