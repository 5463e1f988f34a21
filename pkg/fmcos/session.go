package fmcos

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gregLibert/fmcos/pkg/iso7816"
)

// Config holds the per-session behaviour flags.
type Config struct {
	// Debug logs every APDU and the intermediate values of purse transactions.
	Debug bool
	// Simulation answers 90 00 to everything without touching the card.
	Simulation bool
	// Logger receives the session events. Nil discards them.
	Logger *zerolog.Logger
	// Clock dates purse transactions. Defaults to time.Now.
	Clock func() time.Time
	// Rand generates transaction serials. Defaults to crypto/rand.
	Rand io.Reader
}

// CardDetector is implemented by transports that can tell whether a card is present.
type CardDetector interface {
	FindCard() (uid []byte, present bool, err error)
}

// FieldController is implemented by bridges that must (re)activate the RF field and
// select the card before an ISO SELECT.
type FieldController interface {
	TransmitSelect(apdu []byte, keepFieldActive, activateAndSelect bool) ([]byte, error)
}

// Session drives one card. Operations are serialised: the card keeps state (last
// challenge, current file, pending purse transaction) between exchanges.
type Session struct {
	mu     sync.Mutex
	id     string
	card   iso7816.Transmitter
	client *iso7816.Client
	cfg    Config
	log    zerolog.Logger
}

// NewSession wraps a transmitter. card may be nil in simulation mode.
func NewSession(card iso7816.Transmitter, cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	id := uuid.NewString()
	return &Session{
		id:     id,
		card:   card,
		client: iso7816.NewClient(card),
		cfg:    cfg,
		log:    logger.With().Str("session_id", id).Logger(),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Simulated reports whether the session runs without a card.
func (s *Session) Simulated() bool {
	return s.cfg.Simulation
}

// FindCard asks the transport whether a card is in the field.
func (s *Session) FindCard() (uid []byte, present bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Simulation {
		return []byte{0x00, 0x00, 0x00, 0x00}, true, nil
	}
	detector, ok := s.card.(CardDetector)
	if !ok {
		return nil, false, &TransportError{Op: "find card", Err: errNoDetector}
	}
	uid, present, err = detector.FindCard()
	if err != nil {
		return nil, false, &TransportError{Op: "find card", Err: err}
	}
	return uid, present, nil
}

// exchange sends one logical command. Callers hold s.mu. With once set a 6CXX answer
// is returned instead of re-sending cmd, which suits every command carrying a MAC or
// cryptogram.
func (s *Session) exchange(op string, cmd *iso7816.CommandAPDU, once bool) (iso7816.Trace, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, &ProtocolError{Op: op, Reason: err.Error()}
	}

	if s.cfg.Debug {
		s.log.Debug().
			Str("event", "apdu_sent").
			Str("op", op).
			Str("command", cmd.Instruction.String()).
			Str("apdu_hex", hex.EncodeToString(raw)).
			Msg("sending apdu")
	}

	var trace iso7816.Trace
	fc, selectViaField := s.card.(FieldController)

	switch {
	case s.cfg.Simulation:
		trace = iso7816.Trace{{Command: cmd, Response: simulate(cmd)}}
	case s.card == nil:
		return nil, &TransportError{Op: op, Err: errNoTransport}
	case selectViaField && cmd.Instruction == iso7816.INS_SELECT:
		rawResp, err := fc.TransmitSelect(raw, true, true)
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		resp, err := iso7816.ParseResponseAPDU(rawResp)
		if err != nil {
			return nil, &ProtocolError{Op: op, Reason: err.Error()}
		}
		trace = iso7816.Trace{{Command: cmd, Response: resp}}
	default:
		send := s.client.Send
		if once {
			send = s.client.SendOnce
		}
		if trace, err = send(cmd); err != nil {
			return nil, classify(op, err)
		}
	}

	resp := trace.Response()
	if s.cfg.Debug {
		s.log.Debug().
			Str("event", "apdu_received").
			Str("op", op).
			Str("response_hex", hex.EncodeToString(resp.Data)).
			Str("sw", resp.Status.String()).
			Str("status", resp.Status.Describe()).
			Int("rounds", len(trace)).
			Msg("received response")
	}
	return trace, nil
}

// run is exchange for steps that need 90 00. The response is returned with a
// CardStatusError so callers can still read the status word.
func (s *Session) run(op string, cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, error) {
	return s.check(op, cmd, false)
}

// runOnce is run for authenticated commands: they reach the card at most once.
func (s *Session) runOnce(op string, cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, error) {
	return s.check(op, cmd, true)
}

func (s *Session) check(op string, cmd *iso7816.CommandAPDU, once bool) (*iso7816.ResponseAPDU, error) {
	trace, err := s.exchange(op, cmd, once)
	if err != nil {
		return nil, err
	}
	resp := trace.Response()
	if !resp.Status.IsSuccess() {
		return resp, &CardStatusError{Op: op, Status: resp.Status}
	}
	return resp, nil
}

// challengeIV fetches the 8-byte challenge that seeds a line protection MAC.
func (s *Session) challengeIV(op string) ([]byte, error) {
	return s.getChallenge(op, 8)
}

func (s *Session) getChallenge(op string, n int) ([]byte, error) {
	cmd, err := GetChallengeCommand(n)
	if err != nil {
		return nil, err
	}
	resp, err := s.run(op+": get challenge", cmd)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != n {
		return nil, &ProtocolError{Op: op, Reason: "challenge has wrong length"}
	}
	iv := make([]byte, BlockSize)
	copy(iv, resp.Data)
	return iv, nil
}

// protected sends cmd under line protection, fetching the challenge first.
func (s *Session) protected(op string, cmd *iso7816.CommandAPDU, lp LineProtection) (*iso7816.ResponseAPDU, []byte, error) {
	if err := lp.check(); err != nil {
		return nil, nil, err
	}
	if !lp.Enabled() {
		resp, err := s.run(op, cmd)
		return resp, nil, err
	}

	iv, err := s.challengeIV(op)
	if err != nil {
		return nil, nil, err
	}
	pcmd, err := ProtectCommand(cmd, lp, iv)
	if err != nil {
		return nil, nil, err
	}
	resp, err := s.runOnce(op, pcmd)
	return resp, iv, err
}

func simulate(cmd *iso7816.CommandAPDU) *iso7816.ResponseAPDU {
	resp := &iso7816.ResponseAPDU{Status: iso7816.SW_NO_ERROR}
	switch cmd.Instruction {
	case iso7816.INS_GET_CHALLENGE:
		resp.Data = make([]byte, cmd.Ne)
		for i := range resp.Data {
			resp.Data[i] = 0xFF
		}
	case iso7816.INS_GET_BALANCE:
		resp.Data = make([]byte, 4)
	}
	return resp
}
