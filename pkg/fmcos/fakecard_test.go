package fmcos

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gregLibert/fmcos/pkg/tlv"
)

// step is one scripted exchange. An empty want accepts any command.
type step struct {
	want  string
	reply string
}

// fakeCard replays a script and records every command it received.
type fakeCard struct {
	t      *testing.T
	script []step
	sent   []string
	err    error
}

func newFakeCard(t *testing.T, script ...step) *fakeCard {
	return &fakeCard{t: t, script: script}
}

func (c *fakeCard) Transmit(cmd []byte) ([]byte, error) {
	got := strings.ToUpper(hex.EncodeToString(cmd))
	c.sent = append(c.sent, got)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.script) == 0 {
		c.t.Errorf("unexpected command %s", got)
		return []byte{0x6F, 0x00}, nil
	}
	next := c.script[0]
	c.script = c.script[1:]
	if want := strings.ReplaceAll(strings.ToUpper(next.want), " ", ""); want != "" && want != got {
		c.t.Errorf("command mismatch\n got: %s\nwant: %s", got, want)
	}
	return tlv.Hex(next.reply), nil
}

// done fails the test when scripted steps were not consumed.
func (c *fakeCard) done() {
	c.t.Helper()
	if len(c.script) != 0 {
		c.t.Errorf("%d scripted exchanges left unused", len(c.script))
	}
}

// fieldCard is a fakeCard behind a bridge that handles SELECT itself.
type fieldCard struct {
	*fakeCard
	selects []string
}

func (c *fieldCard) TransmitSelect(apdu []byte, keepFieldActive, activateAndSelect bool) ([]byte, error) {
	if !keepFieldActive || !activateAndSelect {
		return nil, errors.New("select must keep the field and reselect the card")
	}
	c.selects = append(c.selects, strings.ToUpper(hex.EncodeToString(apdu)))
	return c.Transmit(apdu)
}

func (c *fieldCard) FindCard() ([]byte, bool, error) {
	return tlv.Hex("04A1B2C3"), true, nil
}

var (
	testTerminal  = tlv.Hex("666666666666")
	testChallenge = "0102030405060708"
	testLineKey   = tlv.Hex("8A021972BFEC9D152CA9EB82D7D12C09")
	testInternal  = tlv.Hex("2B8A438742C851566F02D881B09D58C0")
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 17, 12, 34, 56, 0, time.UTC)
}

func newTestSession(card *fakeCard) *Session {
	return NewSession(card, Config{Clock: fixedClock})
}

// challenge is the GET CHALLENGE exchange that precedes every protected command.
var challenge = step{want: "0084000008", reply: testChallenge + "9000"}
