package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	require.NoError(t, initLogger(&buf, "debug", false))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Debug().Str("event", "apdu_sent").Msg("sending apdu")
	assert.Contains(t, buf.String(), `"event":"apdu_sent"`)
	assert.Contains(t, buf.String(), `"time":`)

	buf.Reset()
	require.NoError(t, initLogger(&buf, "warn", false))
	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	assert.Error(t, initLogger(&buf, "chatty", false))
}

func TestSessionLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	require.NoError(t, initLogger(&buf, "info", false))

	l := Session("0b9e5e4c")
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"session_id":"0b9e5e4c"`)
}

func TestLogHelpers(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	require.NoError(t, initLogger(&buf, "info", false))

	LogTransaction("credit", "Complete", 100, 1100, []byte{0x4B, 0xB5, 0xD1, 0x21}, false)
	assert.Contains(t, buf.String(), `"tac":"4bb5d121"`)
	assert.Contains(t, buf.String(), `"new_balance":1100`)

	buf.Reset()
	LogFailure("credit", errors.New("TAC mismatch"), true)
	assert.Contains(t, buf.String(), `"ambiguous":true`)
	assert.Contains(t, buf.String(), `"error":"TAC mismatch"`)
}
