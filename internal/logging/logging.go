package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global zerolog logger with the given level and output format.
func InitLogger(level string, human bool) error {
	return initLogger(os.Stderr, level, human)
}

func initLogger(out io.Writer, level string, human bool) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano           // always initialize base logger with timestamp.
	base := zerolog.New(out).With().Timestamp().Logger() // initialize base logger.
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339Nano,
		}) // select output format.
	} else {
		log.Logger = base // use JSON logger.
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// Session returns a child of the global logger tagged with the session id.
func Session(id string) zerolog.Logger {
	return log.With().Str("session_id", id).Logger()
}

// LogTransaction logs the outcome of a purse transaction.
func LogTransaction(flow, state string, oldBalance, newBalance uint32, tac []byte, simulated bool) {
	log.Info().
		Str("event", "transaction").
		Str("flow", flow).
		Str("state", state).
		Uint32("old_balance", oldBalance).
		Uint32("new_balance", newBalance).
		Hex("tac", tac).
		Bool("simulated", simulated).
		Msg("transaction finished")
}

// LogFailure logs an operation that did not complete.
func LogFailure(op string, err error, ambiguous bool) {
	ev := log.Error()
	if ambiguous {
		ev = ev.Bool("ambiguous", true)
	}
	ev.Str("event", "operation_failed").
		Str("op", op).
		Err(err).
		Msg("operation failed")
}
