// Package obslog wires the scheduler's structured logging to
// github.com/joeycumines/logiface, backed by github.com/rs/zerolog via the
// github.com/joeycumines/izerolog adapter.
package obslog

import (
	"io"
	"os"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Logger is the concrete logger type the scheduler accepts: a logiface
// Logger parameterized over izerolog's Event implementation.
type Logger = logiface.Logger[*izerolog.Event]

// New builds a Logger that writes newline-delimited JSON to w at level and
// above.
func New(w io.Writer, level logiface.Level) *Logger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return izerolog.L.New(
		izerolog.L.WithZerolog(zl),
		izerolog.L.WithLevel(level),
	)
}

// Default returns a Logger writing to os.Stderr at Informational level and
// above, suitable as the scheduler's zero-value default.
func Default() *Logger {
	return New(os.Stderr, logiface.LevelInformational)
}

// NoOp returns a Logger configured to discard everything, for tests and for
// callers that want the ambient stack present but silent.
func NoOp() *Logger {
	return New(io.Discard, logiface.LevelDisabled)
}

// toZerologLevel maps a logiface syslog-style level onto the closest
// zerolog level. logiface levels increase in verbosity (LevelError <
// LevelWarning < LevelInformational < LevelDebug); anything at or below
// LevelDisabled silences the underlying zerolog logger entirely.
func toZerologLevel(level logiface.Level) zerolog.Level {
	switch {
	case level <= logiface.LevelDisabled:
		return zerolog.Disabled
	case level <= logiface.LevelError:
		return zerolog.ErrorLevel
	case level <= logiface.LevelWarning:
		return zerolog.WarnLevel
	case level <= logiface.LevelInformational:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
