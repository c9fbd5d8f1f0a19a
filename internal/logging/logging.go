// Package logging builds the zerolog loggers handed to autotune components.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalnine/autotune/internal/errs"
)

// Field keys shared by all components.
const (
	ComponentKey = "component"
	WorkerKey    = "worker"
	SeedKey      = "seed"
	HashKey      = "hash"
	PartitionKey = "partition"
)

// ParseLevel converts a textual level into a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, errs.NewInvalidParameter("log-level", "unknown log level", level)
	}
}

// New returns a logger writing to w. When pretty is set the output is the
// human-readable console format instead of JSON lines.
func New(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Component derives a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(ComponentKey, name).Logger()
}

// Err attaches err to the event, preferring the structured form when the
// error carries one.
func Err(ev *zerolog.Event, err error) *zerolog.Event {
	if obj, ok := errs.LogObject(err); ok {
		return ev.Object("error", obj).Str("message_detail", err.Error())
	}
	return ev.Err(err)
}
