// Package logging builds the zerolog loggers used by the tools.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New
type Options struct {
	// Level is one of trace, debug, info, warn or error. Anything else is info.
	Level string
	// Console switches from JSON lines to the human readable console format
	Console bool
	// Out defaults to stderr
	Out io.Writer
	// File receives an uncoloured copy of every entry when set
	File io.Writer
}

// ParseLevel maps a configured level name to a zerolog level
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
}

// New returns a timestamped logger writing to the configured outputs
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	w := out
	if opts.File != nil {
		var file io.Writer = opts.File
		if opts.Console {
			file = zerolog.ConsoleWriter{Out: opts.File, TimeFormat: time.RFC3339, NoColor: true}
		}
		w = zerolog.MultiLevelWriter(out, file)
	}

	return zerolog.New(w).Level(ParseLevel(opts.Level)).With().Timestamp().Logger()
}

// Sampled limits a noisy per-eye logger to a burst of entries every period,
// then one in n
func Sampled(l zerolog.Logger, burst uint32, period time.Duration, n uint32) zerolog.Logger {
	return l.With().Bool("sampled", true).Logger().Sample(&zerolog.BurstSampler{
		Burst:       burst,
		Period:      period,
		NextSampler: &zerolog.BasicSampler{N: n},
	})
}
