package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Service string
	Version string
	// Level is a zerolog level name; empty means info.
	Level string
	// Console renders human-readable lines instead of JSON.
	Console bool
	Output  io.Writer
}

// NewLogger creates a structured logger tagged with service, version and
// host.
func NewLogger(opts LoggerOptions) (zerolog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
		level = l
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.Service)
	if opts.Version != "" {
		ctx = ctx.Str("version", opts.Version)
	}
	if !opts.Console {
		ctx = ctx.Str("host", getHostname())
	}
	return ctx.Logger(), nil
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
