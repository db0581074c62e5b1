// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/config"
)

// New creates a zerolog logger writing to cfg.Output.
// Output is "stdout", "stderr" or a file path opened for append.
// The returned closer releases the file, if any.
func New(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var out io.Writer
	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	return NewWithWriter(out, level, cfg.Format, timeFormat), closer, nil
}

// NewWithWriter creates a logger on an explicit writer.
func NewWithWriter(out io.Writer, level zerolog.Level, format, timeFormat string) zerolog.Logger {
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	} else {
		zerolog.TimeFieldFormat = timeFormat
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
