// Package logging builds the structured zerolog logger shared by the
// daemon and the client binaries.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	// ServerLogPath is the daemon's log sink (spec §6). The daemon always
	// logs here, regardless of verbosity.
	ServerLogPath = "/tmp/hyprvisor-server.log"
	// ClientLogPath is the client's log sink (spec §6).
	ClientLogPath = "/tmp/hyprvisor-client.log"
)

// New opens path for append and returns a zerolog.Logger writing to it. If
// tee is true, the logger additionally writes to stdout (the client's
// --verbose behavior). Failure to open the log file is a LoggerError,
// fatal at startup per spec §7.
func New(path string, verbose, tee bool) (zerolog.Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("logging: open %s: %w", path, err)
	}

	var out io.Writer = f
	if tee {
		out = io.MultiWriter(f, os.Stdout)
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()

	return logger, nil
}
