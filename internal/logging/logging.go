// ABOUTME: Logger construction for the player
// ABOUTME: Console-formatted zerolog output to a file, optionally echoed to stdout
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Config holds logging configuration
type Config struct {
	File   string
	Level  string
	Stream bool      // also write to Stdout
	Stdout io.Writer // defaults to os.Stdout
}

// New opens the log file and builds the root logger. The returned close
// function releases the file.
func New(config Config) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if config.Level != "" {
		parsed, err := zerolog.ParseLevel(config.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
		}
		level = parsed
	}

	f, err := os.OpenFile(config.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("error opening log file: %w", err)
	}

	var w io.Writer = zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}

	if config.Stream {
		stdout := config.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		w = zerolog.MultiLevelWriter(w, zerolog.ConsoleWriter{
			Out:        stdout,
			TimeFormat: "15:04:05",
			NoColor:    stdout != os.Stdout,
		})
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Int("pid", os.Getpid()).Logger()
	return logger, f.Close, nil
}
