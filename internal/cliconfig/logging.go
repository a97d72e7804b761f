package cliconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Logger returns the bootstrap console logger used before configuration
// is loaded.
func Logger() zerolog.Logger {
	return logger
}

// NewLogger builds the process logger from the configured level and file.
// With a log file, JSON records go to a rotating file and the console is
// left to the notification display. The returned closer releases the file.
func NewLogger(cfg Config, console io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	if cfg.LogFile == "" {
		out := zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
		return zerolog.New(out).Level(level).With().Timestamp().Logger(), nopCloser{}, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	l := zerolog.New(rotator).Level(level).With().Timestamp().Logger()
	return l, rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
