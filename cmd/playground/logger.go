package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func newLogger(out io.Writer, levelName string) (*zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if levelName != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(levelName))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %s: %w", levelName, err)
		}
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &logger, nil
}
