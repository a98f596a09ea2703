// Package logging configures the process-wide slog default logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Supported logging output formats.
const (
	JSON = "json"
	Text = "text"
	Tint = "tint"
)

// Initialize parses the level name, builds a handler of the requested
// format writing to stderr, and installs it as the slog default.
func Initialize(loggingType, logLevelName string) error {
	return initialize(os.Stderr, loggingType, logLevelName)
}

func initialize(w io.Writer, loggingType, logLevelName string) error {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(logLevelName)); err != nil {
		return fmt.Errorf("could not parse log level: %w", err)
	}

	handler, err := newHandler(w, loggingType, logLevel)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(handler))
	slog.Debug("logging initialized", "logLevel", logLevel, "loggingType", loggingType)
	return nil
}

func newHandler(w io.Writer, loggingType string, level slog.Level) (slog.Handler, error) {
	options := &slog.HandlerOptions{Level: level}

	switch loggingType {
	case JSON:
		return slog.NewJSONHandler(w, options), nil
	case Text:
		return slog.NewTextHandler(w, options), nil
	case Tint:
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}), nil
	default:
		return nil, fmt.Errorf("unknown logging type: %s", loggingType)
	}
}
