// Package logging sets up the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// ParseLevel converts a string log level to a zerolog.Level, defaulting to
// info for unknown values.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup builds the root logger: colored console output, plus plain console
// format to file when file is non-nil, plus any extra writers (e.g. GELF).
// Timestamps are UTC RFC3339.
func Setup(level string, file io.Writer, extra ...io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
	}
	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	for _, w := range extra {
		if w != nil {
			writers = append(writers, w)
		}
	}

	mlw := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(mlw).With().Timestamp().Logger()
}

// NewGelfWriter connects a GELF writer for shipping logs to Graylog.
func NewGelfWriter(address string) (io.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("failed to create GELF writer: %w", err)
	}
	return w, nil
}

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}
