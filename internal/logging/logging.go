// Package logging provides application-wide logging configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var debugEnabled bool

// Init initializes the global logger with console output.
func Init(debug bool) {
	debugEnabled = debug
	zerolog.SetGlobalLevel(level(debug))
	log.Logger = log.Output(consoleWriter())
}

// InitWithFile initializes the global logger with console output plus a
// timestamped log file under dir. It returns the log file path.
func InitWithFile(debug bool, dir string) (string, error) {
	debugEnabled = debug
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("sitesmith_%s.log", time.Now().UTC().Format("20060102_150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	zerolog.SetGlobalLevel(level(debug))
	log.Logger = log.Output(zerolog.MultiLevelWriter(consoleWriter(), fileWriter(file)))
	return path, nil
}

// DebugEnabled reports whether debug logging is enabled.
func DebugEnabled() bool {
	return debugEnabled
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

func fileWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
}
