// Package logging provides structured logging for both CLI and GUI modes.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog with mode-specific behavior.
type Logger struct {
	zlog   zerolog.Logger
	mode   string    // "cli" or "gui"
	output io.Writer // current output writer
}

// NewLogger creates a new logger for the specified mode.
func NewLogger(mode string) *Logger {
	var out *os.File
	if mode == "cli" {
		// CLI mode: stdout for logs, stderr is reserved for the readiness spinner
		out = os.Stdout
	} else {
		out = os.Stderr
	}

	output := consoleWriter(out, !isTerminal(out))
	return &Logger{
		zlog:   zerolog.New(output).With().Timestamp().Logger(),
		mode:   mode,
		output: output,
	}
}

// NewDefaultCLILogger creates a default CLI logger.
func NewDefaultCLILogger() *Logger {
	return NewLogger("cli")
}

// NewWriterLogger creates a logger writing plain console lines to w.
func NewWriterLogger(w io.Writer) *Logger {
	output := consoleWriter(w, true)
	return &Logger{
		zlog:   zerolog.New(output).With().Timestamp().Logger(),
		mode:   "cli",
		output: output,
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), mode: "nop", output: io.Discard}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// WithField returns a copy of the logger carrying key=value on every line.
func (l *Logger) WithField(key, value string) *Logger {
	return &Logger{
		zlog:   l.zlog.With().Str(key, value).Logger(),
		mode:   l.mode,
		output: l.output,
	}
}

// TeeToFile additionally writes plain-text log lines to a rotating file
// at path. The returned closer releases the file; GUI mode keeps it open
// for the lifetime of the process.
func (l *Logger) TeeToFile(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB per file
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	output := zerolog.MultiLevelWriter(l.output, consoleWriter(f, true))
	l.output = output
	l.zlog = zerolog.New(output).With().Timestamp().Logger()
	return f, nil
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// ConfigureLevel applies the debug switches shared by CLI and GUI.
// GLINTLOCK_DEBUG in the environment forces debug level.
func ConfigureLevel(debug bool) {
	if debug || os.Getenv("GLINTLOCK_DEBUG") != "" {
		SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	SetGlobalLevel(zerolog.InfoLevel)
}

func consoleWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(consoleWriter(os.Stderr, !isTerminal(os.Stderr)))
}
