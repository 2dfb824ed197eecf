package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/jrick/logrotate/rotator"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

// Rotation defaults for the log file.
const (
	DefaultLogThresholdKB = 10 * 1024
	DefaultLogMaxRolls    = 3
)

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

// Logger writes levelled lines to a size-rotated log file.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	out      io.WriteCloser
	filePath string
}

// NewLogger creates a logger with the default rotation policy.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	return NewRotatingLogger(level, filePath, DefaultLogThresholdKB, DefaultLogMaxRolls)
}

// NewRotatingLogger creates a logger whose file is rolled once it grows past
// thresholdKB, keeping at most maxRolls old files.
func NewRotatingLogger(level LogLevel, filePath string, thresholdKB int64, maxRolls int) (*Logger, error) {
	logger := &Logger{
		level:    level,
		filePath: filePath,
	}

	if level == LogLevelOff || filePath == "" {
		return logger, nil
	}

	filePath, err := ExpandPath(filePath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	if thresholdKB <= 0 {
		thresholdKB = DefaultLogThresholdKB
	}
	if maxRolls <= 0 {
		maxRolls = DefaultLogMaxRolls
	}

	r, err := rotator.New(filePath, thresholdKB, false, maxRolls)
	if err != nil {
		return nil, fmt.Errorf("failed to create file rotator: %w", err)
	}

	logger.out = r
	logger.filePath = filePath

	return logger, nil
}

// NewLoggerFromConfig builds the logger described by the logging section.
func NewLoggerFromConfig(cfg LoggingConfig) (*Logger, error) {
	return NewRotatingLogger(ParseLogLevel(cfg.Level), cfg.File, cfg.MaxSizeKB, cfg.MaxRolls)
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out != nil {
		err := l.out.Close()
		l.out = nil
		return err
	}
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Path returns the resolved log file path.
func (l *Logger) Path() string {
	return l.filePath
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// Dump logs a deep dump of v at debug level.
func (l *Logger) Dump(label string, v any) {
	if l.Level() < LogLevelDebug {
		return
	}
	l.log(LogLevelDebug, "%s:\n%s", label, strings.TrimRight(spew.Sdump(v), "\n"))
}

// Writer returns an io.Writer that writes to the logger at the specified level.
func (l *Logger) Writer(level LogLevel) io.Writer {
	return &logWriter{logger: l, level: level}
}

// log writes a log message if the level is appropriate.
func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level == LogLevelOff || level > l.level || l.out == nil {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	levelStr := strings.ToUpper(level.String())
	msg := fmt.Sprintf(format, args...)

	_, _ = fmt.Fprintf(l.out, "%s [%s] %s\n", timestamp, levelStr, msg)
}

// logWriter implements io.Writer for the logger.
type logWriter struct {
	logger *Logger
	level  LogLevel
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.logger.log(w.level, "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{level: LogLevelOff}
}
