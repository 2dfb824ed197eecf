package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/timelock/internal/config"
)

// readLogFile closes the logger and returns the file content.
func readLogFile(t *testing.T, logger *config.Logger, path string) string {
	t.Helper()
	require.NoError(t, logger.Close())
	// #nosec G304 -- test file path
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected config.LogLevel
	}{
		{"off", "off", config.LogLevelOff},
		{"none", "none", config.LogLevelOff},
		{"error uppercase", "ERROR", config.LogLevelError},
		{"debug with whitespace", "  debug  ", config.LogLevelDebug},
		{"unknown falls back to error", "warn", config.LogLevelError},
		{"empty falls back to error", "", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "off", config.LogLevelOff.String())
	assert.Equal(t, "error", config.LogLevelError.String())
	assert.Equal(t, "debug", config.LogLevelDebug.String())
	assert.Equal(t, "error", config.LogLevel(99).String())
}

func TestNewLogger_LevelOffOrEmptyPath(t *testing.T) {
	t.Parallel()
	logger, err := config.NewLogger(config.LogLevelOff, "")
	require.NoError(t, err)
	assert.Equal(t, config.LogLevelOff, logger.Level())

	logger, err = config.NewLogger(config.LogLevelDebug, "")
	require.NoError(t, err)
	logger.Debug("goes nowhere")
	logger.Error("goes nowhere")
	require.NoError(t, logger.Close())
}

func TestNewLogger_WritesLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "timelock.log")

	logger, err := config.NewLogger(config.LogLevelDebug, path)
	require.NoError(t, err)
	assert.Equal(t, path, logger.Path())

	logger.Debug("deploy nonce %d", 6)
	logger.Error("receipt wait failed: %s", "timeout")

	content := readLogFile(t, logger, path)
	assert.Contains(t, content, "[DEBUG] deploy nonce 6")
	assert.Contains(t, content, "[ERROR] receipt wait failed: timeout")
}

func TestNewLogger_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := config.NewLogger(config.LogLevelDebug, "/proc/nonexistent/test.log")
	assert.Error(t, err)
}

func TestNewLoggerFromConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cfg.log")
	logger, err := config.NewLoggerFromConfig(config.LoggingConfig{
		Level:     "error",
		File:      path,
		MaxSizeKB: 1,
		MaxRolls:  1,
	})
	require.NoError(t, err)

	logger.Debug("filtered")
	logger.Error("kept")

	content := readLogFile(t, logger, path)
	assert.NotContains(t, content, "filtered")
	assert.Contains(t, content, "kept")
}

func TestNullLogger(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()
	assert.Equal(t, config.LogLevelOff, logger.Level())
	logger.Debug("test debug")
	logger.Error("test error")
	logger.Dump("intent", struct{ A int }{1})
	assert.NoError(t, logger.Close())
}

func TestLogger_SetLevel(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()
	logger.SetLevel(config.LogLevelDebug)
	assert.Equal(t, config.LogLevelDebug, logger.Level())
	logger.SetLevel(config.LogLevelOff)
	assert.Equal(t, config.LogLevelOff, logger.Level())
}

func TestLogger_Dump(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "dump.log")
	logger, err := config.NewLogger(config.LogLevelDebug, path)
	require.NoError(t, err)

	logger.Dump("intent", struct {
		Operation string
		Nonce     uint64
	}{"deploy", 6})

	content := readLogFile(t, logger, path)
	assert.Contains(t, content, "intent:")
	assert.Contains(t, content, "Operation: (string) (len=6) \"deploy\"")
	assert.Contains(t, content, "Nonce: (uint64) 6")
}

func TestLogger_Writer(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "writer.log")
	logger, err := config.NewLogger(config.LogLevelError, path)
	require.NoError(t, err)

	_, err = logger.Writer(config.LogLevelError).Write([]byte("  from writer \n"))
	require.NoError(t, err)
	_, err = logger.Writer(config.LogLevelDebug).Write([]byte("hidden"))
	require.NoError(t, err)

	content := readLogFile(t, logger, path)
	assert.Contains(t, content, "[ERROR] from writer")
	assert.NotContains(t, content, "hidden")
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "concurrent.log")
	logger, err := config.NewLogger(config.LogLevelDebug, path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Debug("message %d", n)
		}(i)
	}
	wg.Wait()

	content := readLogFile(t, logger, path)
	assert.Equal(t, 20, strings.Count(content, "[DEBUG]"))
}
