package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"DEBUG", log.DebugLevel},
		{"bogus", log.InfoLevel},
		{"", log.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLogLevel(tt.input), "level %q", tt.input)
	}
}

func TestConfigure_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptd.log")
	require.NoError(t, Configure("debug", path))
	defer func() {
		require.NoError(t, Configure("info", ""))
	}()

	Info("configured message", "thread_id", "t1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "configured message")
	assert.Contains(t, string(data), "t1")
}

func TestConfigure_EnvLevelFallback(t *testing.T) {
	t.Setenv("PROMPTD_LOG_LEVEL", "error")
	require.NoError(t, Configure("", ""))
	defer func() {
		require.NoError(t, Configure("info", ""))
	}()

	assert.Equal(t, log.ErrorLevel, Logger.GetLevel())
}

func TestNewStyledLogger(t *testing.T) {
	styled := NewStyledLogger("router")

	assert.Equal(t, "router ", styled.GetPrefix())
	assert.Equal(t, Logger.GetLevel(), styled.GetLevel())
}
