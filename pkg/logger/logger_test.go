package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "service.log")

	log, err := New(path, "info")
	require.NoError(t, err)

	log.Debug("hidden message %d", 1)
	log.Info("queue recalculated for salon=%d", 42)
	log.Warn("salon=%d has alerts disabled", 7)
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "queue recalculated for salon=42")
	assert.Contains(t, content, "salon=7 has alerts disabled")
	assert.NotContains(t, content, "hidden message")
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := New("", "chatty")
	require.ErrorIs(t, err, ErrInvalidLevel)
}
