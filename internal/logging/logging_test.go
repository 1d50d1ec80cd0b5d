package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltyorg/projects/internal/config"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		configured string
		verbosity  int
		want       zerolog.Level
	}{
		{"", 0, zerolog.InfoLevel},
		{"warn", 0, zerolog.WarnLevel},
		{"error", 0, zerolog.ErrorLevel},
		{"debug", 0, zerolog.DebugLevel},
		{"info", 1, zerolog.DebugLevel},
		{"error", 2, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, level(tt.configured, tt.verbosity), "level(%q, %d)", tt.configured, tt.verbosity)
	}
}

func TestWriterWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "projects.log")
	var console bytes.Buffer

	w := writer(config.LogConfig{File: path, MaxSizeMB: 1}, &console)
	logger := zerolog.New(w)
	logger.Info().Msg("hello file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
	assert.Contains(t, console.String(), "hello file")
}

func TestFilePathForDB(t *testing.T) {
	assert.Equal(t, config.DefaultLogFilePath, FilePathForDB(""))

	got := FilePathForDB(filepath.Join("data", "projects.db"))
	assert.Equal(t, config.DefaultLogFilePath, filepath.Base(got))
	assert.Equal(t, "data", filepath.Base(filepath.Dir(got)))
}
