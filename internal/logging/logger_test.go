package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/pmapp/internal/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel, "json", time.RFC3339)

	logger.Debug().Msg("hidden")
	logger.Info().Str("service", "test").Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := New(config.LoggingConfig{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Warn().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "loud"})
	require.Error(t, err)
}
