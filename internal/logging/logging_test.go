package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestSetup_FileOutput(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	path := filepath.Join(t.TempDir(), "logs", "mudra.log")
	cfg := DefaultConfig()
	cfg.Level = "warn"
	cfg.File = path
	cfg.Console = false

	closeFn, err := Setup(cfg)
	require.NoError(t, err)

	log.Info().Msg("dropped")
	log.Warn().Str("component", "test").Msg("kept")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"kept"`)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.NotContains(t, string(data), "dropped")
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	w, closeFn, err := writer(Config{Console: true}, &buf)
	require.NoError(t, err)
	defer closeFn()

	logger := zerolog.New(w)
	logger.Info().Str("gesture", "zoom_in").Msg("dispatched")
	assert.Contains(t, buf.String(), "dispatched")
	assert.Contains(t, buf.String(), "zoom_in")
}

func TestWriter_Discard(t *testing.T) {
	w, _, err := writer(Config{}, nil)
	require.NoError(t, err)
	n, err := w.Write([]byte("x"))
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
