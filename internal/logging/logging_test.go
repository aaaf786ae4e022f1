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

// Not parallel: Setup replaces process-wide logger state.

func restoreGlobals(t *testing.T) {
	t.Helper()
	logger := log.Logger
	level := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})
}

func TestSetupConsoleAndFile(t *testing.T) {
	restoreGlobals(t)

	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "pdmctl.log")

	require.NoError(t, Setup(Options{Level: "debug", File: file, Console: &console}))
	log.Debug().Str("port", "/dev/ttyUSB0").Msg("opening serial port")

	assert.Contains(t, console.String(), "opening serial port")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"port":"/dev/ttyUSB0"`)
	assert.Contains(t, string(data), `"caller":`)
}

func TestSetupDefaultLevel(t *testing.T) {
	restoreGlobals(t)

	var console bytes.Buffer
	require.NoError(t, Setup(Options{Console: &console}))

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestSetupInvalidLevel(t *testing.T) {
	restoreGlobals(t)

	err := Setup(Options{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}
