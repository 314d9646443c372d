package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerJSONCarriesServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "staging", LogFormat: "json", LogLevel: "warn"}, &buf)

	logger.Info("dropped")
	require.Zero(t, buf.Len())

	logger.Warn("posting rejected")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "posting rejected", entry["msg"])
	require.Equal(t, "odyssey-gl", entry["service"])
	require.Equal(t, "staging", entry["env"])
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	require.Equal(t, "INFO", parseLevel("verbose").String())
	require.Equal(t, "DEBUG", parseLevel(" Debug ").String())
}
