package obs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesToOutputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")

	log, err := NewLogger(LogConfig{Level: "debug", App: "studybuddy-auth", Ver: "1.0.0", Outputs: []string{path}})
	require.NoError(t, err)
	log.Debug("hello")
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "studybuddy-auth", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.NotContains(t, entry, "env")
	assert.Contains(t, entry, "caller")
}

func TestNewLogger_UnknownLevelIsInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.log")

	log, err := NewLogger(LogConfig{Level: "loud", Pretty: true, NoCaller: true, Outputs: []string{path}})
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("shown")
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hidden")
	assert.Contains(t, string(raw), "shown")
}
