package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handbook.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "./handbook.db", cfg.Storage.Path)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9001
storage:
  type: file
  dir: ./snapshots
  debounce: 250ms
export:
  answer_key: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset fields keep defaults")
	assert.Equal(t, "file", cfg.Storage.Type)
	assert.Equal(t, "./snapshots", cfg.Storage.Dir)
	assert.True(t, cfg.Export.AnswerKey)

	d, err := cfg.DebounceInterval()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestLoadRejectsBadStorageType(t *testing.T) {
	path := writeConfig(t, "storage:\n  type: tape\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a: mapping\n")
	_, err := Load(path)
	assert.Error(t, err, "malformed yaml must not fall back to defaults silently")
}

func TestLoadRejectsBadDebounce(t *testing.T) {
	path := writeConfig(t, "storage:\n  debounce: soon\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 123456\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestTimeoutDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 30*time.Second, cfg.ImageHostTimeout())
	assert.Equal(t, 15*time.Second, cfg.SuggestionsTimeout())

	cfg.ImageHost.Timeout = "2s"
	cfg.Suggestions.Timeout = "3s"
	assert.Equal(t, 2*time.Second, cfg.ImageHostTimeout())
	assert.Equal(t, 3*time.Second, cfg.SuggestionsTimeout())

	cfg.ImageHost.Timeout = "garbage"
	assert.Equal(t, 30*time.Second, cfg.ImageHostTimeout(), "unparsable timeout falls back to default")
}
