package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Setenv(ClientIDEnv, "")
	t.Setenv(APIKeyEnv, "")
	t.Setenv(TimeoutEnv, "")
}

func TestNewDefaults(t *testing.T) {
	s := New(" id ", "key")

	assert.Equal(t, "id", s.ClientID)
	assert.Equal(t, "key", s.APIKey)
	assert.Equal(t, DefaultTimeout, s.Timeout)
	assert.Equal(t, DefaultBaseURL, s.BaseURL)
	assert.True(t, s.HasCredentials())
}

func TestNewOptions(t *testing.T) {
	s := New("id", "key", WithTimeout(3*time.Second), WithBaseURL("http://localhost:1234/"))

	assert.Equal(t, 3*time.Second, s.Timeout)
	assert.Equal(t, "http://localhost:1234", s.BaseURL)

	// non-positive timeouts keep the default
	assert.Equal(t, DefaultTimeout, New("id", "key", WithTimeout(0)).Timeout)
}

func TestHasCredentials(t *testing.T) {
	assert.False(t, New("", "key").HasCredentials())
	assert.False(t, New("id", "").HasCredentials())
	assert.False(t, Settings{}.HasCredentials())
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(ClientIDEnv, "env-id")
	t.Setenv(APIKeyEnv, "env-key")
	t.Setenv(TimeoutEnv, "2s")

	s := FromEnv()

	assert.Equal(t, "env-id", s.ClientID)
	assert.Equal(t, "env-key", s.APIKey)
	assert.Equal(t, 2*time.Second, s.Timeout)
}

func TestFromEnvIgnoresBadTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv(TimeoutEnv, "soon")

	assert.Equal(t, DefaultTimeout, FromEnv().Timeout)
}

func TestConfigureAndActive(t *testing.T) {
	clearEnv(t)
	Reset()
	t.Cleanup(Reset)

	assert.False(t, Active().HasCredentials())

	Configure("id", "key", WithTimeout(5*time.Second))

	s := Active()
	assert.Equal(t, "id", s.ClientID)
	assert.Equal(t, 5*time.Second, s.Timeout)

	// the returned copy does not leak into the active settings
	s.APIKey = "changed"
	assert.Equal(t, "key", Active().APIKey)

	Reset()
	t.Setenv(ClientIDEnv, "env-id")
	t.Setenv(APIKeyEnv, "env-key")
	assert.Equal(t, "env-id", Active().ClientID)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(APIKeyEnv, "env-key")

	path := filepath.Join(t.TempDir(), "bahnapi.toml")
	content := `
client_id = "file-id"
timeout = 4
base_url = "http://example.test/v1/"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "file-id", s.ClientID)
	assert.Equal(t, "env-key", s.APIKey)
	assert.Equal(t, 4*time.Second, s.Timeout)
	assert.Equal(t, "http://example.test/v1", s.BaseURL)
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("client_id = "), 0644))
	_, err = LoadFile(broken)
	assert.Error(t, err)

	negative := filepath.Join(dir, "negative.toml")
	require.NoError(t, os.WriteFile(negative, []byte("timeout = -1"), 0644))
	_, err = LoadFile(negative)
	assert.Error(t, err)
}
