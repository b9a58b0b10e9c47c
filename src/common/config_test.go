package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_Defaults(t *testing.T) {
	config, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, 8888, config.Server.Port)
	assert.Equal(t, "elastic", config.Storage.Backend)
	assert.Equal(t, "5s", config.Search.Timeout)
	assert.Equal(t, "300s", config.Search.CacheTTL)
	assert.Equal(t, 480, config.Images.ReviewWidth)
}

func TestLoadFromFile_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "placefinder.toml")
	content := `
[server]
port = 9000

[storage]
backend = "badger"

[storage.badger]
path = "/tmp/places"

[auth.users]
alice = "$2a$10$hash"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("PLACES_SERVER_PORT", "9100")
	t.Setenv("MY_SIGNING_KEY", "secret")

	config, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port, "env overrides file")
	assert.Equal(t, "badger", config.Storage.Backend)
	assert.Equal(t, "/tmp/places", config.Storage.Badger.Path)
	assert.Equal(t, "secret", config.Auth.SigningKey)
	assert.Equal(t, "$2a$10$hash", config.Auth.Users["alice"])
	assert.Equal(t, "localhost", config.Server.Host, "unset values keep defaults")
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 0)
	assert.Equal(t, 8888, config.Server.Port)

	ApplyFlagOverrides(config, 7000)
	assert.Equal(t, 7000, config.Server.Port)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("-1s", time.Minute))
}
