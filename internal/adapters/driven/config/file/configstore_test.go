package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStoreStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	_, ok := store.Get(KeyDataDir)
	assert.False(t, ok)
	assert.Empty(t, store.GetString(KeyDataDir))
	assert.Zero(t, store.GetInt(KeyDebounceIntervalMS))
	assert.False(t, store.GetBool("verbose"))
}

func TestSetPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set(KeyDataDir, "/var/lib/scour"))
	require.NoError(t, store.Set(KeyDebounceIntervalMS, 100))

	// A fresh store picks up the persisted values.
	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/scour", reloaded.GetString(KeyDataDir))
	assert.Equal(t, 100, reloaded.GetInt(KeyDebounceIntervalMS))
}

func TestLoadFlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `
data_dir = "/data"

[engine]
rate_per_second = 200
burst = 16
max_file_size = 1048576
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "/data", store.GetString(KeyDataDir))
	assert.Equal(t, 200, store.GetInt(KeyEngineRatePerSecond))
	assert.Equal(t, 16, store.GetInt(KeyEngineBurst))
	assert.Equal(t, 1048576, store.GetInt(KeyEngineMaxFileSize))
}

func TestTypedGettersTolerateMismatchedTypes(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("key", "not a number"))
	assert.Zero(t, store.GetInt("key"))
	assert.False(t, store.GetBool("key"))

	require.NoError(t, store.Set("count", 42))
	assert.Empty(t, store.GetString("count"))
}

func TestFilePermissionsAreRestricted(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyDataDir, "/data"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
