package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_load_config(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simple.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
code-size = 65536
stack-slots = 2000
verbosity = 2
`), 0644))

	t.Setenv("SIMPLE_CONFIG", path)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 65536, cfg.CodeSize)
	assert.Equal(t, 2000, cfg.StackSlots)
	assert.Equal(t, 2, cfg.Verbosity)
}

func Test_load_config_missing_file_means_defaults(t *testing.T) {
	t.Setenv("SIMPLE_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Zero(t, cfg.CodeSize)
	assert.Zero(t, cfg.StackSlots)
	assert.Zero(t, cfg.Verbosity)
}

func Test_load_config_rejects_bad_toml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simple.toml")
	require.NoError(t, os.WriteFile(path, []byte(`code-size = "lots"`), 0644))

	t.Setenv("SIMPLE_CONFIG", path)

	_, err := loadConfig()
	assert.Error(t, err)
}
