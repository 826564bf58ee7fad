package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uedlab/instctl/logger"
)

func TestLoadBench_Defaults(t *testing.T) {
	cfg, err := loadBench("")
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Temperature.Addr)
	assert.Equal(t, "GROUP5", cfg.Stage.Group)
	assert.Equal(t, "instctl.db", cfg.Archive.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadBench_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shutter:
  port: /dev/ttyS7
pressure:
  addr: 3
log:
  level: debug
`), 0o644))

	cfg, err := loadBench(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyS7", cfg.Shutter.Port)
	assert.Equal(t, 3, cfg.Pressure.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset keys fall back to the defaults.
	assert.Equal(t, 24, cfg.Temperature.Addr)
}

func TestLoadBench_MissingNamedFile(t *testing.T) {
	_, err := loadBench(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, logger.DebugLevel, level)

	level, err = parseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, logger.WarnLevel, level)

	_, err = parseLogLevel("verbose")
	assert.Error(t, err)
}
