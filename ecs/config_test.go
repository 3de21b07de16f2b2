package ecs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pulsar-engine/pulsar/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_rate: 30\nworkers: 4\nfixed_delta: 0.0333\n"), 0o644))

	cfg, err := ecs.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.TickRate)
	assert.Equal(t, 4, cfg.Workers)
	assert.InDelta(t, 0.0333, cfg.FixedDelta, 1e-9)
	assert.Equal(t, time.Second/30, cfg.Interval())
	assert.Len(t, cfg.SchedulerOptions(), 1)
	assert.Len(t, cfg.RuntimeOptions(), 1)
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	cfg, err := ecs.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.TickRate)
	assert.Zero(t, cfg.Workers)
	assert.Empty(t, cfg.SchedulerOptions())
	assert.Empty(t, cfg.RuntimeOptions())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := ecs.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_rate: [oops\n"), 0o644))
	_, err = ecs.LoadConfig(path)
	assert.Error(t, err)
}
