package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 30*time.Second, cfg.SchedulerInterval())
}

func TestLoadJSONWithComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
  // where documents live
  "data_dir": "/tmp/lazyday",
  "web_port": 8181,
  "scheduler": {
    "interval": "10s", /* faster sweeps */
    "quiet_start": "22:00",
    "quiet_end": "07:00"
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/lazyday", cfg.DataDir)
	assert.Equal(t, 8181, cfg.WebPort)
	assert.Equal(t, 10*time.Second, cfg.SchedulerInterval())
	assert.Equal(t, "22:00", cfg.Scheduler.QuietStart)
	// untouched fields keep their defaults
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestSaveLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.DataDir = "/srv/lazyday"
	cfg.Push.VAPIDPublicKey = "pub"
	cfg.Pages = []string{"health"}

	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "data_dir: /srv/lazyday")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadRejectsHalfQuietWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scheduler":{"quiet_start":"22:00"}}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSchedulerIntervalFallsBack(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.Interval = "soon"
	assert.Equal(t, 30*time.Second, cfg.SchedulerInterval())

	cfg.Scheduler.Interval = "-5s"
	assert.Equal(t, 30*time.Second, cfg.SchedulerInterval())
}
