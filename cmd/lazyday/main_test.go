package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazyday/internal/config"
)

func TestEnsureVAPIDKeys(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, ensureVAPIDKeys(&cfg))
	assert.NotEmpty(t, cfg.Push.VAPIDPublicKey)
	assert.NotEmpty(t, cfg.Push.VAPIDPrivateKey)

	public, private := cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey
	require.NoError(t, ensureVAPIDKeys(&cfg))
	assert.Equal(t, public, cfg.Push.VAPIDPublicKey)
	assert.Equal(t, private, cfg.Push.VAPIDPrivateKey)
}

func TestNewLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)

	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestOpenLogFileCreatesDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")
	f, err := openLogFile(dataDir)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = os.Stat(filepath.Join(dataDir, "lazyday.log"))
	assert.NoError(t, err)
}
