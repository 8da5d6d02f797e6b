package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-forecast-lab/internal/features"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, int64(12), cfg.CommunityID)
	assert.Equal(t, 45, cfg.TrainDays)
	assert.Equal(t, 24, cfg.FillLimit)
	assert.Equal(t, 100, cfg.MinTrainRows)
	assert.Equal(t, features.DefaultSpec(), cfg.Spec)
	assert.False(t, cfg.IsProd())
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("COMMUNITY_ID", "7")
	t.Setenv("TRAIN_DAYS", "30")
	t.Setenv("FEATURE_LAGS", "24,168")
	t.Setenv("FEATURE_WINDOWS", "24")
	t.Setenv("FEATURE_DIFFS", "")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.CommunityID)
	assert.Equal(t, 30, cfg.TrainDays)
	assert.Equal(t, []int{24, 168}, cfg.Spec.Lags)
	assert.Equal(t, []int{24}, cfg.Spec.RollingWindows)
	assert.Empty(t, cfg.Spec.Diffs)
	assert.True(t, cfg.IsProd())
}

func TestLoadFile_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MIN_TRAIN_ROWS=250\nFILL_LIMIT_HOURS=6\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MIN_TRAIN_ROWS")
		os.Unsetenv("FILL_LIMIT_HOURS")
	})

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.MinTrainRows)
	assert.Equal(t, 6, cfg.FillLimit)
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Setenv("FEATURE_WINDOWS", "1")
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, features.ErrInvalidSpec)
}
