package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresLicenseAPIURL(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LICENSE_API_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LICENSE_API_URL", "https://licenses.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 1024, cfg.MinImageDimension)
	assert.Equal(t, 50, cfg.MaxBrushCount)
	assert.Equal(t, 100, cfg.MaxArchiveEntries())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.UploadBurst)
	assert.NotEmpty(t, cfg.WorkDir)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LICENSE_API_URL", "https://licenses.example.com")
	t.Setenv("MIN_IMAGE_DIMENSION", "512")
	t.Setenv("MAX_BRUSH_COUNT", "10")
	t.Setenv("SESSION_TTL_MINUTES", "5")
	t.Setenv("WORK_DIR", "/var/lib/proconverter")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.MinImageDimension)
	assert.Equal(t, 20, cfg.MaxArchiveEntries())
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "/var/lib/proconverter", cfg.WorkDir)
}

func TestLoad_RejectsBadIntegers(t *testing.T) {
	t.Setenv("LICENSE_API_URL", "https://licenses.example.com")
	t.Setenv("MAX_BRUSH_COUNT", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_BRUSH_COUNT")
}

func TestLoad_RejectsNonPositiveDimension(t *testing.T) {
	t.Setenv("LICENSE_API_URL", "https://licenses.example.com")
	t.Setenv("MIN_IMAGE_DIMENSION", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIN_IMAGE_DIMENSION")
}
