package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	AppEnv        string
	Port          string
	LogLevel      string
	LogFormat     string
	LicenseAPIURL string
	LicenseAPIKey string

	// WorkDir holds per-session scratch directories and packaged archives.
	WorkDir string

	// Conversion policy.
	MinImageDimension int
	MaxBrushCount     int
	MaxUploadMB       int

	// Abandoned sessions older than SessionTTL are swept by the janitor.
	SessionTTL time.Duration

	// Per-IP upload rate limiting.
	UploadRate  float64
	UploadBurst int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		LicenseAPIURL: getEnv("LICENSE_API_URL", ""),
		LicenseAPIKey: getEnv("LICENSE_API_KEY", ""),
		WorkDir:       getEnv("WORK_DIR", filepath.Join(os.TempDir(), "proconverter")),
	}

	if cfg.LicenseAPIURL == "" {
		return nil, fmt.Errorf("LICENSE_API_URL is required")
	}

	var err error
	if cfg.MinImageDimension, err = getEnvInt("MIN_IMAGE_DIMENSION", 1024); err != nil {
		return nil, err
	}
	if cfg.MinImageDimension <= 0 {
		return nil, fmt.Errorf("MIN_IMAGE_DIMENSION must be positive")
	}

	if cfg.MaxBrushCount, err = getEnvInt("MAX_BRUSH_COUNT", 50); err != nil {
		return nil, err
	}
	if cfg.MaxBrushCount <= 0 {
		return nil, fmt.Errorf("MAX_BRUSH_COUNT must be positive")
	}

	if cfg.MaxUploadMB, err = getEnvInt("MAX_UPLOAD_MB", 200); err != nil {
		return nil, err
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}

	ttl, err := getEnvInt("SESSION_TTL_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	cfg.SessionTTL = time.Duration(ttl) * time.Minute

	perMinute, err := getEnvInt("UPLOAD_RATE_PER_MINUTE", 30)
	if err != nil {
		return nil, err
	}
	if perMinute <= 0 {
		return nil, fmt.Errorf("UPLOAD_RATE_PER_MINUTE must be positive")
	}
	cfg.UploadRate = float64(perMinute) / 60.0

	if cfg.UploadBurst, err = getEnvInt("UPLOAD_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.UploadBurst <= 0 {
		return nil, fmt.Errorf("UPLOAD_BURST must be positive")
	}

	return cfg, nil
}

// MaxArchiveEntries is the anti zip-bomb bound: archives with more entries
// than twice the maximum brush count are rejected before extraction.
func (c *Config) MaxArchiveEntries() int {
	return c.MaxBrushCount * 2
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
