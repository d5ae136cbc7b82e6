package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, "./data/rentguard.db", cfg.SQLite.Path)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 3600, cfg.Redis.ReportTTL)

	assert.Equal(t, "contracts", cfg.Minio.Bucket)
	assert.False(t, cfg.Minio.UseSSL)

	assert.Equal(t, 20, cfg.OCR.MaxPages)
	assert.Equal(t, 2, cfg.OCR.PagesPerRequest)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, float32(0), cfg.LLM.Temperature)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RENTGUARD_SERVER_PORT", "9090")
	t.Setenv("RENTGUARD_LLM_MODEL", "gpt-4o")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
}
