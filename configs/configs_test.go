package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "gomonitor", cfg.AppName)
	assert.Equal(t, "8000", cfg.WebServerPort)
	assert.Equal(t, "1.0.0", cfg.AppVersion)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.JobMinSleep)
	assert.Equal(t, 2*time.Second, cfg.JobMaxSleep)
	assert.Equal(t, 50, cfg.RateLimitRPS)
	assert.Equal(t, 4, cfg.AMQPWorkers)
	assert.Equal(t, "8001", cfg.MetricsPort)
	assert.False(t, cfg.IsProd())
	assert.Empty(t, cfg.RedisAddr())
}

func TestLoadConfig_EnvFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	content := "APP_NAME=fast-api-ex1\nAPP_ENV=production\nREDIS_HOST=cache\nJOB_MAX_SLEEP=3s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	t.Setenv("WEB_SERVER_PORT", "9090")

	cfg, err := LoadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, "fast-api-ex1", cfg.AppName)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
	assert.Equal(t, 3*time.Second, cfg.JobMaxSleep)
	assert.Equal(t, "9090", cfg.WebServerPort)
}

func TestHostname(t *testing.T) {
	assert.NotEmpty(t, Hostname())
	assert.Equal(t, Hostname(), Hostname())
}
