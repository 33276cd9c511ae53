package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "Asia/Jakarta", cfg.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 2*time.Second, cfg.Sweep.Pace)
	assert.Equal(t, 3, cfg.Dispatch.RetryBudget)
	assert.Equal(t, "remindd.outbound", cfg.NATS.SubjectPrefix)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data_dir: /var/lib/remindd
sweep:
  interval: 1m
  pace: 500ms
dispatch:
  retry_budget: 5
nats:
  url: nats://broker:4222
log:
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/remindd", cfg.DataDir)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 500*time.Millisecond, cfg.Sweep.Pace)
	assert.Equal(t, 5, cfg.Dispatch.RetryBudget)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Asia/Jakarta\n"), 0600))

	t.Setenv("REMINDD_SWEEP_INTERVAL", "2m")
	t.Setenv("REMINDD_NATS_SUBJECT_PREFIX", "campus.outbound")
	t.Setenv("REMINDD_DATA_DIR", "/srv/remindd")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, "campus.outbound", cfg.NATS.SubjectPrefix)
	assert.Equal(t, "/srv/remindd", cfg.DataDir)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad timezone", "timezone: Mars/Olympus\n", "invalid timezone"},
		{"negative retry budget", "dispatch:\n  retry_budget: -1\n", "retry_budget"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
		{"negative interval", "sweep:\n  interval: -1m\n", "sweep.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0600))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestTransformEnvKey(t *testing.T) {
	assert.Equal(t, "sweep.interval", transformEnvKey("REMINDD_SWEEP_INTERVAL"))
	assert.Equal(t, "nats.subject_prefix", transformEnvKey("REMINDD_NATS_SUBJECT_PREFIX"))
	assert.Equal(t, "data_dir", transformEnvKey("REMINDD_DATA_DIR"))
	assert.Equal(t, "timezone", transformEnvKey("REMINDD_TIMEZONE"))
}
