package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MODERATION_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "patches-api", cfg.ServiceName)
	assert.Equal(t, 2*time.Hour, cfg.ActionTokenTTL)
	assert.Equal(t, "postgres", cfg.DBDriverName())
	assert.Equal(t, []string{"./scripts/create_manifest.py"}, cfg.AnalyzerArgs)
	assert.Zero(t, cfg.AnalyzerTimeout)
	assert.Equal(t, DevelopmentModerationSecret, cfg.ModerationSecret)
	assert.False(t, cfg.IsS3MirrorEnabled())
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, "*/15 * * * *", cfg.ActionTokenPurgeCron)
	assert.Equal(t, 1.0, cfg.TraceSampleRate)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", " SQLite ")
	t.Setenv("DISABLE_ACTION_TOKEN_CHECK", "true")
	t.Setenv("ANALYZER_ARGS", "-m analyzer --json")
	t.Setenv("ANALYZER_TIMEOUT", "45s")
	t.Setenv("PATCHES_S3_BUCKET", "patches")
	t.Setenv("PATCHES_S3_ACCESS_KEY_ID", "key")
	t.Setenv("PATCHES_S3_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriverName())
	assert.True(t, cfg.DisableActionTokenCheck)
	assert.Equal(t, []string{"-m", "analyzer", "--json"}, cfg.AnalyzerArgs)
	assert.Equal(t, 45*time.Second, cfg.AnalyzerTimeout)
	assert.True(t, cfg.IsS3MirrorEnabled())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "production without moderation secret", env: map[string]string{"ENVIRONMENT": "production", "MODERATION_SECRET": ""}},
		{name: "bucket without credentials", env: map[string]string{"PATCHES_S3_BUCKET": "patches"}},
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "mysql"}},
		{name: "blank storage dir", env: map[string]string{"STORAGE_DIR": "  "}},
		{name: "sample ratio above one", env: map[string]string{"TRACING_SAMPLE_RATIO": "1.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
