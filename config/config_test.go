package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "archive", cfg.Build.Backend)
	assert.Equal(t, int64(1024), cfg.Build.MinArtifactBytes)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 0.7, cfg.Generation.Temperature)
	assert.Equal(t, 40, cfg.Generation.TopK)
	assert.Equal(t, 0.95, cfg.Generation.TopP)
	assert.Equal(t, 2048, cfg.Generation.MaxOutputTokens)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "projects", cfg.Storage.ProjectsDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BUILD_BACKEND", "APKTOOL")
	t.Setenv("BUILD_TIMEOUT", "45s")
	t.Setenv("GEMINI_API_KEY", "abc123")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "apktool", cfg.Build.Backend)
	assert.Equal(t, 45*time.Second, cfg.Build.Timeout)
	assert.Equal(t, "abc123", cfg.Generation.APIKey)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("BUILD_BACKEND", "gradle")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUILD_BACKEND")
}

func TestFromViper_RejectsEmptyPort(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("server.port", "")

	_, err := fromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestLiveGeneration(t *testing.T) {
	tests := []struct {
		name string
		cfg  GenerationConfig
		want bool
	}{
		{name: "empty key", cfg: GenerationConfig{}, want: false},
		{name: "dummy key", cfg: GenerationConfig{APIKey: "dummy_key_for_testing"}, want: false},
		{name: "sample key", cfg: GenerationConfig{APIKey: "your_gemini_api_key"}, want: false},
		{name: "real key", cfg: GenerationConfig{APIKey: "AIzaSyExample"}, want: true},
		{name: "adc", cfg: GenerationConfig{UseADC: true}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.LiveGeneration())
		})
	}
}
