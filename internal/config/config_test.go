package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FREE_TIER_LIMIT", "")
	t.Setenv("GENERATION_TIMEOUT", "")
	t.Setenv("RATE_LIMIT_ENABLED", "")

	cfg := Load()

	assert.Equal(t, int64(5), cfg.Usage.FreeTierLimit)
	assert.Equal(t, 5*time.Minute, cfg.Generation.Timeout)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "X-API-Key", cfg.Auth.APIKeyHeader)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FREE_TIER_LIMIT", "12")
	t.Setenv("GENERATION_TIMEOUT", "90s")
	t.Setenv("GENERATION_PROVIDER", "STATIC")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")

	cfg := Load()

	assert.Equal(t, int64(12), cfg.Usage.FreeTierLimit)
	assert.Equal(t, 90*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, "static", cfg.Generation.Provider)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestGetenvFallbacksOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_DUR", "-1s")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, 3, getenvInt("X_INT", 3))
	assert.Equal(t, time.Minute, getenvDuration("X_DUR", time.Minute))
	assert.True(t, getenvBool("X_BOOL", true))
}

func TestGenerationProfilesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "generation.yml")
	content := []byte(`generation:
  audio:
    model: acme/music:v1
    input:
      duration: 8
  video:
    model: acme/video
    fallback_model: acme/video-lite:v2
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewGenerationProfilesHolder(Config{Generation: GenerationConfig{ProfilesPath: path}}, zap.NewNop())
	require.NoError(t, err)

	profiles := holder.Get()
	assert.Equal(t, "acme/music:v1", profiles.Audio.Model)
	assert.EqualValues(t, 8, profiles.Audio.Input["duration"])
	assert.Equal(t, "acme/video", profiles.Video.Model)
	assert.Equal(t, "acme/video-lite:v2", profiles.Video.FallbackModel)
}

func TestGenerationProfilesRejectsAudioFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "generation.yml")
	content := []byte(`generation:
  audio:
    model: acme/music
    fallback_model: acme/other
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	_, err := NewGenerationProfilesHolder(Config{Generation: GenerationConfig{ProfilesPath: path}}, zap.NewNop())
	assert.Error(t, err)
}

func TestDefaultGenerationProfiles(t *testing.T) {
	profiles := DefaultGenerationProfiles()
	assert.Equal(t, DefaultAudioModel, profiles.Audio.Model)
	assert.Equal(t, "wav", profiles.Audio.Input["output_format"])
	assert.Equal(t, DefaultVideoFallbackModel, profiles.Video.FallbackModel)
	assert.NoError(t, validateGenerationProfiles(profiles))
}
