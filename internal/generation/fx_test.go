package generation

import (
	"context"
	"testing"

	"github.com/smallbiznis/genstudio/internal/config"
	"github.com/smallbiznis/genstudio/internal/generation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvideProvider_Static(t *testing.T) {
	cfg := config.Config{Generation: config.GenerationConfig{
		Provider:       "STATIC",
		StaticAudioURL: "https://cdn.example/demo.wav",
	}}
	p, err := provideProvider(cfg, NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "static", p.Name())

	out, err := p.Run(context.Background(), domain.Invocation{Model: "m", MediaKind: domain.MediaKindAudio})
	require.NoError(t, err)
	url, err := domain.Normalize(out, domain.MediaKindAudio)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/demo.wav", url)
}

func TestProvideProvider_Unknown(t *testing.T) {
	cfg := config.Config{Generation: config.GenerationConfig{Provider: "openai"}}
	_, err := provideProvider(cfg, NewRegistry(), zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestProvideProvider_ReplicateNeedsToken(t *testing.T) {
	cfg := config.Config{Generation: config.GenerationConfig{Provider: "replicate"}}
	_, err := provideProvider(cfg, NewRegistry(), zap.NewNop())
	assert.Error(t, err)
}
