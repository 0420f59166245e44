package generation

import (
	"fmt"

	"github.com/smallbiznis/genstudio/internal/config"
	"github.com/smallbiznis/genstudio/internal/generation/domain"
	"github.com/smallbiznis/genstudio/internal/generation/provider"
	"github.com/smallbiznis/genstudio/internal/generation/provider/replicate"
	"github.com/smallbiznis/genstudio/internal/generation/provider/static"
	"github.com/smallbiznis/genstudio/internal/generation/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("generation.gateway",
	fx.Provide(NewRegistry),
	fx.Provide(provideProvider),
	fx.Provide(service.NewGateway),
	fx.Provide(func(g *service.Gateway) domain.Service { return g }),
)

func NewRegistry() *provider.Registry {
	return provider.NewRegistry(
		replicate.Factory{},
		static.Factory{},
	)
}

func provideProvider(cfg config.Config, registry *provider.Registry, log *zap.Logger) (domain.Provider, error) {
	name := cfg.Generation.Provider
	if !registry.ProviderExists(name) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
	p, err := registry.New(name, providerConfig(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("init provider %s: %w", name, err)
	}
	log.Info("generation provider ready", zap.String("provider", p.Name()))
	return p, nil
}

func providerConfig(cfg config.Config, log *zap.Logger) provider.Config {
	return provider.Config{
		Token:        cfg.Generation.ProviderToken,
		BaseURL:      cfg.Generation.ProviderBaseURL,
		PollInterval: cfg.Generation.PollInterval,
		FileOutput:   cfg.Generation.FileOutput,
		StaticURLs: map[domain.MediaKind]string{
			domain.MediaKindAudio: cfg.Generation.StaticAudioURL,
			domain.MediaKindVideo: cfg.Generation.StaticVideoURL,
		},
		Log: log,
	}
}
