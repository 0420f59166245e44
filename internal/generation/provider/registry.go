package provider

import (
	"strings"
	"time"

	"github.com/smallbiznis/genstudio/internal/generation/domain"
	"go.uber.org/zap"
)

// Config is what a factory needs to build a provider client.
type Config struct {
	Token        string
	BaseURL      string
	PollInterval time.Duration
	FileOutput   bool
	// StaticURLs maps media kind to the asset a static provider returns.
	StaticURLs map[domain.MediaKind]string
	Log        *zap.Logger
}

type Factory interface {
	Provider() string
	New(cfg Config) (domain.Provider, error)
}

type Registry struct {
	factories map[string]Factory
}

func NewRegistry(factories ...Factory) *Registry {
	registry := &Registry{factories: map[string]Factory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(factory.Provider()))
		if name == "" {
			continue
		}
		registry.factories[name] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (r *Registry) New(name string, cfg Config) (domain.Provider, error) {
	if r == nil {
		return nil, domain.ErrUnknownProvider
	}
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return factory.New(cfg)
}
