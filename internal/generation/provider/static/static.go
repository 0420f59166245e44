// Package static serves fixed asset URLs in place of a hosted model, for
// local development and demos.
package static

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/genstudio/internal/generation/domain"
	"github.com/smallbiznis/genstudio/internal/generation/provider"
)

const Name = "static"

type Factory struct{}

func (Factory) Provider() string { return Name }

func (Factory) New(cfg provider.Config) (domain.Provider, error) {
	urls := map[string]string{}
	for kind, url := range cfg.StaticURLs {
		if url = strings.TrimSpace(url); url != "" {
			urls[string(kind)] = url
		}
	}
	return &Provider{urls: urls}, nil
}

// Provider answers every model with the URL configured for the media kind,
// shaped like a hosted file list.
type Provider struct {
	urls map[string]string
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Run(ctx context.Context, inv domain.Invocation) (domain.Output, error) {
	if err := ctx.Err(); err != nil {
		return domain.Null(), err
	}
	url, ok := p.urls[string(inv.MediaKind)]
	if !ok {
		return domain.Null(), fmt.Errorf("static: no asset configured for %q (model %s)", inv.MediaKind, inv.Model)
	}
	return domain.List(domain.Text(url)), nil
}
