package auth

import (
	"context"
	"errors"
	"net/http"

	authdomain "github.com/smallbiznis/genstudio/internal/auth/domain"
)

// Chain tries each resolver in order. The first resolver that recognises
// credentials decides, even when it rejects them.
type Chain []authdomain.Resolver

func (c Chain) Resolve(ctx context.Context, r *http.Request) (*authdomain.Caller, error) {
	for _, resolver := range c {
		if resolver == nil {
			continue
		}
		caller, err := resolver.Resolve(ctx, r)
		if errors.Is(err, authdomain.ErrNoCredentials) {
			continue
		}
		return caller, err
	}
	return nil, authdomain.ErrNoCredentials
}
