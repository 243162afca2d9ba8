// Package discovery resolves OAuth2 endpoints from an OpenID Connect issuer,
// so callers can configure a session from a single issuer URL instead of
// hard-coding endpoint paths.
package discovery

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
)

// Endpoints holds the OAuth2 endpoints published by an identity provider.
type Endpoints struct {
	AuthURL  string
	TokenURL string
}

// Resolve fetches the issuer's OIDC discovery document and returns its
// authorization and token endpoints.
func Resolve(ctx context.Context, issuer string) (Endpoints, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Endpoints{}, errors.Wrap(err, "[discovery.Resolve] oidc.NewProvider")
	}
	endpoint := provider.Endpoint()
	return Endpoints{
		AuthURL:  endpoint.AuthURL,
		TokenURL: endpoint.TokenURL,
	}, nil
}
