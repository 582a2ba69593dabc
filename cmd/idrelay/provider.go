package main

import (
	"context"
	"fmt"

	"github.com/MrEthical07/idrelay"
	"github.com/MrEthical07/idrelay/internal/config"
	"github.com/MrEthical07/idrelay/provider/google"
	"github.com/MrEthical07/idrelay/provider/oidc"
	"github.com/MrEthical07/idrelay/provider/static"
)

func buildProvider(ctx context.Context, s *config.Settings) (idrelay.Provider, error) {
	switch s.Provider {
	case config.ProviderGoogle:
		return google.New(google.Config{
			ClientID:     s.Google.ClientID,
			ClientSecret: s.Google.ClientSecret,
			RedirectURL:  s.Google.RedirectURL,
		})
	case config.ProviderOIDC:
		return oidc.New(ctx, oidc.Config{
			Name:         s.OIDC.Name,
			IssuerURL:    s.OIDC.IssuerURL,
			ClientID:     s.OIDC.ClientID,
			ClientSecret: s.OIDC.ClientSecret,
			RedirectURL:  s.OIDC.RedirectURL,
			Scopes:       s.OIDC.Scopes,
		})
	case config.ProviderStatic:
		return static.New(s.Static.Email, s.Static.Name, s.Static.CallbackURL)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", idrelay.ErrConfiguration, s.Provider)
	}
}
