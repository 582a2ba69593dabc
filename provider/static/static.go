// Package static provides a Provider that always authenticates the same
// identity. It skips the external round trip: AuthCodeURL points straight back
// at the relay callback with a fixed code.
package static

import (
	"context"
	"fmt"
	"net/url"

	"github.com/MrEthical07/idrelay"
)

// Code is the authorization code issued by AuthCodeURL and accepted by Exchange.
const Code = "static"

// Provider skips the external handshake and always returns one identity.
type Provider struct {
	claims      idrelay.IdentityClaims
	callbackURL string
}

// New returns a Provider for email and name. callbackURL is the relay's
// /oauth2callback address.
func New(email, name, callbackURL string) (*Provider, error) {
	claims, err := idrelay.NewIdentityClaims(email, name)
	if err != nil {
		return nil, fmt.Errorf("%w: static provider: %w", idrelay.ErrConfiguration, err)
	}
	if _, err := url.Parse(callbackURL); err != nil || callbackURL == "" {
		return nil, fmt.Errorf("%w: static provider callback url %q", idrelay.ErrConfiguration, callbackURL)
	}
	return &Provider{claims: claims, callbackURL: callbackURL}, nil
}

func (p *Provider) Name() string { return "static" }

func (p *Provider) AuthCodeURL(state, _ string) string {
	u, _ := url.Parse(p.callbackURL)
	q := u.Query()
	q.Set("code", Code)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *Provider) Exchange(_ context.Context, code, _ string) (idrelay.IdentityClaims, error) {
	if code != Code {
		return idrelay.IdentityClaims{}, fmt.Errorf("%w: unknown static code", idrelay.ErrProviderExchange)
	}
	return p.claims, nil
}

var _ idrelay.Provider = (*Provider)(nil)
