// Package oidc implements idrelay.Provider for any OpenID Connect issuer. The
// identity comes from the ID token returned by the code exchange, verified
// against the issuer's published keys.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/idrelay"
	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const defaultName = "oidc"

// Config describes the client registration at the issuer.
type Config struct {
	// Name is reported by Provider.Name and recorded in audit events.
	Name         string
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Scopes defaults to openid, email and profile.
	Scopes []string

	HTTPClient *http.Client
}

// Provider logs users in against any OIDC issuer.
type Provider struct {
	name     string
	oauth    *oauth2.Config
	verifier *gooidc.IDTokenVerifier
	client   *http.Client
}

// New runs discovery against cfg.IssuerURL and returns a Provider whose ID
// tokens are checked against the issuer's JWKS.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if cfg.HTTPClient != nil {
		ctx = gooidc.ClientContext(ctx, cfg.HTTPClient)
	}

	discovered, err := gooidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: oidc discovery for %s: %w", idrelay.ErrConfiguration, cfg.IssuerURL, err)
	}

	verifier := discovered.Verifier(&gooidc.Config{ClientID: cfg.ClientID})
	return NewWithVerifier(cfg, discovered.Endpoint(), verifier)
}

// NewWithVerifier builds a Provider from a known endpoint and verifier,
// skipping discovery. It is used with static key sets.
func NewWithVerifier(cfg Config, endpoint oauth2.Endpoint, verifier *gooidc.IDTokenVerifier) (*Provider, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, fmt.Errorf("%w: oidc verifier is required", idrelay.ErrConfiguration)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "email", "profile"}
	}
	name := cfg.Name
	if name == "" {
		name = defaultName
	}

	return &Provider{
		name: name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		verifier: verifier,
		client:   cfg.HTTPClient,
	}, nil
}

func validate(cfg Config) error {
	if cfg.IssuerURL == "" || cfg.ClientID == "" || cfg.RedirectURL == "" {
		return fmt.Errorf("%w: oidc issuer url, client id and redirect url are required", idrelay.ErrConfiguration)
	}
	return nil
}

func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL returns the issuer's authorization URL with an S256 PKCE
// challenge.
func (p *Provider) AuthCodeURL(state, codeVerifier string) string {
	return p.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(codeVerifier))
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

var errEmailUnverified = errors.New("email not verified by issuer")

// Exchange trades code for tokens and reads email and name from the verified
// ID token. An explicit email_verified=false is treated as a missing email.
func (p *Provider) Exchange(ctx context.Context, code, codeVerifier string) (idrelay.IdentityClaims, error) {
	if p.client != nil {
		ctx = gooidc.ClientContext(ctx, p.client)
	}

	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return idrelay.IdentityClaims{}, fmt.Errorf("%w: %s token exchange: %w", idrelay.ErrProviderExchange, p.name, err)
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return idrelay.IdentityClaims{}, fmt.Errorf("%w: %s returned no id_token", idrelay.ErrProviderExchange, p.name)
	}

	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return idrelay.IdentityClaims{}, fmt.Errorf("%w: %s id_token: %w", idrelay.ErrProviderExchange, p.name, err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return idrelay.IdentityClaims{}, fmt.Errorf("%w: %s id_token claims: %w", idrelay.ErrProviderExchange, p.name, err)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return idrelay.IdentityClaims{}, fmt.Errorf("%w: %w", idrelay.ErrIdentityEmailMissing, errEmailUnverified)
	}

	return idrelay.NewIdentityClaims(claims.Email, claims.Name)
}

var _ idrelay.Provider = (*Provider)(nil)
