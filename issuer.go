package idrelay

import (
	"fmt"
	"time"

	"github.com/MrEthical07/idrelay/jwt"
)

// Issuer turns verified identity claims into signed session credentials.
// It holds no mutable state and is safe for concurrent use.
type Issuer struct {
	manager *jwt.Manager
}

// NewIssuer validates cfg and binds the Issuer to a private copy of the secret.
func NewIssuer(cfg CredentialConfig) (*Issuer, error) {
	m, err := newManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Issuer{manager: m}, nil
}

// Issue signs claims at now. The result expires exactly CredentialTTL after its
// whole-second issue time.
func (i *Issuer) Issue(claims IdentityClaims, now time.Time) (SessionCredential, error) {
	if i == nil || i.manager == nil {
		return SessionCredential{}, ErrRelayNotReady
	}
	if claims.IsZero() {
		return SessionCredential{}, ErrIdentityEmailMissing
	}

	token, signed, err := i.manager.Sign(claims.Email(), claims.DisplayName(), now)
	if err != nil {
		return SessionCredential{}, fmt.Errorf("issue credential: %w", err)
	}

	return SessionCredential{
		Token:     token,
		Claims:    claims,
		TokenID:   signed.ID,
		IssuedAt:  signed.IssuedAt.Time.UTC(),
		ExpiresAt: signed.ExpiresAt.Time.UTC(),
	}, nil
}

func newManager(cfg CredentialConfig) (*jwt.Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, configError("credential secret is required")
	}
	m, err := jwt.NewManager(jwt.Config{
		TTL:           CredentialTTL,
		SigningMethod: jwt.SigningMethod(cfg.SigningMethod),
		Secret:        cfg.Secret,
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return m, nil
}
