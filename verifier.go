package idrelay

import (
	"errors"
	"time"

	"github.com/MrEthical07/idrelay/jwt"
)

// Verifier accepts or rejects presented credentials. Verify is a pure function
// of the token, the configured secret and now; it is safe for concurrent use.
type Verifier struct {
	manager *jwt.Manager
}

// NewVerifier validates cfg and binds the Verifier to a private copy of the
// secret. A Verifier built from the same CredentialConfig as an Issuer accepts
// exactly the credentials that Issuer produces.
func NewVerifier(cfg CredentialConfig) (*Verifier, error) {
	m, err := newManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Verifier{manager: m}, nil
}

// Verify checks token at now: syntax, then signature under the pinned
// algorithm, then now < exp. Invalid results carry only a Reason.
func (v *Verifier) Verify(token string, now time.Time) VerificationResult {
	if v == nil || v.manager == nil {
		return invalidResult(ReasonMalformed)
	}

	parsed, err := v.manager.Parse(token, now)
	if err != nil {
		return invalidResult(reasonFor(err))
	}

	claims, err := NewIdentityClaims(parsed.Email, parsed.Name)
	if err != nil {
		return invalidResult(ReasonMalformed)
	}

	return VerificationResult{
		Claims:    claims,
		TokenID:   parsed.ID,
		IssuedAt:  parsed.IssuedAt.Time.UTC(),
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
		Reason:    ReasonNone,
	}
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return ReasonBadSignature
	case errors.Is(err, jwt.ErrExpired):
		return ReasonExpired
	default:
		return ReasonMalformed
	}
}
