package idrelay

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CredentialTTL is the lifetime of every issued session credential.
const CredentialTTL = 24 * time.Hour

// IdentityClaims is the verified identity handed over by a provider. The zero
// value is not valid; build it with NewIdentityClaims.
type IdentityClaims struct {
	email       string
	displayName string
}

// NewIdentityClaims trims and validates provider output once. An empty email is
// rejected with ErrIdentityEmailMissing.
func NewIdentityClaims(email, displayName string) (IdentityClaims, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return IdentityClaims{}, ErrIdentityEmailMissing
	}
	return IdentityClaims{
		email:       email,
		displayName: strings.TrimSpace(displayName),
	}, nil
}

// Email returns the subject identifier.
func (c IdentityClaims) Email() string { return c.email }

// DisplayName returns the optional human-readable name, possibly empty.
func (c IdentityClaims) DisplayName() string { return c.displayName }

// IsZero reports whether c carries no identity.
func (c IdentityClaims) IsZero() bool { return c.email == "" }

// SessionCredential is an issued token plus the values that were signed into it.
// ExpiresAt always equals IssuedAt + CredentialTTL.
type SessionCredential struct {
	Token     string
	Claims    IdentityClaims
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Lifetime returns ExpiresAt - IssuedAt.
func (c SessionCredential) Lifetime() time.Duration {
	return c.ExpiresAt.Sub(c.IssuedAt)
}

// Reason classifies a verification outcome.
type Reason int

const (
	// ReasonNone marks a valid credential.
	ReasonNone Reason = iota
	// ReasonMalformed marks a token that is not a well-formed credential.
	ReasonMalformed
	// ReasonBadSignature marks a token whose signature or algorithm does not match.
	ReasonBadSignature
	// ReasonExpired marks a correctly signed token presented at or after its expiry.
	ReasonExpired
	// ReasonRevoked marks a valid token whose ID was put on the denylist.
	ReasonRevoked
)

// String returns the wire form used in HTTP error bodies and audit metadata.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMalformed:
		return "malformed"
	case ReasonBadSignature:
		return "bad_signature"
	case ReasonExpired:
		return "expired"
	case ReasonRevoked:
		return "revoked"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// VerificationResult is either Valid (Reason == ReasonNone, claims populated) or
// Invalid (Reason set, every other field zero).
type VerificationResult struct {
	Claims    IdentityClaims
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Reason    Reason
}

func invalidResult(reason Reason) VerificationResult {
	return VerificationResult{Reason: reason}
}

// Valid reports whether the credential was accepted.
func (r VerificationResult) Valid() bool {
	return r.Reason == ReasonNone && !r.Claims.IsZero()
}

// Err maps the reason to the error taxonomy. It returns nil for valid results.
func (r VerificationResult) Err() error {
	switch r.Reason {
	case ReasonNone:
		if r.Claims.IsZero() {
			return ErrCredentialMalformed
		}
		return nil
	case ReasonBadSignature:
		return ErrCredentialSignatureInvalid
	case ReasonExpired:
		return ErrCredentialExpired
	case ReasonRevoked:
		return ErrCredentialRevoked
	default:
		return ErrCredentialMalformed
	}
}

// Provider performs the authorization-code handshake with an external identity
// provider.
type Provider interface {
	Name() string
	AuthCodeURL(state, codeVerifier string) string
	Exchange(ctx context.Context, code, codeVerifier string) (IdentityClaims, error)
}

// Denylist records revoked token IDs until they would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AttemptLimiter bounds login attempts per key. Allow returns an error wrapping
// ErrRateLimited once the budget is spent; any other error is a backend
// failure and the attempt goes ahead.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
