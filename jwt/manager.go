package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod names one of the supported HMAC algorithms.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256. It is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 signs with HMAC-SHA384.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 signs with HMAC-SHA512.
	MethodHS512 SigningMethod = "hs512"
)

var (
	// ErrMalformed reports a token that is not a well-formed credential.
	ErrMalformed = errors.New("malformed token")
	// ErrSignatureInvalid reports a token whose signature or algorithm does not match.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired reports a correctly signed token presented at or after its expiry.
	ErrExpired = errors.New("token expired")
)

// Config holds the signing parameters. It is copied by NewManager and never
// mutated afterwards.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	Secret        []byte
	Issuer        string
	Audience      string
}

// Manager signs and parses session credentials. A Manager is safe for
// concurrent use.
type Manager struct {
	config Config
	method *gjwt.SigningMethodHMAC
}

// Claims is the signed payload. Subject always equals Email.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	gjwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager bound to a private copy of the
// secret.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	method, err := lookupMethod(cfg.SigningMethod)
	if err != nil {
		return nil, err
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	return &Manager{config: cfg, method: method}, nil
}

// Algorithm returns the JWS "alg" value every accepted token must carry.
func (m *Manager) Algorithm() string {
	return m.method.Alg()
}

// Sign issues a token for email/name at now. The issue time is truncated to
// whole seconds because NumericDate has second precision, so the returned
// claims satisfy ExpiresAt == IssuedAt + TTL exactly.
func (m *Manager) Sign(email, name string, now time.Time) (string, *Claims, error) {
	if email == "" {
		return "", nil, errors.New("email is required")
	}

	issuedAt := now.Truncate(time.Second)
	claims := &Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   email,
			Issuer:    m.config.Issuer,
			IssuedAt:  gjwt.NewNumericDate(issuedAt),
			ExpiresAt: gjwt.NewNumericDate(issuedAt.Add(m.config.TTL)),
			ID:        uuid.NewString(),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = gjwt.ClaimStrings{m.config.Audience}
	}

	signed, err := gjwt.NewWithClaims(m.method, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies tokenStr at now. Checks run in order: syntax, algorithm and
// signature, then expiry (now must be strictly before exp, no leeway).
// The result depends only on tokenStr, the configured secret and now.
func (m *Manager) Parse(tokenStr string, now time.Time) (*Claims, error) {
	options := []gjwt.ParserOption{
		gjwt.WithValidMethods([]string{m.method.Alg()}),
		gjwt.WithTimeFunc(func() time.Time { return now }),
		gjwt.WithExpirationRequired(),
		gjwt.WithStrictDecoding(),
	}
	if m.config.Issuer != "" {
		options = append(options, gjwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, gjwt.WithAudience(m.config.Audience))
	}

	claims := &Claims{}
	parser := gjwt.NewParser(options...)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *gjwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.Email == "" || claims.Subject != claims.Email {
		return nil, fmt.Errorf("%w: subject and email claims missing or inconsistent", ErrMalformed)
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: iat claim missing", ErrMalformed)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: jti claim missing", ErrMalformed)
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, gjwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, gjwt.ErrTokenSignatureInvalid), errors.Is(err, gjwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, gjwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		// signed, but the claims do not describe a credential we issue
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func lookupMethod(method SigningMethod) (*gjwt.SigningMethodHMAC, error) {
	switch SigningMethod(strings.ToLower(string(method))) {
	case MethodHS256:
		return gjwt.SigningMethodHS256, nil
	case MethodHS384:
		return gjwt.SigningMethodHS384, nil
	case MethodHS512:
		return gjwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing method %q", method)
	}
}
