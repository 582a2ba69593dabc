package idrelay

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/idrelay/jwt"
)

// Config defines every tunable of a Relay.
//
// Config values are copied by Builder.WithConfig and treated as immutable afterwards.
type Config struct {
	Credential CredentialConfig
	Cookie     CookieConfig
	Login      LoginConfig
	Revocation RevocationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig holds the signing parameters shared by Issuer and Verifier.
type CredentialConfig struct {
	Secret        []byte
	SigningMethod string // "hs256" (default), "hs384", "hs512"
	Issuer        string
	Audience      string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the attributes of the credential and challenge cookies.
// The cookie name and lifetime are fixed.
type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// LoginConfig controls the authorization-code login challenge.
type LoginConfig struct {
	ChallengeTTL  time.Duration
	MaxAttempts   int
	AttemptWindow time.Duration
}

// RevocationConfig enables the optional token denylist. It requires Redis.
type RevocationConfig struct {
	Enabled     bool
	RedisPrefix string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production defaults. The secret is left empty and must
// be provided.
func DefaultConfig() Config {
	return Config{
		Credential: CredentialConfig{
			SigningMethod: string(jwt.MethodHS256),
		},
		Cookie: CookieConfig{
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		Login: LoginConfig{
			ChallengeTTL:  5 * time.Minute,
			MaxAttempts:   10,
			AttemptWindow: time.Minute,
		},
		Revocation: RevocationConfig{
			Enabled:     false,
			RedisPrefix: "idr:deny",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Credential.Secret = cloneBytes(cfg.Credential.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg and returns an error wrapping ErrConfiguration on the
// first violation.
func (c *Config) Validate() error {
	// Credential
	if len(c.Credential.Secret) == 0 {
		return configError("Credential Secret is required")
	}
	switch jwt.SigningMethod(strings.ToLower(c.Credential.SigningMethod)) {
	case jwt.MethodHS256, jwt.MethodHS384, jwt.MethodHS512:
	default:
		return configError("unsupported Credential SigningMethod %q", c.Credential.SigningMethod)
	}
	if c.Credential.Issuer != strings.TrimSpace(c.Credential.Issuer) {
		return configError("Credential Issuer must not have surrounding whitespace")
	}
	if c.Credential.Audience != strings.TrimSpace(c.Credential.Audience) {
		return configError("Credential Audience must not have surrounding whitespace")
	}

	// Cookie
	if !strings.HasPrefix(c.Cookie.Path, "/") {
		return configError("Cookie Path must start with '/'")
	}
	switch c.Cookie.SameSite {
	case http.SameSiteLaxMode, http.SameSiteStrictMode:
	case http.SameSiteNoneMode:
		if !c.Cookie.Secure {
			return configError("Cookie SameSite=None requires Secure")
		}
	default:
		return configError("Cookie SameSite must be Lax, Strict or None")
	}

	// Login
	if c.Login.ChallengeTTL <= 0 {
		return configError("Login ChallengeTTL must be > 0")
	}
	if c.Login.ChallengeTTL > time.Hour {
		return configError("Login ChallengeTTL must be <= 1h")
	}
	if c.Login.MaxAttempts <= 0 {
		return configError("Login MaxAttempts must be > 0")
	}
	if c.Login.AttemptWindow <= 0 {
		return configError("Login AttemptWindow must be > 0")
	}

	// Revocation
	if c.Revocation.Enabled && strings.TrimSpace(c.Revocation.RedisPrefix) == "" {
		return configError("Revocation RedisPrefix is required when revocation is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return configError("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}
