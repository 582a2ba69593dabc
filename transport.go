package idrelay

import (
	"errors"
	"net/http"
	"time"
)

// CookieName is the one name under which the credential travels. Attach,
// Extract and Clear all use it.
const CookieName = "access_token"

const (
	stateCookieName = "oauth_state"
	pkceCookieName  = "oauth_pkce"
)

// Transport binds credentials to HTTP cookies. It is stateless and safe for
// concurrent use.
type Transport struct {
	path     string
	domain   string
	secure   bool
	sameSite http.SameSite
}

// NewTransport returns a Transport using the attributes in cfg. Empty fields
// fall back to Path=/ and SameSite=Lax.
func NewTransport(cfg CookieConfig) *Transport {
	t := &Transport{
		path:     cfg.Path,
		domain:   cfg.Domain,
		secure:   cfg.Secure,
		sameSite: cfg.SameSite,
	}
	if t.path == "" {
		t.path = "/"
	}
	if t.sameSite == http.SameSiteDefaultMode {
		t.sameSite = http.SameSiteLaxMode
	}
	return t
}

// Attach sets the credential cookie. Max-Age is derived from the credential
// itself, so it always matches the signed expiry.
func (t *Transport) Attach(w http.ResponseWriter, cred SessionCredential) {
	maxAge := int(cred.Lifetime() / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, t.cookie(CookieName, cred.Token, maxAge))
}

// Extract returns the raw credential. A missing or empty cookie yields
// ErrCredentialAbsent; any other value is returned unchanged for the Verifier
// to classify.
func (t *Transport) Extract(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCredentialAbsent
		}
		return "", err
	}
	if c.Value == "" {
		return "", ErrCredentialAbsent
	}
	return c.Value, nil
}

// Clear expires the credential cookie in the browser.
func (t *Transport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, t.cookie(CookieName, "", -1))
}

func (t *Transport) attachChallenge(w http.ResponseWriter, state, verifier string, ttl time.Duration) {
	maxAge := int(ttl / time.Second)
	http.SetCookie(w, t.cookie(stateCookieName, state, maxAge))
	http.SetCookie(w, t.cookie(pkceCookieName, verifier, maxAge))
}

// readChallenge returns the stored state and PKCE verifier; either may be empty.
func (t *Transport) readChallenge(r *http.Request) (state, verifier string) {
	if c, err := r.Cookie(stateCookieName); err == nil {
		state = c.Value
	}
	if c, err := r.Cookie(pkceCookieName); err == nil {
		verifier = c.Value
	}
	return state, verifier
}

func (t *Transport) clearChallenge(w http.ResponseWriter) {
	http.SetCookie(w, t.cookie(stateCookieName, "", -1))
	http.SetCookie(w, t.cookie(pkceCookieName, "", -1))
}

func (t *Transport) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     t.path,
		Domain:   t.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: t.sameSite,
	}
}
