package idrelay

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func testCredentialConfig() CredentialConfig {
	return CredentialConfig{
		Secret:        []byte("0123456789abcdef0123456789abcdef"),
		SigningMethod: "hs256",
	}
}

func newTestPair(t *testing.T) (*Issuer, *Verifier) {
	t.Helper()
	issuer, err := NewIssuer(testCredentialConfig())
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	verifier, err := NewVerifier(testCredentialConfig())
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return issuer, verifier
}

func mustClaims(t *testing.T, email, name string) IdentityClaims {
	t.Helper()
	c, err := NewIdentityClaims(email, name)
	if err != nil {
		t.Fatalf("NewIdentityClaims: %v", err)
	}
	return c
}

func TestNewIdentityClaims(t *testing.T) {
	c, err := NewIdentityClaims("  a@example.com ", " Alice ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Email() != "a@example.com" || c.DisplayName() != "Alice" {
		t.Fatalf("expected trimmed claims, got %q %q", c.Email(), c.DisplayName())
	}

	for _, email := range []string{"", "   "} {
		if _, err := NewIdentityClaims(email, "Alice"); !errors.Is(err, ErrIdentityEmailMissing) {
			t.Fatalf("expected ErrIdentityEmailMissing for %q, got %v", email, err)
		}
	}

	noName := mustClaims(t, "b@example.com", "")
	if noName.DisplayName() != "" {
		t.Fatalf("expected empty display name, got %q", noName.DisplayName())
	}
}

func TestNewIssuerConfigurationErrors(t *testing.T) {
	cases := map[string]CredentialConfig{
		"missing secret":  {SigningMethod: "hs256"},
		"empty secret":    {Secret: []byte{}, SigningMethod: "hs256"},
		"unsupported alg": {Secret: []byte("s"), SigningMethod: "rs256"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewIssuer(cfg); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration from NewIssuer, got %v", err)
			}
			if _, err := NewVerifier(cfg); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration from NewVerifier, got %v", err)
			}
		})
	}
}

func TestIssueRejectsZeroClaims(t *testing.T) {
	issuer, _ := newTestPair(t)
	if _, err := issuer.Issue(IdentityClaims{}, t0); !errors.Is(err, ErrIdentityEmailMissing) {
		t.Fatalf("expected ErrIdentityEmailMissing, got %v", err)
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer, verifier := newTestPair(t)

	cred, err := issuer.Issue(mustClaims(t, "a@example.com", "Alice"), t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !cred.IssuedAt.Equal(t0) || !cred.ExpiresAt.Equal(t0.Add(CredentialTTL)) {
		t.Fatalf("unexpected lifetime %v..%v", cred.IssuedAt, cred.ExpiresAt)
	}
	if cred.Lifetime() != 24*time.Hour {
		t.Fatalf("expected 24h lifetime, got %v", cred.Lifetime())
	}
	if cred.TokenID == "" {
		t.Fatal("expected token id")
	}

	for _, at := range []time.Time{t0, t0.Add(time.Hour), t0.Add(CredentialTTL - time.Second), t0.Add(-time.Hour)} {
		res := verifier.Verify(cred.Token, at)
		if !res.Valid() {
			t.Fatalf("expected valid at %v, got %s", at, res.Reason)
		}
		if res.Claims != cred.Claims {
			t.Fatalf("claims mismatch at %v: %+v vs %+v", at, res.Claims, cred.Claims)
		}
		if !res.ExpiresAt.Equal(cred.ExpiresAt) || res.TokenID != cred.TokenID {
			t.Fatalf("metadata mismatch at %v", at)
		}
		if res.Err() != nil {
			t.Fatalf("expected nil Err for valid result, got %v", res.Err())
		}
	}
}

func TestIssueTruncatesToWholeSeconds(t *testing.T) {
	issuer, _ := newTestPair(t)
	cred, err := issuer.Issue(mustClaims(t, "a@example.com", ""), t0.Add(750*time.Millisecond))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !cred.IssuedAt.Equal(t0) {
		t.Fatalf("expected iat truncated to %v, got %v", t0, cred.IssuedAt)
	}
	if cred.ExpiresAt.Sub(cred.IssuedAt) != CredentialTTL {
		t.Fatal("expected exp == iat + 24h")
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	issuer, verifier := newTestPair(t)
	cred, err := issuer.Issue(mustClaims(t, "a@example.com", "Alice"), t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if res := verifier.Verify(cred.Token, cred.ExpiresAt.Add(-time.Nanosecond)); !res.Valid() {
		t.Fatalf("expected valid just before expiry, got %s", res.Reason)
	}
	for _, at := range []time.Time{cred.ExpiresAt, cred.ExpiresAt.Add(time.Hour)} {
		res := verifier.Verify(cred.Token, at)
		if res.Reason != ReasonExpired {
			t.Fatalf("expected expired at %v, got %s", at, res.Reason)
		}
		if !res.Claims.IsZero() || res.TokenID != "" || !res.ExpiresAt.IsZero() {
			t.Fatal("invalid results must not carry claims")
		}
		if !errors.Is(res.Err(), ErrCredentialExpired) {
			t.Fatalf("expected ErrCredentialExpired, got %v", res.Err())
		}
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issuer, err := NewIssuer(CredentialConfig{Secret: []byte("some-other-secret")})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	_, verifier := newTestPair(t)

	cred, err := issuer.Issue(mustClaims(t, "a@example.com", "Alice"), t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	res := verifier.Verify(cred.Token, t0)
	if res.Reason != ReasonBadSignature {
		t.Fatalf("expected bad signature, got %s", res.Reason)
	}
	if !errors.Is(res.Err(), ErrCredentialSignatureInvalid) {
		t.Fatalf("expected ErrCredentialSignatureInvalid, got %v", res.Err())
	}
}

func TestVerifyTamperedTokenNeverValid(t *testing.T) {
	issuer, verifier := newTestPair(t)
	cred, err := issuer.Issue(mustClaims(t, "a@example.com", "Alice"), t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	raw := []byte(cred.Token)
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), raw...)
			mutated[i] ^= 1 << bit
			res := verifier.Verify(string(mutated), t0.Add(time.Hour))
			if res.Valid() {
				t.Fatalf("tampered token accepted (byte %d bit %d)", i, bit)
			}
			if res.Reason != ReasonMalformed && res.Reason != ReasonBadSignature {
				t.Fatalf("byte %d bit %d: unexpected reason %s", i, bit, res.Reason)
			}
		}
	}
}

func TestVerifyMalformedInputs(t *testing.T) {
	_, verifier := newTestPair(t)
	for _, token := range []string{"", "garbage", "a.b.c", "x.y"} {
		res := verifier.Verify(token, t0)
		if res.Reason != ReasonMalformed {
			t.Fatalf("expected malformed for %q, got %s", token, res.Reason)
		}
		if !errors.Is(res.Err(), ErrCredentialMalformed) {
			t.Fatalf("expected ErrCredentialMalformed, got %v", res.Err())
		}
	}
}

func TestVerifyDeterministic(t *testing.T) {
	issuer, verifier := newTestPair(t)
	cred, err := issuer.Issue(mustClaims(t, "a@example.com", "Alice"), t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for _, at := range []time.Time{t0.Add(time.Hour), t0.Add(25 * time.Hour)} {
		first := verifier.Verify(cred.Token, at)
		second := verifier.Verify(cred.Token, at)
		if first != second {
			t.Fatalf("non-deterministic result at %v: %+v vs %+v", at, first, second)
		}
	}
}

func TestZeroResultIsNotValid(t *testing.T) {
	var res VerificationResult
	if res.Valid() {
		t.Fatal("zero result must not be valid")
	}
	if res.Err() == nil {
		t.Fatal("zero result must carry an error")
	}
}

func TestTransportAttachCookieAttributes(t *testing.T) {
	issuer, _ := newTestPair(t)
	cred, err := issuer.Issue(mustClaims(t, "a@example.com", "Alice"), t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := httptest.NewRecorder()
	NewTransport(DefaultConfig().Cookie).Attach(rec, cred)

	want := "access_token=" + cred.Token + "; Path=/; Max-Age=86400; HttpOnly; Secure; SameSite=Lax"
	if got := rec.Header().Get("Set-Cookie"); got != want {
		t.Fatalf("unexpected Set-Cookie:\n got %s\nwant %s", got, want)
	}
}

func TestTransportInsecureForLocalDevelopment(t *testing.T) {
	cfg := DefaultConfig().Cookie
	cfg.Secure = false

	rec := httptest.NewRecorder()
	NewTransport(cfg).Attach(rec, SessionCredential{Token: "tok", IssuedAt: t0, ExpiresAt: t0.Add(CredentialTTL)})

	want := "access_token=tok; Path=/; Max-Age=86400; HttpOnly; SameSite=Lax"
	if got := rec.Header().Get("Set-Cookie"); got != want {
		t.Fatalf("unexpected Set-Cookie:\n got %s\nwant %s", got, want)
	}
}

func TestTransportExtract(t *testing.T) {
	tr := NewTransport(DefaultConfig().Cookie)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	if _, err := tr.Extract(req); !errors.Is(err, ErrCredentialAbsent) {
		t.Fatalf("expected ErrCredentialAbsent without cookie, got %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: ""})
	if _, err := tr.Extract(req); !errors.Is(err, ErrCredentialAbsent) {
		t.Fatalf("expected ErrCredentialAbsent for empty cookie, got %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: "abc"})
	if _, err := tr.Extract(req); !errors.Is(err, ErrCredentialAbsent) {
		t.Fatalf("expected ErrCredentialAbsent for a differently named cookie, got %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-jwt"})
	got, err := tr.Extract(req)
	if err != nil || got != "not-a-jwt" {
		t.Fatalf("expected raw value returned, got %q (%v)", got, err)
	}
}

func TestTransportAttachExtractRoundTrip(t *testing.T) {
	issuer, verifier := newTestPair(t)
	cred, err := issuer.Issue(mustClaims(t, "a@example.com", "Alice"), t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	tr := NewTransport(DefaultConfig().Cookie)

	rec := httptest.NewRecorder()
	tr.Attach(rec, cred)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	token, err := tr.Extract(req)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res := verifier.Verify(token, t0.Add(time.Hour)); !res.Valid() {
		t.Fatalf("expected valid credential after round trip, got %s", res.Reason)
	}
}

func TestTransportClear(t *testing.T) {
	rec := httptest.NewRecorder()
	NewTransport(DefaultConfig().Cookie).Clear(rec)

	want := "access_token=; Path=/; Max-Age=0; HttpOnly; Secure; SameSite=Lax"
	if got := rec.Header().Get("Set-Cookie"); got != want {
		t.Fatalf("unexpected Set-Cookie:\n got %s\nwant %s", got, want)
	}
}

func TestReasonString(t *testing.T) {
	cases := map[Reason]string{
		ReasonNone:         "none",
		ReasonMalformed:    "malformed",
		ReasonBadSignature: "bad_signature",
		ReasonExpired:      "expired",
		ReasonRevoked:      "revoked",
	}
	for r, want := range cases {
		if r.String() != want {
			t.Fatalf("expected %q, got %q", want, r.String())
		}
	}
}
