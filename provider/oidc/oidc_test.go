package oidc

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/MrEthical07/idrelay"
	gooidc "github.com/coreos/go-oidc/v3/oidc"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

type fakeIssuer struct {
	*httptest.Server
	key     *rsa.PrivateKey
	idToken string
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIssuer{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                f.URL,
			"authorization_endpoint":                f.URL + "/auth",
			"token_endpoint":                        f.URL + "/token",
			"jwks_uri":                              f.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code_verifier") != testVerifier {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		body := map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if f.idToken != "" {
			body["id_token"] = f.idToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeIssuer) sign(t *testing.T, key *rsa.PrivateKey, extra gjwt.MapClaims) string {
	t.Helper()

	now := time.Now()
	claims := gjwt.MapClaims{
		"iss": f.URL,
		"aud": "client-id",
		"sub": "subject-1",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	signed, err := gjwt.NewWithClaims(gjwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func (f *fakeIssuer) provider(t *testing.T) *Provider {
	t.Helper()

	keySet := &gooidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&f.key.PublicKey}}
	verifier := gooidc.NewVerifier(f.URL, keySet, &gooidc.Config{ClientID: "client-id"})
	p, err := NewWithVerifier(Config{
		Name:        "corp",
		IssuerURL:   f.URL,
		ClientID:    "client-id",
		RedirectURL: "http://localhost:8080/oauth2callback",
		HTTPClient:  f.Client(),
	}, oauth2.Endpoint{
		AuthURL:   f.URL + "/auth",
		TokenURL:  f.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, verifier)
	require.NoError(t, err)
	return p
}

func TestNewRunsDiscovery(t *testing.T) {
	f := newFakeIssuer(t)

	p, err := New(context.Background(), Config{
		IssuerURL:   f.URL,
		ClientID:    "client-id",
		RedirectURL: "http://localhost:8080/oauth2callback",
		HTTPClient:  f.Client(),
	})
	require.NoError(t, err)
	assert.Equal(t, "oidc", p.Name())
	assert.Equal(t, f.URL+"/token", p.oauth.Endpoint.TokenURL)

	u, err := url.Parse(p.AuthCodeURL("st", testVerifier))
	require.NoError(t, err)
	assert.Equal(t, "/auth", u.Path)
	assert.Equal(t, "st", u.Query().Get("state"))
	assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	assert.Equal(t, "openid email profile", u.Query().Get("scope"))
}

func TestNewConfigurationErrors(t *testing.T) {
	_, err := New(context.Background(), Config{ClientID: "id"})
	require.ErrorIs(t, err, idrelay.ErrConfiguration)

	_, err = NewWithVerifier(Config{IssuerURL: "https://issuer", ClientID: "id", RedirectURL: "http://cb"}, oauth2.Endpoint{}, nil)
	require.ErrorIs(t, err, idrelay.ErrConfiguration)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err = New(context.Background(), Config{IssuerURL: srv.URL, ClientID: "id", RedirectURL: "http://cb", HTTPClient: srv.Client()})
	require.ErrorIs(t, err, idrelay.ErrConfiguration)
}

func TestExchangeReadsVerifiedIDToken(t *testing.T) {
	f := newFakeIssuer(t)
	f.idToken = f.sign(t, f.key, gjwt.MapClaims{
		"email":          "a@example.com",
		"email_verified": true,
		"name":           "Alice",
	})

	claims, err := f.provider(t).Exchange(context.Background(), "code", testVerifier)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email())
	assert.Equal(t, "Alice", claims.DisplayName())
}

func TestExchangeAcceptsMissingEmailVerified(t *testing.T) {
	f := newFakeIssuer(t)
	f.idToken = f.sign(t, f.key, gjwt.MapClaims{"email": "a@example.com"})

	claims, err := f.provider(t).Exchange(context.Background(), "code", testVerifier)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email())
}

func TestExchangeRejections(t *testing.T) {
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cases := []struct {
		name     string
		token    func(t *testing.T, f *fakeIssuer) string
		verifier string
		wantErr  error
	}{
		{
			name:     "unverified email",
			token:    func(t *testing.T, f *fakeIssuer) string { return f.sign(t, f.key, gjwt.MapClaims{"email": "a@example.com", "email_verified": false}) },
			verifier: testVerifier,
			wantErr:  idrelay.ErrIdentityEmailMissing,
		},
		{
			name:     "no email",
			token:    func(t *testing.T, f *fakeIssuer) string { return f.sign(t, f.key, gjwt.MapClaims{"name": "Alice"}) },
			verifier: testVerifier,
			wantErr:  idrelay.ErrIdentityEmailMissing,
		},
		{
			name:     "foreign key",
			token:    func(t *testing.T, f *fakeIssuer) string { return f.sign(t, otherKey, gjwt.MapClaims{"email": "a@example.com"}) },
			verifier: testVerifier,
			wantErr:  idrelay.ErrProviderExchange,
		},
		{
			name:     "wrong audience",
			token:    func(t *testing.T, f *fakeIssuer) string { return f.sign(t, f.key, gjwt.MapClaims{"aud": "someone-else", "email": "a@example.com"}) },
			verifier: testVerifier,
			wantErr:  idrelay.ErrProviderExchange,
		},
		{
			name:     "expired",
			token:    func(t *testing.T, f *fakeIssuer) string { return f.sign(t, f.key, gjwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix(), "email": "a@example.com"}) },
			verifier: testVerifier,
			wantErr:  idrelay.ErrProviderExchange,
		},
		{
			name:     "no id token",
			token:    func(*testing.T, *fakeIssuer) string { return "" },
			verifier: testVerifier,
			wantErr:  idrelay.ErrProviderExchange,
		},
		{
			name:     "token endpoint refuses",
			token:    func(t *testing.T, f *fakeIssuer) string { return f.sign(t, f.key, gjwt.MapClaims{"email": "a@example.com"}) },
			verifier: "wrong",
			wantErr:  idrelay.ErrProviderExchange,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeIssuer(t)
			f.idToken = tc.token(t, f)

			_, err := f.provider(t).Exchange(context.Background(), "code", tc.verifier)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
