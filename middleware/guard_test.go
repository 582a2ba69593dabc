package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/idrelay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newGuardRelay(t *testing.T, now *time.Time) *idrelay.Relay {
	t.Helper()

	cfg := idrelay.DefaultConfig()
	cfg.Credential.Secret = []byte("0123456789abcdef0123456789abcdef")
	relay, err := idrelay.New().
		WithConfig(cfg).
		WithClock(func() time.Time { return *now }).
		Build()
	require.NoError(t, err)
	t.Cleanup(relay.Close)
	return relay
}

func guarded(relay *idrelay.Relay) http.Handler {
	return Guard(relay)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := SessionFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(res.Claims.Email()))
	}))
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: idrelay.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGuardAdmitsValidCredential(t *testing.T) {
	now := t0
	relay := newGuardRelay(t, &now)
	claims, err := idrelay.NewIdentityClaims("a@example.com", "Alice")
	require.NoError(t, err)
	cred, err := relay.Issue(claims)
	require.NoError(t, err)

	now = t0.Add(time.Hour)
	rec := serve(guarded(relay), cred.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@example.com", rec.Body.String())

	now = t0.Add(25 * time.Hour)
	rec = serve(guarded(relay), cred.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, msgInvalidToken, body.Error)
	assert.Equal(t, "expired", body.Reason)
}

func TestGuardRejections(t *testing.T) {
	now := t0
	relay := newGuardRelay(t, &now)

	rec := serve(guarded(relay), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, ErrorBody{Error: msgNoToken, Reason: "absent"}, decodeBody(t, rec))

	rec = serve(guarded(relay), "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ErrorBody{Error: msgInvalidToken, Reason: "malformed"}, decodeBody(t, rec))
}

func TestGuardNilRelay(t *testing.T) {
	rec := serve(guarded(nil), "x")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteRejectionRevocationBackendDown(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRejection(rec, idrelay.VerificationResult{}, idrelay.ErrRevocationUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	WriteRejection(rec, idrelay.VerificationResult{Reason: idrelay.ReasonRevoked}, idrelay.ErrCredentialRevoked)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "revoked", decodeBody(t, rec).Reason)
}
