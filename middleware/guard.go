package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/idrelay"
)

const (
	msgNoToken      = "No authentication token found"
	msgInvalidToken = "Invalid or expired token"
	reasonAbsent    = "absent"
)

type sessionContextKey struct{}

// SessionFromContext returns the result stored by Guard.
func SessionFromContext(ctx context.Context) (idrelay.VerificationResult, bool) {
	res, ok := ctx.Value(sessionContextKey{}).(idrelay.VerificationResult)
	return res, ok
}

// Guard admits requests carrying a valid credential cookie. Other requests get
// 401, or 503 when the revocation backend cannot be reached.
func Guard(relay *idrelay.Relay) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := relay.Authenticate(r.Context(), r)
			if err != nil {
				WriteRejection(w, res, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ErrorBody is the JSON shape of every Guard rejection.
type ErrorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// WriteRejection answers an Authenticate failure.
func WriteRejection(w http.ResponseWriter, res idrelay.VerificationResult, err error) {
	switch {
	case errors.Is(err, idrelay.ErrCredentialAbsent):
		writeJSON(w, http.StatusUnauthorized, ErrorBody{Error: msgNoToken, Reason: reasonAbsent})
	case errors.Is(err, idrelay.ErrRevocationUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorBody{Error: "Session check unavailable"})
	case errors.Is(err, idrelay.ErrRelayNotReady):
		writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal error"})
	default:
		reason := res.Reason
		if reason == idrelay.ReasonNone {
			reason = idrelay.ReasonMalformed
		}
		writeJSON(w, http.StatusUnauthorized, ErrorBody{Error: msgInvalidToken, Reason: reason.String()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
