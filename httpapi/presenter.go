package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/idrelay"
	"github.com/rs/zerolog"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, ErrorResponse{
		Error:         msg,
		CorrelationID: idrelay.CorrelationIDFromContext(r.Context()),
	})
}

// presentLoginError maps login failures onto status codes. Provider detail is
// logged, never returned to the browser.
func presentLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, idrelay.ErrStateMismatch):
		writeError(w, r, http.StatusBadRequest, "Invalid login state")
	case errors.Is(err, idrelay.ErrAuthorizationCodeMissing):
		writeError(w, r, http.StatusBadRequest, "Missing authorization code")
	case errors.Is(err, idrelay.ErrIdentityEmailMissing):
		writeError(w, r, http.StatusBadRequest, "Failed to get user email")
	case errors.Is(err, idrelay.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeError(w, r, http.StatusTooManyRequests, "Too many login attempts")
	case errors.Is(err, idrelay.ErrProviderExchange):
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("provider exchange failed")
		writeError(w, r, http.StatusBadGateway, "Identity provider exchange failed")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("login failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
