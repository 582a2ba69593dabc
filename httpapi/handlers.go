package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/idrelay"
	"github.com/MrEthical07/idrelay/middleware"
	"github.com/rs/zerolog"
)

// UserResponse is the body of GET /user.
type UserResponse struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	ExpiresAt string `json:"expires_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	target, err := s.relay.BeginLogin(w, r)
	if err != nil {
		presentLoginError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	cred, err := s.relay.CompleteLogin(r.Context(), w, r)
	if err != nil {
		presentLoginError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("jti", cred.TokenID).
		Str("provider", s.relay.ProviderName()).
		Msg("credential.issued")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Authentication successful"))
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, UserResponse{
		Email:     res.Claims.Email(),
		Name:      res.Claims.DisplayName(),
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := s.relay.Logout(r.Context(), w, r)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, idrelay.ErrRevocationUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "Logout could not be recorded")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("logout failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
