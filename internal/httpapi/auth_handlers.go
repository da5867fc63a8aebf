package httpapi

import (
	"errors"
	"net/http"

	"clinicore.org/internal/audit"
	"clinicore.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.tokens.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "authentication error")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"principal_id": session.Principal.ID,
		"expires_at":   session.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, session)
}

// handleAuthRefresh exchanges a bearer token (fresh, or expired within the
// grace window) for a new one carrying a freshly resolved cabinet id.
func (a *API) handleAuthRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "No token provided")
		return
	}
	session, err := a.tokens.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredBeyondGrace):
			writeError(w, r, http.StatusUnauthorized, "Token expired beyond refresh window")
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoToken):
			writeError(w, r, http.StatusUnauthorized, "Invalid token")
		case errors.Is(err, auth.ErrUnauthorized):
			writeError(w, r, http.StatusUnauthorized, "Unauthorized")
		default:
			writeError(w, r, http.StatusInternalServerError, "authentication error")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.token.refreshed", map[string]any{
		"principal_id": session.Principal.ID,
		"expires_at":   session.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"principal":  session.Principal,
	})
}
