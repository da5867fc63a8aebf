package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"clinicore.org/internal/auth"
)

// handleAccessEvents streams authorization decisions as server-sent events.
// The route lives outside the API middleware chain, so the bearer token is
// checked here and only superadmins may subscribe.
func (a *API) handleAccessEvents(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "No token provided")
		return
	}
	claims, err := a.tokens.Verify(token)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "Invalid token")
		return
	}
	principal, err := a.identity.FindPrincipal(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "authentication error")
		return
	}
	if principal.Blocked || !principal.IsSuperAdmin() {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := a.events.Subscribe(r.Context())
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: access\ndata: %s\n\n", data)
		flusher.Flush()
	}
}
