package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"clinicore.org/internal/auth"
	"clinicore.org/internal/obs"
	"clinicore.org/internal/tenancy"
)

// withAuth is the authentication and tenant-filtering stage. It runs only
// on API routes (never on /v1/auth or /admin), passes unauthenticated
// requests through untouched, and on success annotates the request context
// with the principal, the resolved cabinet id and, for qualifying list
// reads, the tenant scope the store applies.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			// Many routes are intentionally public; the policy decides.
			next.ServeHTTP(w, r)
			return
		}

		// Request path uses strict expiry rules. The refresh grace
		// window does not apply here.
		claims, err := a.tokens.Verify(token)
		if err != nil {
			obs.ObserveTokenVerification("rejected")
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		obs.ObserveTokenVerification("ok")

		ctx := r.Context()
		principal, err := a.identity.FindPrincipal(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}
		if principal.Blocked {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		// Fast path: trust the cabinet id minted into the token.
		// Tokens issued before enrichment carry none; resolve fresh.
		cabinetID := claims.CabinetID
		if cabinetID == 0 {
			cabinetID, err = a.resolver.Resolve(ctx, principal.ID)
			if err != nil {
				writeError(w, r, http.StatusInternalServerError, "authentication error")
				return
			}
		}

		ctx = auth.ContextWithPrincipal(ctx, principal)
		if cabinetID != 0 {
			ctx = tenancy.ContextWithCabinet(ctx, cabinetID)
		}

		if cabinetID != 0 && !principal.IsSuperAdmin() {
			if scope, ok := a.listScope(r, cabinetID); ok {
				ctx = tenancy.ContextWithScope(ctx, scope)
			}
		}

		// Downstream handlers run outside this stage's error handling:
		// their failures reach the outer pipeline unmodified.
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// listScope reports the tenant filter for a list-style read: a GET with a
// single collection segment and no path-embedded resource id.
func (a *API) listScope(r *http.Request, cabinetID int64) (tenancy.Scope, bool) {
	if r.Method != http.MethodGet {
		return tenancy.Scope{}, false
	}
	segment, ok := collectionSegment(r.URL.Path)
	if !ok {
		return tenancy.Scope{}, false
	}
	if segment == "cabinets" {
		return tenancy.Scope{Resource: tenancy.CabinetResource, CabinetID: cabinetID, Self: true}, true
	}
	if entry, ok := a.registry.BySegment(segment); ok {
		return tenancy.Scope{Resource: entry.Resource, CabinetID: cabinetID}, true
	}
	return tenancy.Scope{}, false
}

// collectionSegment extracts the sole segment of /v1/<segment> paths.
func collectionSegment(path string) (string, bool) {
	trimmed := strings.Trim(strings.TrimPrefix(path, "/v1"), "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", false
	}
	return trimmed, true
}
