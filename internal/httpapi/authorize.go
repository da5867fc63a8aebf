package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinicore.org/internal/audit"
	"clinicore.org/internal/auth"
	"clinicore.org/internal/obs"
	"clinicore.org/internal/stream"
	"clinicore.org/internal/tenancy"
)

type payloadContextKey struct{}

// payloadFromContext returns the JSON payload decoded (and possibly
// cabinet-assigned) by the authorize stage.
func payloadFromContext(ctx context.Context) (map[string]any, bool) {
	v, ok := ctx.Value(payloadContextKey{}).(map[string]any)
	return v, ok
}

// authorize wraps a route handler with the per-route policy decision. It
// runs strictly after withAuth and reads only the context values that stage
// populated; the ordering is fixed by route construction, not convention.
func (a *API) authorize(resource string, action tenancy.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, _ := auth.PrincipalFromContext(ctx)
			cabinetID, hasCabinet := tenancy.CabinetFromContext(ctx)

			req := &tenancy.AccessRequest{
				Principal:  principal,
				CabinetID:  cabinetID,
				HasCabinet: hasCabinet,
				Resource:   resource,
				DocumentID: chi.URLParam(r, "docID"),
				Action:     action,
			}

			if action == tenancy.ActionCreate || action == tenancy.ActionUpdate {
				payload, err := decodePayloadBody(r)
				if err != nil {
					writeError(w, r, http.StatusBadRequest, "invalid request body")
					return
				}
				req.Payload = payload
			}

			allowed, err := a.policy.Allow(ctx, req)
			if err != nil {
				obs.ObserveAuthzDecision(resource, string(action), "error")
				obs.Warn("authorization failed", map[string]any{
					"resource": resource,
					"action":   string(action),
					"error":    err.Error(),
				})
				writeError(w, r, http.StatusInternalServerError, "authorization error")
				return
			}

			a.publishDecision(req, allowed)
			if !allowed {
				obs.ObserveAuthzDecision(resource, string(action), "deny")
				_ = audit.LogEvent(ctx, "authz.denied", map[string]any{
					"resource":    resource,
					"action":      string(action),
					"document_id": req.DocumentID,
				})
				if !hasCabinet {
					writeError(w, r, http.StatusForbidden, "no cabinet assigned")
					return
				}
				writeError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			obs.ObserveAuthzDecision(resource, string(action), "allow")

			if req.Payload != nil {
				r = r.WithContext(context.WithValue(r.Context(), payloadContextKey{}, req.Payload))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *API) publishDecision(req *tenancy.AccessRequest, allowed bool) {
	if a.events == nil {
		return
	}
	evt := stream.AccessEvent{
		CabinetID:  req.CabinetID,
		Resource:   req.Resource,
		Action:     string(req.Action),
		DocumentID: req.DocumentID,
		Allowed:    allowed,
	}
	if req.Principal != nil {
		evt.PrincipalID = req.Principal.ID
	}
	a.events.Publish(evt)
}

func decodePayloadBody(r *http.Request) (map[string]any, error) {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	payload := map[string]any{}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}
