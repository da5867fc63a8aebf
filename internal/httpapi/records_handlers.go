package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinicore.org/internal/records"
	"clinicore.org/internal/tenancy"
)

// mountRecords wires the registry-driven CRUD surface for one scoped
// resource type. Every route passes through withAuth (group-level) and the
// per-route authorize wrapper, in that order.
func (a *API) mountRecords(r chi.Router, entry tenancy.Entry) {
	r.Route("/"+entry.Segment, func(r chi.Router) {
		r.With(a.authorize(entry.Resource, tenancy.ActionList)).Get("/", a.handleListRecords(entry))
		r.With(a.authorize(entry.Resource, tenancy.ActionCreate)).Post("/", a.handleCreateRecord(entry))
		r.Route("/{docID}", func(r chi.Router) {
			r.With(a.authorize(entry.Resource, tenancy.ActionRead)).Get("/", a.handleGetRecord(entry))
			r.With(a.authorize(entry.Resource, tenancy.ActionUpdate)).Put("/", a.handleUpdateRecord(entry))
			r.With(a.authorize(entry.Resource, tenancy.ActionDelete)).Delete("/", a.handleDeleteRecord(entry))
		})
	})
}

func (a *API) handleListRecords(entry tenancy.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var scopePtr *tenancy.Scope
		if scope, ok := tenancy.ScopeFromContext(r.Context()); ok {
			scopePtr = &scope
		}
		list, err := a.records.List(r.Context(), entry.Table(), scopePtr)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "storage error")
			return
		}
		if list == nil {
			list = []records.Record{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list})
	}
}

func (a *API) handleGetRecord(entry tenancy.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID := chi.URLParam(r, "docID")
		rec, err := a.records.Get(r.Context(), entry.Table(), docID)
		if err != nil {
			if errors.Is(err, records.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "resource not found")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "storage error")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (a *API) handleCreateRecord(entry tenancy.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := payloadFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		rec, err := a.records.Create(r.Context(), entry.Table(), records.Record(payload))
		if err != nil {
			if errors.Is(err, records.ErrConflict) {
				writeError(w, r, http.StatusConflict, "resource already exists")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "storage error")
			return
		}
		w.Header().Set("Location", "/v1/"+entry.Segment+"/"+rec["doc_id"].(string))
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (a *API) handleUpdateRecord(entry tenancy.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := payloadFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		docID := chi.URLParam(r, "docID")
		rec, err := a.records.Update(r.Context(), entry.Table(), docID, records.Record(payload))
		if err != nil {
			if errors.Is(err, records.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "resource not found")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "storage error")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (a *API) handleDeleteRecord(entry tenancy.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID := chi.URLParam(r, "docID")
		if err := a.records.Delete(r.Context(), entry.Table(), docID); err != nil {
			if errors.Is(err, records.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "resource not found")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "storage error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- cabinets -------------------------------------------------------------

func (a *API) handleListCabinets(w http.ResponseWriter, r *http.Request) {
	var scopePtr *tenancy.Scope
	if scope, ok := tenancy.ScopeFromContext(r.Context()); ok {
		scopePtr = &scope
	}
	list, err := a.cabinets.ListCabinets(r.Context(), scopePtr)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "storage error")
		return
	}
	if list == nil {
		list = []tenancy.Cabinet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}

func (a *API) handleGetCabinet(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	cabinet, err := a.cabinets.PublishedCabinet(r.Context(), docID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "storage error")
		return
	}
	if cabinet == nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	writeJSON(w, http.StatusOK, cabinet)
}
