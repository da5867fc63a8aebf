package tenancy

import "context"

// Cabinet is the organizational unit every scoped record belongs to. Two
// physical rows may share one DocID: an in-progress draft and the published
// row the API serves. At most one row per DocID is published.
type Cabinet struct {
	ID        int64  `json:"id"`
	DocID     string `json:"doc_id"`
	Name      string `json:"name"`
	Published bool   `json:"published"`
}

// LinkStore reads the relation rows this subsystem needs: principal-to-
// cabinet links and the published-row lookups used to resolve drafts.
// All operations are read-only.
type LinkStore interface {
	// OwnerCabinet returns the cabinet row the principal's direct link
	// points at, or nil when there is no direct link.
	OwnerCabinet(ctx context.Context, principalID string) (*Cabinet, error)
	// StaffCabinets returns the cabinet rows the principal is staff of,
	// in link order.
	StaffCabinets(ctx context.Context, principalID string) ([]Cabinet, error)
	// PublishedCabinet returns the published row for a logical document
	// id, or nil when no published counterpart exists yet.
	PublishedCabinet(ctx context.Context, docID string) (*Cabinet, error)
	// ResourceCabinet resolves the owning cabinet id of a scoped record
	// by its own document id, preferring the published row. ok is false
	// when no row exists at all.
	ResourceCabinet(ctx context.Context, table, docID string) (cabinetID int64, ok bool, err error)
}

type cabinetContextKey struct{}
type scopeContextKey struct{}

// ContextWithCabinet stores the resolved cabinet id on the request context.
// This is the slot the authorization policy reads; it is never kept on a
// mutable principal object.
func ContextWithCabinet(ctx context.Context, cabinetID int64) context.Context {
	return context.WithValue(ctx, cabinetContextKey{}, cabinetID)
}

// CabinetFromContext returns the cabinet id placed by the middleware.
func CabinetFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	v, ok := ctx.Value(cabinetContextKey{}).(int64)
	if !ok || v == 0 {
		return 0, false
	}
	return v, true
}

// Scope is the tenant filter the middleware attaches to qualifying list
// requests. Self scopes the cabinets collection itself (id = CabinetID);
// otherwise the filter is cabinet_id = CabinetID on the scoped table.
type Scope struct {
	Resource  string
	CabinetID int64
	Self      bool
}

// ContextWithScope attaches a list filter to the context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext returns the list filter, if one was attached.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	v, ok := ctx.Value(scopeContextKey{}).(Scope)
	return v, ok
}
