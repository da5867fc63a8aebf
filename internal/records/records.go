// Package records defines the thin persistence contract the access-control
// subsystem hands its approved, tenant-filtered requests to. Business
// validation of record contents lives in downstream domain controllers,
// not here.
package records

import (
	"context"
	"errors"

	"clinicore.org/internal/tenancy"
)

var (
	ErrNotFound = errors.New("records: not found")
	ErrConflict = errors.New("records: already exists")
)

// Record is an untyped scoped record. The cabinet relation travels in the
// "cabinet" field; the logical document id in "doc_id".
type Record map[string]any

// Store persists tenant-scoped records. List receives the scope the
// middleware attached (nil means unfiltered, which only superadmins reach).
type Store interface {
	List(ctx context.Context, table string, scope *tenancy.Scope) ([]Record, error)
	Get(ctx context.Context, table, docID string) (Record, error)
	Create(ctx context.Context, table string, rec Record) (Record, error)
	Update(ctx context.Context, table, docID string, rec Record) (Record, error)
	Delete(ctx context.Context, table, docID string) error
}

// CabinetStore lists and fetches published cabinets for the API surface.
type CabinetStore interface {
	ListCabinets(ctx context.Context, scope *tenancy.Scope) ([]tenancy.Cabinet, error)
	PublishedCabinet(ctx context.Context, docID string) (*tenancy.Cabinet, error)
}
