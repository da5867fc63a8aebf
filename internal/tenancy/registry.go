package tenancy

import (
	"fmt"
	"strings"
)

// CabinetResource names the tenant resource type itself. It is handled
// specially (filtered by its own id) and never appears in the registry.
const CabinetResource = "cabinet"

// Entry declares one tenant-scoped resource type and the URL segment that
// identifies it in list requests.
type Entry struct {
	Resource string `json:"resource"`
	Segment  string `json:"segment"`
}

// Table derives the relational table name backing the entry.
func (e Entry) Table() string {
	return strings.ReplaceAll(e.Segment, "-", "_")
}

// Registry is the static declaration of tenant-scoped resource types.
// Built once at boot, read-only afterwards; safe for concurrent use.
type Registry struct {
	entries    []Entry
	bySegment  map[string]Entry
	byResource map[string]Entry
}

// NewRegistry builds a registry from an ordered declaration list.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		bySegment:  make(map[string]Entry, len(entries)),
		byResource: make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		e.Resource = strings.TrimSpace(e.Resource)
		e.Segment = strings.TrimSpace(e.Segment)
		if e.Resource == "" || e.Segment == "" {
			return nil, fmt.Errorf("tenancy: registry entry %+v is incomplete", e)
		}
		if e.Resource == CabinetResource {
			return nil, fmt.Errorf("tenancy: %q is filtered by id, not by registry entry", CabinetResource)
		}
		if _, dup := r.byResource[e.Resource]; dup {
			return nil, fmt.Errorf("tenancy: duplicate registry entry for %q", e.Resource)
		}
		if _, dup := r.bySegment[e.Segment]; dup {
			return nil, fmt.Errorf("tenancy: duplicate registry segment %q", e.Segment)
		}
		r.entries = append(r.entries, e)
		r.bySegment[e.Segment] = e
		r.byResource[e.Resource] = e
	}
	return r, nil
}

// DefaultRegistry declares the resource types of the clinical records API.
// Append-only: new scoped types must be added here or they silently escape
// list filtering (the startup checker reports that gap).
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Entry{Resource: "patient", Segment: "patients"},
		Entry{Resource: "visit", Segment: "visits"},
		Entry{Resource: "treatment-plan", Segment: "treatment-plans"},
		Entry{Resource: "invoice", Segment: "invoices"},
		Entry{Resource: "staff-member", Segment: "staff-members"},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Entries returns the declaration list in order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// BySegment looks up an entry by its URL plural segment.
func (r *Registry) BySegment(segment string) (Entry, bool) {
	e, ok := r.bySegment[segment]
	return e, ok
}

// ByResource looks up an entry by resource type name.
func (r *Registry) ByResource(resource string) (Entry, bool) {
	e, ok := r.byResource[resource]
	return e, ok
}
