package tenancy

import (
	"context"
	"fmt"
	"strings"
)

// Resolver determines a principal's owning cabinet from relation link rows.
// Link rows may reference either the draft or the published row of a
// cabinet document; resolution always lands on the published row.
type Resolver struct {
	links LinkStore
}

// NewResolver constructs a resolver over the given link store.
func NewResolver(links LinkStore) *Resolver {
	return &Resolver{links: links}
}

// Resolve returns the principal's cabinet id, or zero when the principal
// has no cabinet. The direct (owner) link takes precedence over staff
// links; a draft link whose document has no published counterpart yields
// zero, not an error.
func (r *Resolver) Resolve(ctx context.Context, principalID string) (int64, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return 0, nil
	}

	owned, err := r.links.OwnerCabinet(ctx, principalID)
	if err != nil {
		return 0, fmt.Errorf("owner link: %w", err)
	}
	if id, ok, err := r.publishedID(ctx, owned); err != nil || ok {
		return id, err
	}

	staff, err := r.links.StaffCabinets(ctx, principalID)
	if err != nil {
		return 0, fmt.Errorf("staff links: %w", err)
	}
	for i := range staff {
		if id, ok, err := r.publishedID(ctx, &staff[i]); err != nil || ok {
			return id, err
		}
	}
	return 0, nil
}

// publishedID resolves a linked cabinet row to its published id. A nil row
// or a draft without a published counterpart reports ok=false.
func (r *Resolver) publishedID(ctx context.Context, row *Cabinet) (int64, bool, error) {
	if row == nil {
		return 0, false, nil
	}
	if row.Published {
		return row.ID, true, nil
	}
	published, err := r.links.PublishedCabinet(ctx, row.DocID)
	if err != nil {
		return 0, false, fmt.Errorf("published row for %s: %w", row.DocID, err)
	}
	if published == nil {
		return 0, false, nil
	}
	return published.ID, true, nil
}
