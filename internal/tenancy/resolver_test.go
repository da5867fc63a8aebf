package tenancy

import (
	"context"
	"errors"
	"testing"
)

type fakeLinks struct {
	owner     map[string]*Cabinet
	staff     map[string][]Cabinet
	published map[string]*Cabinet
	resources map[string]map[string]int64

	failOwner     error
	failStaff     error
	failPublished error
}

func (f *fakeLinks) OwnerCabinet(_ context.Context, principalID string) (*Cabinet, error) {
	if f.failOwner != nil {
		return nil, f.failOwner
	}
	return f.owner[principalID], nil
}

func (f *fakeLinks) StaffCabinets(_ context.Context, principalID string) ([]Cabinet, error) {
	if f.failStaff != nil {
		return nil, f.failStaff
	}
	return f.staff[principalID], nil
}

func (f *fakeLinks) PublishedCabinet(_ context.Context, docID string) (*Cabinet, error) {
	if f.failPublished != nil {
		return nil, f.failPublished
	}
	return f.published[docID], nil
}

func (f *fakeLinks) ResourceCabinet(_ context.Context, table, docID string) (int64, bool, error) {
	byDoc, ok := f.resources[table]
	if !ok {
		return 0, false, nil
	}
	id, ok := byDoc[docID]
	return id, ok, nil
}

func TestResolveOwnerPublished(t *testing.T) {
	links := &fakeLinks{
		owner: map[string]*Cabinet{
			"pr-1": {ID: 5, DocID: "cab-a", Published: true},
		},
		staff: map[string][]Cabinet{
			"pr-1": {{ID: 9, DocID: "cab-b", Published: true}},
		},
	}
	r := NewResolver(links)

	got, err := r.Resolve(context.Background(), "pr-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// The owner link wins over any staff link.
	if got != 5 {
		t.Fatalf("cabinet = %d, want 5", got)
	}
}

func TestResolveOwnerDraftLandsOnPublished(t *testing.T) {
	links := &fakeLinks{
		owner: map[string]*Cabinet{
			"pr-1": {ID: 6, DocID: "cab-a", Published: false},
		},
		published: map[string]*Cabinet{
			"cab-a": {ID: 5, DocID: "cab-a", Published: true},
		},
	}
	r := NewResolver(links)

	got, err := r.Resolve(context.Background(), "pr-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != 5 {
		t.Fatalf("cabinet = %d, want published row 5", got)
	}
}

func TestResolveDraftWithoutPublishedFallsToStaff(t *testing.T) {
	links := &fakeLinks{
		owner: map[string]*Cabinet{
			"pr-1": {ID: 6, DocID: "cab-a", Published: false},
		},
		staff: map[string][]Cabinet{
			"pr-1": {
				{ID: 8, DocID: "cab-b", Published: false},
				{ID: 9, DocID: "cab-c", Published: true},
			},
		},
		published: map[string]*Cabinet{},
	}
	r := NewResolver(links)

	got, err := r.Resolve(context.Background(), "pr-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != 9 {
		t.Fatalf("cabinet = %d, want first resolvable staff link 9", got)
	}
}

func TestResolveNoLinks(t *testing.T) {
	r := NewResolver(&fakeLinks{})

	got, err := r.Resolve(context.Background(), "pr-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != 0 {
		t.Fatalf("cabinet = %d, want 0", got)
	}
}

func TestResolveEmptyPrincipal(t *testing.T) {
	r := NewResolver(&fakeLinks{})

	got, err := r.Resolve(context.Background(), "  ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != 0 {
		t.Fatalf("cabinet = %d, want 0", got)
	}
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("db down")

	r := NewResolver(&fakeLinks{failOwner: boom})
	if _, err := r.Resolve(context.Background(), "pr-1"); !errors.Is(err, boom) {
		t.Fatalf("owner: err = %v, want wrapped %v", err, boom)
	}

	r = NewResolver(&fakeLinks{failStaff: boom})
	if _, err := r.Resolve(context.Background(), "pr-1"); !errors.Is(err, boom) {
		t.Fatalf("staff: err = %v, want wrapped %v", err, boom)
	}

	r = NewResolver(&fakeLinks{
		owner:         map[string]*Cabinet{"pr-1": {ID: 6, DocID: "cab-a"}},
		failPublished: boom,
	})
	if _, err := r.Resolve(context.Background(), "pr-1"); !errors.Is(err, boom) {
		t.Fatalf("published: err = %v, want wrapped %v", err, boom)
	}
}
