package memory

import (
	"context"
	"errors"
	"testing"

	"clinicore.org/internal/records"
	"clinicore.org/internal/tenancy"
)

func TestResourceCabinetPrefersPublished(t *testing.T) {
	s := New()
	s.Put("patients", "doc-1", 2, false, nil)
	s.Put("patients", "doc-1", 1, true, nil)

	id, ok, err := s.ResourceCabinet(context.Background(), "patients", "doc-1")
	if err != nil || !ok || id != 1 {
		t.Fatalf("ResourceCabinet = %d, %v, %v; want published row's 1", id, ok, err)
	}
}

func TestResourceCabinetFallsBackToDraft(t *testing.T) {
	s := New()
	s.Put("patients", "doc-1", 2, false, nil)

	id, ok, err := s.ResourceCabinet(context.Background(), "patients", "doc-1")
	if err != nil || !ok || id != 2 {
		t.Fatalf("ResourceCabinet = %d, %v, %v", id, ok, err)
	}
}

func TestListSkipsDrafts(t *testing.T) {
	s := New()
	s.Put("visits", "v-1", 1, true, map[string]any{"reason": "checkup"})
	s.Put("visits", "v-2", 1, false, nil)

	list, err := s.List(context.Background(), "visits", &tenancy.Scope{CabinetID: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0]["doc_id"] != "v-1" {
		t.Fatalf("list = %+v", list)
	}
}

func TestListCabinetsSelfScope(t *testing.T) {
	s := New()
	a := s.AddCabinet(tenancy.Cabinet{Name: "A", Published: true})
	s.AddCabinet(tenancy.Cabinet{Name: "B", Published: true})
	s.AddCabinet(tenancy.Cabinet{Name: "C", Published: false})

	all, err := s.ListCabinets(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListCabinets: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %+v", all)
	}

	own, err := s.ListCabinets(context.Background(), &tenancy.Scope{CabinetID: a.ID, Self: true})
	if err != nil {
		t.Fatalf("ListCabinets self: %v", err)
	}
	if len(own) != 1 || own[0].ID != a.ID {
		t.Fatalf("own = %+v", own)
	}
}

func TestCreateConflictOnExistingDoc(t *testing.T) {
	s := New()
	s.Put("patients", "doc-1", 1, true, nil)

	_, err := s.Create(context.Background(), "patients", records.Record{"doc_id": "doc-1"})
	if !errors.Is(err, records.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateOnlyTouchesPublishedRow(t *testing.T) {
	s := New()
	s.Put("patients", "doc-1", 1, false, map[string]any{"full_name": "Draft"})

	if _, err := s.Update(context.Background(), "patients", "doc-1", records.Record{"full_name": "X"}); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("draft-only update: err = %v, want ErrNotFound", err)
	}

	s.Put("patients", "doc-1", 1, true, map[string]any{"full_name": "Published"})
	rec, err := s.Update(context.Background(), "patients", "doc-1", records.Record{"full_name": "Renamed"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec["full_name"] != "Renamed" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestDeleteRemovesDraftAndPublished(t *testing.T) {
	s := New()
	s.Put("patients", "doc-1", 1, false, nil)
	s.Put("patients", "doc-1", 1, true, nil)

	if err := s.Delete(context.Background(), "patients", "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.ResourceCabinet(context.Background(), "patients", "doc-1"); err != nil {
		t.Fatalf("ResourceCabinet: %v", err)
	}
	if _, ok, _ := s.ResourceCabinet(context.Background(), "patients", "doc-1"); ok {
		t.Fatal("rows must all be gone")
	}
}
