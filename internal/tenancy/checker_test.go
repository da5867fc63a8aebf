package tenancy

import (
	"context"
	"errors"
	"testing"
)

type fakeSchema struct {
	tables []string
	err    error
}

func (f *fakeSchema) TenantLinkedTables(_ context.Context) ([]string, error) {
	return f.tables, f.err
}

func TestCheckerFindsUnregisteredTable(t *testing.T) {
	registry, err := NewRegistry(Entry{Resource: "patient", Segment: "patients"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	schema := &fakeSchema{tables: []string{"patients", "lab_results"}}

	findings := NewChecker(registry, schema).Run(context.Background())
	if len(findings) != 1 {
		t.Fatalf("findings = %+v, want exactly one", findings)
	}
	if findings[0].Kind != FindingUnregistered || findings[0].Table != "lab_results" {
		t.Fatalf("finding = %+v", findings[0])
	}
}

func TestCheckerFindsStaleEntry(t *testing.T) {
	registry, err := NewRegistry(
		Entry{Resource: "patient", Segment: "patients"},
		Entry{Resource: "visit", Segment: "visits"},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	schema := &fakeSchema{tables: []string{"patients"}}

	findings := NewChecker(registry, schema).Run(context.Background())
	if len(findings) != 1 {
		t.Fatalf("findings = %+v, want exactly one", findings)
	}
	if findings[0].Kind != FindingStale || findings[0].Table != "visits" {
		t.Fatalf("finding = %+v", findings[0])
	}
}

func TestCheckerIgnoresLinkTables(t *testing.T) {
	registry, err := NewRegistry(Entry{Resource: "patient", Segment: "patients"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	schema := &fakeSchema{tables: []string{"patients", "cabinet_owners", "cabinet_staff"}}

	if findings := NewChecker(registry, schema).Run(context.Background()); len(findings) != 0 {
		t.Fatalf("findings = %+v, want none", findings)
	}
}

func TestCheckerSchemaErrorIsNonFatal(t *testing.T) {
	registry, err := NewRegistry(Entry{Resource: "patient", Segment: "patients"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	schema := &fakeSchema{err: errors.New("no db")}

	if findings := NewChecker(registry, schema).Run(context.Background()); findings != nil {
		t.Fatalf("findings = %+v, want nil", findings)
	}
}
