// Package memory implements the store interfaces in process memory. It
// backs handler tests and the DSN-less dev mode with the exact semantics
// the Postgres store provides.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"clinicore.org/internal/auth"
	"clinicore.org/internal/ids"
	"clinicore.org/internal/records"
	"clinicore.org/internal/tenancy"
)

type storedRecord struct {
	DocID     string
	CabinetID int64
	Published bool
	Data      map[string]any
}

// Store keeps principals, cabinets, links and scoped records in memory.
type Store struct {
	mu         sync.RWMutex
	principals map[string]auth.Principal // by id
	byEmail    map[string]string
	cabinets   []tenancy.Cabinet
	owners     map[string]int64   // principal id -> cabinet row id
	staff      map[string][]int64 // principal id -> cabinet row ids, in order
	tables     map[string][]storedRecord
}

// New returns an empty store.
func New() *Store {
	return &Store{
		principals: make(map[string]auth.Principal),
		byEmail:    make(map[string]string),
		owners:     make(map[string]int64),
		staff:      make(map[string][]int64),
		tables:     make(map[string][]storedRecord),
	}
}

// --- fixtures -------------------------------------------------------------

// AddPrincipal registers a principal.
func (s *Store) AddPrincipal(p auth.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.ID] = p
	s.byEmail[strings.ToLower(p.Email)] = p.ID
}

// AddCabinet registers a cabinet row (draft or published) and returns it.
func (s *Store) AddCabinet(c tenancy.Cabinet) tenancy.Cabinet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = int64(len(s.cabinets) + 1)
	}
	if c.DocID == "" {
		c.DocID = ids.New()
	}
	s.cabinets = append(s.cabinets, c)
	return c
}

// LinkOwner creates the direct principal-to-cabinet link.
func (s *Store) LinkOwner(principalID string, cabinetRowID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[principalID] = cabinetRowID
}

// LinkStaff appends a staff-membership link.
func (s *Store) LinkStaff(principalID string, cabinetRowID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[principalID] = append(s.staff[principalID], cabinetRowID)
}

// Put inserts a record row directly, bypassing the API surface.
func (s *Store) Put(table, docID string, cabinetID int64, published bool, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data == nil {
		data = map[string]any{}
	}
	s.tables[table] = append(s.tables[table], storedRecord{
		DocID: docID, CabinetID: cabinetID, Published: published, Data: data,
	})
}

// --- auth.IdentityStore ---------------------------------------------------

func (s *Store) FindPrincipal(ctx context.Context, id string) (*auth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *Store) FindPrincipalByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	s.mu.RLock()
	id, ok := s.byEmail[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, auth.ErrNotFound
	}
	return s.FindPrincipal(ctx, id)
}

// --- tenancy.LinkStore ----------------------------------------------------

func (s *Store) OwnerCabinet(ctx context.Context, principalID string) (*tenancy.Cabinet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rowID, ok := s.owners[principalID]
	if !ok {
		return nil, nil
	}
	return s.cabinetByRowID(rowID), nil
}

func (s *Store) StaffCabinets(ctx context.Context, principalID string) ([]tenancy.Cabinet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []tenancy.Cabinet
	for _, rowID := range s.staff[principalID] {
		if c := s.cabinetByRowID(rowID); c != nil {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (s *Store) PublishedCabinet(ctx context.Context, docID string) (*tenancy.Cabinet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.cabinets {
		if s.cabinets[i].DocID == docID && s.cabinets[i].Published {
			out := s.cabinets[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ResourceCabinet(ctx context.Context, table, docID string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var draft *storedRecord
	for i := range s.tables[table] {
		rec := &s.tables[table][i]
		if rec.DocID != docID {
			continue
		}
		if rec.Published {
			return rec.CabinetID, true, nil
		}
		if draft == nil {
			draft = rec
		}
	}
	if draft != nil {
		return draft.CabinetID, true, nil
	}
	return 0, false, nil
}

func (s *Store) cabinetByRowID(rowID int64) *tenancy.Cabinet {
	for i := range s.cabinets {
		if s.cabinets[i].ID == rowID {
			out := s.cabinets[i]
			return &out
		}
	}
	return nil
}

// --- tenancy.SchemaSource -------------------------------------------------

func (s *Store) TenantLinkedTables(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tables := make([]string, 0, len(s.tables)+2)
	for table := range s.tables {
		tables = append(tables, table)
	}
	tables = append(tables, "cabinet_owners", "cabinet_staff")
	sort.Strings(tables)
	return tables, nil
}

// --- records.CabinetStore -------------------------------------------------

func (s *Store) ListCabinets(ctx context.Context, scope *tenancy.Scope) ([]tenancy.Cabinet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []tenancy.Cabinet
	for _, c := range s.cabinets {
		if !c.Published {
			continue
		}
		if scope != nil && scope.Self && c.ID != scope.CabinetID {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// --- records.Store --------------------------------------------------------

func (s *Store) List(ctx context.Context, table string, scope *tenancy.Scope) ([]records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []records.Record
	for i := range s.tables[table] {
		rec := &s.tables[table][i]
		if !rec.Published {
			continue
		}
		if scope != nil && !scope.Self && rec.CabinetID != scope.CabinetID {
			continue
		}
		result = append(result, exportRecord(rec))
	}
	sort.Slice(result, func(i, j int) bool {
		a, _ := result[i]["doc_id"].(string)
		b, _ := result[j]["doc_id"].(string)
		return a < b
	})
	return result, nil
}

func (s *Store) Get(ctx context.Context, table, docID string) (records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var draft *storedRecord
	for i := range s.tables[table] {
		rec := &s.tables[table][i]
		if rec.DocID != docID {
			continue
		}
		if rec.Published {
			return exportRecord(rec), nil
		}
		if draft == nil {
			draft = rec
		}
	}
	if draft != nil {
		return exportRecord(draft), nil
	}
	return nil, records.ErrNotFound
}

func (s *Store) Create(ctx context.Context, table string, rec records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docID, _ := rec["doc_id"].(string)
	if docID == "" {
		docID = ids.New()
	}
	for i := range s.tables[table] {
		if s.tables[table][i].DocID == docID {
			return nil, records.ErrConflict
		}
	}
	stored := storedRecord{
		DocID:     docID,
		CabinetID: numericCabinet(rec[tenancy.PayloadCabinetField]),
		Published: true,
		Data:      map[string]any{},
	}
	for k, v := range rec {
		if k == "doc_id" || k == tenancy.PayloadCabinetField {
			continue
		}
		stored.Data[k] = v
	}
	s.tables[table] = append(s.tables[table], stored)
	return exportRecord(&stored), nil
}

func (s *Store) Update(ctx context.Context, table, docID string, rec records.Record) (records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tables[table] {
		stored := &s.tables[table][i]
		if stored.DocID != docID || !stored.Published {
			continue
		}
		stored.Data = map[string]any{}
		for k, v := range rec {
			if k == "doc_id" || k == tenancy.PayloadCabinetField {
				continue
			}
			stored.Data[k] = v
		}
		return exportRecord(stored), nil
	}
	return nil, records.ErrNotFound
}

func (s *Store) Delete(ctx context.Context, table, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tables[table][:0]
	found := false
	for _, rec := range s.tables[table] {
		if rec.DocID == docID {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	s.tables[table] = kept
	if !found {
		return records.ErrNotFound
	}
	return nil
}

func exportRecord(stored *storedRecord) records.Record {
	rec := records.Record{}
	for k, v := range stored.Data {
		rec[k] = v
	}
	rec["doc_id"] = stored.DocID
	rec[tenancy.PayloadCabinetField] = stored.CabinetID
	return rec
}

func numericCabinet(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
