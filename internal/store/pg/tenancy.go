package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clinicore.org/internal/tenancy"
)

var _ tenancy.LinkStore = (*Store)(nil)
var _ tenancy.SchemaSource = (*Store)(nil)

// OwnerCabinet returns the cabinet row the principal's direct link points
// at, draft or published, or nil when there is no direct link.
func (s *Store) OwnerCabinet(ctx context.Context, principalID string) (*tenancy.Cabinet, error) {
	return s.scanCabinet(s.db.QueryRowContext(ctx, `
		select c.id, c.doc_id, c.name, c.published
		from cabinets c
		join cabinet_owners o on o.cabinet_id = c.id
		where o.principal_id = $1
		limit 1
	`, principalID))
}

// StaffCabinets returns cabinet rows linked through staff membership, in
// link order.
func (s *Store) StaffCabinets(ctx context.Context, principalID string) ([]tenancy.Cabinet, error) {
	rows, err := s.db.QueryContext(ctx, `
		select c.id, c.doc_id, c.name, c.published
		from cabinets c
		join cabinet_staff st on st.cabinet_id = c.id
		where st.principal_id = $1
		order by st.position
	`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenancy.Cabinet
	for rows.Next() {
		var c tenancy.Cabinet
		if err := rows.Scan(&c.ID, &c.DocID, &c.Name, &c.Published); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// PublishedCabinet returns the published row for a logical document id, or
// nil when only a draft exists.
func (s *Store) PublishedCabinet(ctx context.Context, docID string) (*tenancy.Cabinet, error) {
	return s.scanCabinet(s.db.QueryRowContext(ctx, `
		select id, doc_id, name, published
		from cabinets
		where doc_id = $1 and published
		limit 1
	`, docID))
}

// ResourceCabinet resolves a scoped record's owning cabinet id by the
// record's own document id, preferring the published row over a draft.
func (s *Store) ResourceCabinet(ctx context.Context, table, docID string) (int64, bool, error) {
	if !isSafeIdent(table) {
		return 0, false, fmt.Errorf("invalid table name %q", table)
	}
	var cabinetID int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		select cabinet_id from %s
		where doc_id = $1
		order by published desc
		limit 1
	`, table), docID).Scan(&cabinetID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return cabinetID, true, nil
}

// TenantLinkedTables lists live tables carrying a cabinet relation, for the
// startup registry audit.
func (s *Store) TenantLinkedTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select table_name
		from information_schema.columns
		where table_schema = 'public' and column_name = 'cabinet_id'
		order by table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// ListCabinets lists published cabinets, reduced to the caller's own row
// when a self scope is attached.
func (s *Store) ListCabinets(ctx context.Context, scope *tenancy.Scope) ([]tenancy.Cabinet, error) {
	query := `
		select id, doc_id, name, published
		from cabinets
		where published
	`
	var args []any
	if scope != nil && scope.Self {
		query += ` and id = $1`
		args = append(args, scope.CabinetID)
	}
	query += ` order by name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenancy.Cabinet
	for rows.Next() {
		var c tenancy.Cabinet
		if err := rows.Scan(&c.ID, &c.DocID, &c.Name, &c.Published); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) scanCabinet(row *sql.Row) (*tenancy.Cabinet, error) {
	var c tenancy.Cabinet
	err := row.Scan(&c.ID, &c.DocID, &c.Name, &c.Published)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
