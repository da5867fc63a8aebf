package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"clinicore.org/internal/ids"
	"clinicore.org/internal/records"
	"clinicore.org/internal/tenancy"
)

var _ records.Store = (*Store)(nil)

// List returns published records of a scoped table, filtered to the
// attached cabinet scope when present.
func (s *Store) List(ctx context.Context, table string, scope *tenancy.Scope) ([]records.Record, error) {
	if !isSafeIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	query := fmt.Sprintf(`
		select doc_id, cabinet_id, data from %s
		where published
	`, table)
	var args []any
	if scope != nil && !scope.Self {
		query += ` and cabinet_id = $1`
		args = append(args, scope.CabinetID)
	}
	query += ` order by doc_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []records.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Get loads one record by document id, preferring the published row.
func (s *Store) Get(ctx context.Context, table, docID string) (records.Record, error) {
	if !isSafeIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		select doc_id, cabinet_id, data from %s
		where doc_id = $1
		order by published desc
		limit 1
	`, table), docID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Create inserts a published record. The cabinet field must already be set
// by the authorization policy; the document id is generated when absent.
func (s *Store) Create(ctx context.Context, table string, rec records.Record) (records.Record, error) {
	if !isSafeIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	docID, _ := rec["doc_id"].(string)
	if docID == "" {
		docID = ids.New()
	}
	cabinetID := cabinetIDOf(rec)
	data, err := json.Marshal(payloadData(rec))
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		insert into %s (doc_id, cabinet_id, published, data)
		values ($1, $2, true, $3)
	`, table), docID, cabinetID, data)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return nil, records.ErrConflict
		}
		return nil, err
	}

	out := records.Record{}
	for k, v := range rec {
		out[k] = v
	}
	out["doc_id"] = docID
	out[tenancy.PayloadCabinetField] = cabinetID
	return out, nil
}

// Update rewrites the data of the published row. The cabinet relation is
// immutable here: the column is never part of the update.
func (s *Store) Update(ctx context.Context, table, docID string, rec records.Record) (records.Record, error) {
	if !isSafeIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	data, err := json.Marshal(payloadData(rec))
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		update %s set data = $2, updated_at = now()
		where doc_id = $1 and published
	`, table), docID, data)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, records.ErrNotFound
	}
	return s.Get(ctx, table, docID)
}

// Delete removes every row of the document, draft and published alike.
func (s *Store) Delete(ctx context.Context, table, docID string) error {
	if !isSafeIdent(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`delete from %s where doc_id = $1`, table), docID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return records.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (records.Record, error) {
	var (
		docID     string
		cabinetID int64
		data      []byte
	)
	if err := row.Scan(&docID, &cabinetID, &data); err != nil {
		return nil, err
	}
	rec := records.Record{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", docID, err)
		}
	}
	rec["doc_id"] = docID
	rec[tenancy.PayloadCabinetField] = cabinetID
	return rec, nil
}

// payloadData strips envelope fields so only domain data lands in the
// jsonb column.
func payloadData(rec records.Record) map[string]any {
	data := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == "doc_id" || k == tenancy.PayloadCabinetField {
			continue
		}
		data[k] = v
	}
	return data
}

func cabinetIDOf(rec records.Record) int64 {
	switch v := rec[tenancy.PayloadCabinetField].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
