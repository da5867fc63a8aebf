package pg

import (
	"context"
	"database/sql"
	"errors"

	"clinicore.org/internal/auth"
)

var _ auth.IdentityStore = (*Store)(nil)

// FindPrincipal loads a principal by id.
func (s *Store) FindPrincipal(ctx context.Context, id string) (*auth.Principal, error) {
	return s.scanPrincipal(s.db.QueryRowContext(ctx, `
		select id, email, full_name, role, blocked, password_hash, created_at, updated_at
		from principals
		where id = $1
	`, id))
}

// FindPrincipalByEmail loads a principal by lower-cased email.
func (s *Store) FindPrincipalByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	return s.scanPrincipal(s.db.QueryRowContext(ctx, `
		select id, email, full_name, role, blocked, password_hash, created_at, updated_at
		from principals
		where email = $1
	`, email))
}

func (s *Store) scanPrincipal(row *sql.Row) (*auth.Principal, error) {
	var p auth.Principal
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.Blocked, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
