package auth

import (
	"context"
	"time"
)

// Closed role set. RoleSuperAdmin bypasses tenant filtering entirely.
const (
	RoleSuperAdmin = "superadmin"
	RoleOwner      = "owner"
	RoleDoctor     = "doctor"
	RoleAssistant  = "assistant"
)

// Principal is an authenticated actor as stored by the identity store.
// Read-only to this subsystem.
type Principal struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Blocked      bool      `json:"blocked"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsSuperAdmin reports whether the principal holds the privileged bypass role.
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// Profile is the sanitized projection returned to API callers. It never
// carries credential material.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Profile strips credential material from the principal.
func (p *Principal) Profile() Profile {
	if p == nil {
		return Profile{}
	}
	return Profile{ID: p.ID, Email: p.Email, FullName: p.FullName, Role: p.Role}
}

// IdentityStore provides read access to principals.
type IdentityStore interface {
	FindPrincipal(ctx context.Context, id string) (*Principal, error)
	FindPrincipalByEmail(ctx context.Context, email string) (*Principal, error)
}

// TenantResolver determines a principal's owning cabinet. Zero means the
// principal has no cabinet; that is not an error.
type TenantResolver interface {
	Resolve(ctx context.Context, principalID string) (int64, error)
}
