package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Session is the result of a successful login or refresh.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Principal Profile   `json:"principal"`
}

// Login authenticates credentials, resolves the caller's cabinet and mints
// a token carrying it.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, ErrUnauthorized
	}
	principal, err := s.identity.FindPrincipalByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, fmt.Errorf("load principal: %w", err)
	}
	if principal.Blocked {
		return Session{}, ErrUnauthorized
	}
	if err := VerifyPassword(principal.PasswordHash, password); err != nil {
		return Session{}, ErrUnauthorized
	}
	return s.mint(ctx, principal)
}

// Refresh exchanges a still-signed token (fresh, or expired within the
// grace window) for a brand-new one. The cabinet id is re-resolved fresh:
// the old token's embedded value is never reused because identity state may
// have changed since issuance.
func (s *Service) Refresh(ctx context.Context, raw string) (Session, error) {
	claims, err := s.VerifyWithGrace(raw)
	if err != nil {
		return Session{}, err
	}
	principal, err := s.identity.FindPrincipal(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, fmt.Errorf("load principal: %w", err)
	}
	if principal.Blocked {
		return Session{}, ErrUnauthorized
	}
	return s.mint(ctx, principal)
}

func (s *Service) mint(ctx context.Context, principal *Principal) (Session, error) {
	var cabinetID int64
	if s.tenants != nil {
		id, err := s.tenants.Resolve(ctx, principal.ID)
		if err != nil {
			return Session{}, fmt.Errorf("resolve cabinet: %w", err)
		}
		cabinetID = id
	}
	token, exp, err := s.Issue(principal.ID, cabinetID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, Principal: principal.Profile()}, nil
}
