package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPrincipal(t *testing.T, id, email, role, password string) *Principal {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &Principal{ID: id, Email: email, FullName: "Test User", Role: role, PasswordHash: hash}
}

func sessionFixture(t *testing.T, clock func() time.Time) (*Service, *fakeIdentity, *fakeResolver) {
	t.Helper()
	owner := testPrincipal(t, "pr-1", "owner@example.com", RoleOwner, "s3cret")
	identity := &fakeIdentity{
		byID:    map[string]*Principal{"pr-1": owner},
		byEmail: map[string]*Principal{"owner@example.com": owner},
	}
	resolver := &fakeResolver{cabinet: 7}
	svc, err := NewService(identity, resolver,
		WithSecret("test-secret"),
		WithAccessTTL(time.Hour),
		WithGraceWindow(4*time.Hour),
		WithClock(clock),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, identity, resolver
}

func TestLoginSuccess(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := sessionFixture(t, func() time.Time { return now })

	sess, err := svc.Login(context.Background(), "Owner@Example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected a token")
	}
	if sess.Principal.ID != "pr-1" || sess.Principal.Email != "owner@example.com" {
		t.Fatalf("principal = %+v", sess.Principal)
	}

	claims, err := svc.Verify(sess.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.CabinetID != 7 {
		t.Fatalf("cabinet = %d, want 7", claims.CabinetID)
	}
}

func TestLoginFailures(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	svc, identity, _ := sessionFixture(t, func() time.Time { return now })

	cases := []struct {
		name            string
		email, password string
		setup           func()
	}{
		{name: "unknown email", email: "nobody@example.com", password: "s3cret"},
		{name: "wrong password", email: "owner@example.com", password: "nope"},
		{name: "empty password", email: "owner@example.com", password: ""},
		{name: "blocked", email: "owner@example.com", password: "s3cret", setup: func() {
			identity.byEmail["owner@example.com"].Blocked = true
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup()
			}
			if _, err := svc.Login(context.Background(), tc.email, tc.password); !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestRefreshReResolvesCabinet(t *testing.T) {
	issued := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	clock := issued
	svc, _, resolver := sessionFixture(t, func() time.Time { return clock })

	sess, err := svc.Login(context.Background(), "owner@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Ownership moved to another cabinet while the token aged past expiry.
	resolver.cabinet = 9
	clock = issued.Add(2 * time.Hour)

	refreshed, err := svc.Refresh(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := svc.Verify(refreshed.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.CabinetID != 9 {
		t.Fatalf("cabinet = %d, want fresh resolution 9", claims.CabinetID)
	}
	if want := clock.Add(time.Hour); !refreshed.ExpiresAt.Equal(want) {
		t.Fatalf("expiry = %v, want %v", refreshed.ExpiresAt, want)
	}
}

func TestRefreshBlockedPrincipal(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	svc, identity, _ := sessionFixture(t, func() time.Time { return now })

	sess, err := svc.Login(context.Background(), "owner@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	identity.byID["pr-1"].Blocked = true

	if _, err := svc.Refresh(context.Background(), sess.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRefreshDeletedPrincipal(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	svc, identity, _ := sessionFixture(t, func() time.Time { return now })

	sess, err := svc.Login(context.Background(), "owner@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	delete(identity.byID, "pr-1")

	if _, err := svc.Refresh(context.Background(), sess.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRefreshRejectsBeyondGrace(t *testing.T) {
	issued := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	clock := issued
	svc, _, _ := sessionFixture(t, func() time.Time { return clock })

	sess, err := svc.Login(context.Background(), "owner@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	clock = issued.Add(time.Hour + 4*time.Hour + time.Minute)
	if _, err := svc.Refresh(context.Background(), sess.Token); !errors.Is(err, ErrExpiredBeyondGrace) {
		t.Fatalf("err = %v, want ErrExpiredBeyondGrace", err)
	}
}
