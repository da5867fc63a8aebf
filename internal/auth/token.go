package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer    = "clinicore"
	defaultAccessTTL = 12 * time.Hour
	defaultGrace     = 4 * time.Hour
)

// Claims carries the signed token payload. The cab claim is the cabinet id
// pre-resolved at issuance; zero means the principal had no cabinet then.
type Claims struct {
	CabinetID int64 `json:"cab,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies bearer tokens and runs the login/refresh
// flows against the identity store and tenant resolver.
type Service struct {
	identity IdentityStore
	tenants  TenantResolver
	now      func() time.Time

	secret    []byte
	issuer    string
	accessTTL time.Duration
	grace     time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithSecret sets the HS256 signing secret. Required.
func WithSecret(secret string) ServiceOption {
	return func(s *Service) error {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			return errors.New("auth: signing secret is empty")
		}
		s.secret = []byte(secret)
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithAccessTTL configures token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithGraceWindow configures how long past expiry a token is still accepted
// for refresh.
func WithGraceWindow(grace time.Duration) ServiceOption {
	return func(s *Service) error {
		if grace > 0 {
			s.grace = grace
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the token service. A signing secret is mandatory.
func NewService(identity IdentityStore, tenants TenantResolver, opts ...ServiceOption) (*Service, error) {
	svc := &Service{
		identity:  identity,
		tenants:   tenants,
		now:       time.Now,
		issuer:    defaultIssuer,
		accessTTL: defaultAccessTTL,
		grace:     defaultGrace,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	if len(svc.secret) == 0 {
		return nil, errors.New("auth: signing secret is not configured")
	}
	return svc, nil
}

// Issue signs a token for the principal. cabinetID zero means no cabinet
// was resolved; the claim is then omitted and the middleware falls back to
// the resolver on each request.
func (s *Service) Issue(principalID string, cabinetID int64) (string, time.Time, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return "", time.Time{}, errors.New("auth: principal id is required")
	}
	now := s.now().UTC()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		CabinetID: cabinetID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature and all registered claims, expiry included. This
// is the request-path mode: no grace period.
func (s *Service) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyWithGrace accepts tokens that expired less than the grace window
// ago. The signature check is mandatory in both branches: an expired token
// is re-parsed in the non-expiry-validating mode, never decoded unsigned.
func (s *Service) VerifyWithGrace(raw string) (*Claims, error) {
	claims, err := s.Verify(raw)
	if err == nil {
		return claims, nil
	}
	if !errors.Is(err, ErrTokenExpired) {
		return nil, err
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.Issuer != s.issuer {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if s.now().Sub(claims.ExpiresAt.Time) > s.grace {
		return nil, ErrExpiredBeyondGrace
	}
	return claims, nil
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, ErrInvalidToken
	}
	return s.secret, nil
}
