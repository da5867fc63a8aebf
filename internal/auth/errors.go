package auth

import "errors"

var (
	// ErrNoToken indicates the request carried no bearer token.
	ErrNoToken = errors.New("auth: no token provided")
	// ErrInvalidToken indicates the token failed signature or shape checks.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired indicates a well-signed token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrExpiredBeyondGrace indicates an expired token too old to refresh.
	ErrExpiredBeyondGrace = errors.New("auth: token expired beyond refresh window")
	// ErrUnauthorized covers missing, blocked or credential-mismatched principals.
	ErrUnauthorized = errors.New("auth: unauthorized")
	// ErrNotFound is returned by identity stores when no principal matches.
	ErrNotFound = errors.New("auth: not found")
)
