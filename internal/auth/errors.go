package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrConflict           = errors.New("auth: already exists")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPermissionDenied   = errors.New("auth: permission denied")

	// ErrInvalidToken covers structurally malformed tokens and bad
	// signatures. ErrTokenExpired covers well-signed tokens past their
	// expiry. Callers must map both to the same HTTP response; the split
	// exists for logs and metrics only.
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
)
