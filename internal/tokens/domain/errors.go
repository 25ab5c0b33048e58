package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is the class sentinel for every client-facing auth
// failure. Callers branch with errors.Is against this, not against the
// individual reasons, so the reason text stays a human-readable detail
// rather than an oracle.
var ErrUnauthorized = errors.New("unauthorized")

// Client-facing reasons. Deliberately coarse: a forged, expired and revoked
// token all read as failures of the same class to an external caller, while
// internally they drive different state transitions.
const (
	ReasonInvalidAccessToken  = "invalid or expired access token"
	ReasonInvalidRefreshToken = "invalid refresh token"
	ReasonRefreshTokenReused  = "refresh token has been revoked (possible reuse)"
	ReasonRefreshTokenExpired = "refresh token expired"
	ReasonAccountInactive     = "user account is inactive"
	ReasonUserNotFound        = "user not found"
)

// UnauthorizedError carries the human-readable reason for an auth rejection.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized: " + e.Reason
}

// Is lets errors.Is(err, ErrUnauthorized) match any UnauthorizedError.
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Unauthorized builds an UnauthorizedError with the given reason.
func Unauthorized(reason string) error {
	return &UnauthorizedError{Reason: reason}
}

// Internal wraps a store or codec fault. These surface unchanged to the
// caller; the service never retries them.
func Internal(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
