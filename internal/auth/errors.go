package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is returned when the Authorization header is absent or not a Bearer credential.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrTokenInvalid covers bad signatures, malformed tokens and any other decode failure.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for a correctly signed token whose validity window has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for a token listed in the denylist. It matches ErrTokenInvalid.
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", ErrTokenInvalid)
)
