package identity

import "errors"

// Resolver error types.
var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrUnresolvable = errors.New("login carries neither a valid token nor a usable anonymous identity")
)
