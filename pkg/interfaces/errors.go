package interfaces

import "errors"

// Shared errors for interface implementations.
var (
	ErrUserNotFound = errors.New("user not found")
)
