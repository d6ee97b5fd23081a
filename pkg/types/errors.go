package types

import "errors"

// Boundary validation errors shared across components.
var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed event payload")
	ErrInvalidRoomName  = errors.New("room name must be 1-200 characters")
	ErrInvalidCategory  = errors.New("category must be academic, campus or interests")
	ErrInvalidPresence  = errors.New("status must be online, offline or away")
)
