package room

import "errors"

// Room registry error types.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotAMember   = errors.New("sender is not a member of this room")
)
