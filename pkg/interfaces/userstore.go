package interfaces

import (
	"context"
	"time"

	"campushub/pkg/types"
)

// UserStore is the external user-profile collaborator. The hub reads
// accounts during login and writes presence on login/disconnect; all
// other account CRUD belongs to the REST layer and is out of scope here.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*types.User, error)
	SetPresence(ctx context.Context, userID, status string, lastSeen time.Time) error
}
