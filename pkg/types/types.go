package types

import (
	"time"
)

// Presence states a user can be in. Offline is only ever set by the
// disconnect path; clients may switch between online and away at will.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
	PresenceAway    = "away"
)

// Room categories used by the UI selector.
const (
	CategoryAcademic  = "academic"
	CategoryCampus    = "campus"
	CategoryInterests = "interests"
)

// MaxRoomHistory bounds the per-room message buffer. Appending past the
// limit evicts the oldest message first.
const MaxRoomHistory = 100

// Identity is the resolved user (or anonymous stand-in) attached to a
// connection. Anonymous identities carry client-supplied fields and are
// never written back to the user store.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"username"`
	AvatarLabel string `json:"avatar"`
	Presence    string `json:"status"`
	Anonymous   bool   `json:"-"`
}

// RoomMessage is an immutable entry in a room's bounded history.
// Field names match the wire payload the web client expects.
type RoomMessage struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Sender    string    `json:"sender"`
	Avatar    string    `json:"avatar"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomSummary is the read-only projection used for room lists and
// count updates.
type RoomSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	UsersCount  int    `json:"usersCount"`
}

// RoomSnapshot is returned to a joining connection for history replay.
type RoomSnapshot struct {
	RoomID   int64          `json:"roomId"`
	Messages []*RoomMessage `json:"messages"`
}

// User is a persisted account row from the user-profile store. The hub
// only reads id, name and avatar, and writes status/last_seen.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}
