package broadcast

import (
	"fmt"
	"log"
	"sync"

	"campushub/internal/directory"
	"campushub/internal/room"
	"campushub/pkg/types"
)

// Broadcaster computes the audience for presence, typing and room events
// and fans them out. Delivery is best effort: a connection that cannot
// accept a write is logged and skipped, never retried.
//
// The only state it holds is the transient typing map, keyed by scope
// (one room or one peer pair). Last write wins per scope; entries are
// cleared by an explicit stop signal or by disconnect, never by a server
// timeout.
type Broadcaster struct {
	directory *directory.Directory
	rooms     *room.Registry

	mu     sync.Mutex
	typing map[string]map[string]bool // scopeKey -> userID -> isTyping
}

func New(dir *directory.Directory, rooms *room.Registry) *Broadcaster {
	return &Broadcaster{
		directory: dir,
		rooms:     rooms,
		typing:    make(map[string]map[string]bool),
	}
}

// ToRoom delivers an event to every connection subscribed to the room.
func (b *Broadcaster) ToRoom(roomID int64, event string, payload any) {
	b.ToRoomExcept(roomID, "", event, payload)
}

// ToRoomExcept delivers to the room's subscribers, skipping one
// connection (used when the sender must not see its own event).
func (b *Broadcaster) ToRoomExcept(roomID int64, exceptConnID, event string, payload any) {
	for _, connID := range b.rooms.Subscribers(roomID) {
		if connID == exceptConnID {
			continue
		}
		conn, exists := b.directory.Connection(connID)
		if !exists {
			continue
		}
		if err := conn.Send(event, payload); err != nil {
			log.Printf("Failed to deliver %s to connection %s: %v", event, connID, err)
		}
	}
}

// ToAll delivers an event to every open connection.
func (b *Broadcaster) ToAll(event string, payload any) {
	b.ToAllExcept("", event, payload)
}

// ToAllExcept delivers globally, skipping one connection.
func (b *Broadcaster) ToAllExcept(exceptConnID, event string, payload any) {
	for _, conn := range b.directory.Snapshot() {
		if conn.ID() == exceptConnID {
			continue
		}
		if err := conn.Send(event, payload); err != nil {
			log.Printf("Failed to deliver %s to connection %s: %v", event, conn.ID(), err)
		}
	}
}

// ToUser delivers an event to every connection the user is logged in on
// and reports how many connections received it. Zero means the user is
// offline.
func (b *Broadcaster) ToUser(userID, event string, payload any) int {
	delivered := 0
	for _, conn := range b.directory.FindConnectionsFor(userID) {
		if err := conn.Send(event, payload); err != nil {
			log.Printf("Failed to deliver %s to %s: %v", event, userID, err)
			continue
		}
		delivered++
	}
	return delivered
}

// SetRoomTyping records the typing state for (room, user) and relays it
// to the room, excluding the typist's own connection.
func (b *Broadcaster) SetRoomTyping(roomID int64, typist *types.Identity, isTyping bool, typistConnID string) {
	b.setTyping(RoomScope(roomID), typist.UserID, isTyping)

	b.ToRoomExcept(roomID, typistConnID, types.EventTyping, &types.TypingPayload{
		RoomID:   roomID,
		UserID:   typist.UserID,
		Username: typist.DisplayName,
		IsTyping: isTyping,
	})
}

// SetPrivateTyping records the typing state for a peer pair and relays
// it to every connection of the peer.
func (b *Broadcaster) SetPrivateTyping(typist *types.Identity, to string, isTyping bool) {
	b.setTyping(PrivateScope(typist.UserID, to), typist.UserID, isTyping)

	b.ToUser(to, types.EventTypingPrivate, &types.TypingPrivatePayload{
		From:     typist.UserID,
		IsTyping: isTyping,
	})
}

// IsTyping reports the recorded state for a scope and user.
func (b *Broadcaster) IsTyping(scopeKey, userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.typing[scopeKey][userID]
}

// ClearTyping drops every typing record for a user. Called on
// disconnect so a vanished user can never appear stuck typing.
func (b *Broadcaster) ClearTyping(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for scope, users := range b.typing {
		delete(users, userID)
		if len(users) == 0 {
			delete(b.typing, scope)
		}
	}
}

func (b *Broadcaster) setTyping(scopeKey, userID string, isTyping bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !isTyping {
		if users, exists := b.typing[scopeKey]; exists {
			delete(users, userID)
			if len(users) == 0 {
				delete(b.typing, scopeKey)
			}
		}
		return
	}

	if b.typing[scopeKey] == nil {
		b.typing[scopeKey] = make(map[string]bool)
	}
	b.typing[scopeKey][userID] = true
}

// RoomScope keys typing state for a room.
func RoomScope(roomID int64) string {
	return fmt.Sprintf("room:%d", roomID)
}

// PrivateScope keys typing state for a directed peer pair.
func PrivateScope(from, to string) string {
	return fmt.Sprintf("dm:%s:%s", from, to)
}
