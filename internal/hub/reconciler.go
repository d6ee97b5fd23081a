package hub

import (
	"context"
	"log"
	"time"

	"campushub/pkg/types"
)

// reconcileDisconnect unwinds every side effect a connection caused.
// A connection is either Connected (possibly with an identity) or
// Disconnected; this is the only transition between them, and it runs
// inside the hub loop so no event can interleave with the cleanup.
//
// Order matters: room membership is torn down and broadcast first, then
// the global offline notice, and only then the best-effort persistence
// write, which runs off the loop so a slow or failing store can never
// delay room cleanup.
func (h *Hub) reconcileDisconnect(connID string) {
	ident := h.directory.Remove(connID)

	// The membership loop below only reaches rooms where the identity is
	// still a member; the connection may hold subscriptions beyond those
	// (a second device already tore the shared membership down, or the
	// connection re-logged-in under another id). Sweep those first so no
	// subscriber set retains a dead connection.
	h.rooms.DropSubscriber(connID)

	if ident == nil {
		log.Printf("Connection closed: conn=%s (never logged in)", connID)
		return
	}

	// Step 1: leave every room the identity was a member of, with the
	// standard leave broadcasts. After this no room retains a member
	// whose connection is gone.
	for _, roomID := range h.rooms.RoomsWithMember(ident.UserID) {
		if err := h.rooms.Leave(roomID, ident.UserID, connID); err != nil {
			continue
		}
		h.broadcaster.ToRoom(roomID, types.EventRoomUserLeft, &types.RoomUserLeftPayload{
			RoomID:    roomID,
			UserID:    ident.UserID,
			Timestamp: time.Now(),
		})
		h.broadcastRoomCount(roomID)
	}

	h.broadcaster.ClearTyping(ident.UserID)

	// Step 2: global offline notice.
	h.broadcaster.ToAll(types.EventUserOffline, &types.UserOfflinePayload{UserID: ident.UserID})

	// Step 3: persist offline status for real accounts. Fire-and-forget;
	// a failure is logged, not retried, and rooms are already clean.
	if !ident.Anonymous {
		userID := ident.UserID
		go func() {
			if err := h.users.SetPresence(context.Background(), userID, types.PresenceOffline, time.Now()); err != nil {
				log.Printf("Failed to persist offline status for %s: %v", userID, err)
			}
		}()
	}

	log.Printf("User disconnected: %s (%s)", ident.DisplayName, ident.UserID)
}
