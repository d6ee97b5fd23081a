package router

import (
	"log"
	"time"

	"campushub/internal/broadcast"
	"campushub/internal/room"
	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

// DeliveryOutcome describes what happened to a private message.
type DeliveryOutcome string

const (
	Delivered        DeliveryOutcome = "delivered"
	RecipientOffline DeliveryOutcome = "recipient_offline"
)

// Router accepts outbound messages from a connection, stamps them and
// delivers them to the correct audience. Message bodies are opaque;
// rendering concerns belong to the client.
type Router struct {
	rooms       *room.Registry
	broadcaster *broadcast.Broadcaster
}

func NewRouter(rooms *room.Registry, broadcaster *broadcast.Broadcaster) *Router {
	return &Router{
		rooms:       rooms,
		broadcaster: broadcaster,
	}
}

// RoutePrivate delivers a private message to every connection the
// recipient is logged in on. With no live recipient connection the
// message is silently dropped: no queue, no retry. The sender receives
// the sent echo either way, so the echo confirms acceptance, not
// delivery.
func (r *Router) RoutePrivate(sender *types.Identity, senderConn interfaces.Connection, to, content string) DeliveryOutcome {
	sentAt := time.Now()

	delivered := r.broadcaster.ToUser(to, types.EventPrivate, &types.PrivateMessagePayload{
		From:      sender.UserID,
		Sender:    sender.DisplayName,
		Avatar:    sender.AvatarLabel,
		Content:   content,
		Timestamp: sentAt,
	})

	if err := senderConn.Send(types.EventPrivateSent, &types.PrivateSentPayload{
		To:        to,
		Content:   content,
		Timestamp: sentAt,
	}); err != nil {
		log.Printf("Failed to echo private message to sender %s: %v", sender.UserID, err)
	}

	if delivered == 0 {
		return RecipientOffline
	}
	return Delivered
}

// RouteRoomMessage appends a message to the room history and broadcasts
// it to the room's subscribers, sender included. Membership and history
// bounds are the registry's concern; its failure modes surface as-is.
func (r *Router) RouteRoomMessage(roomID int64, sender *types.Identity, content string) (*types.RoomMessage, error) {
	msg, err := r.rooms.AppendMessage(roomID, sender, content)
	if err != nil {
		return nil, err
	}

	r.broadcaster.ToRoom(roomID, types.EventRoomMessageNew, &types.RoomMessagePayload{
		RoomID:  roomID,
		Message: msg,
	})

	return msg, nil
}
