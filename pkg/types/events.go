package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound event names (client -> hub).
const (
	EventLogin         = "login"
	EventPrivate       = "message:private"
	EventRoomJoin      = "room:join"
	EventRoomLeave     = "room:leave"
	EventRoomMessage   = "room:message"
	EventRoomCreate    = "room:create"
	EventTyping        = "user:typing"
	EventTypingPrivate = "user:typing:private"
	EventStatus        = "user:status"
)

// Outbound event names (hub -> client).
const (
	EventRoomsList         = "rooms:list"
	EventRoomsNew          = "rooms:new"
	EventRoomsUpdate       = "rooms:update"
	EventRoomHistory       = "room:history"
	EventRoomMessageNew    = "room:message:new"
	EventRoomUserJoined    = "room:user:joined"
	EventRoomUserLeft      = "room:user:left"
	EventRoomJoined        = "room:joined"
	EventPrivateSent       = "message:private:sent"
	EventStatusUpdate      = "user:status:update"
	EventUserOffline       = "user:offline"
	EventAuthError         = "auth:error"
)

// Envelope is the wire frame for both directions: a named event plus a
// JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound is the closed union of client-originated event payloads.
// Payloads are decoded and validated at the transport boundary before
// they reach the hub.
type Inbound interface {
	inbound()
}

// LoginRequest carries the optional session token plus the anonymous
// fallback identity fields supplied by the client.
type LoginRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Token    string `json:"token,omitempty"`
}

// PrivateMessageRequest addresses a message to a peer user id.
type PrivateMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type RoomJoinRequest struct {
	RoomID int64 `json:"roomId"`
}

type RoomLeaveRequest struct {
	RoomID int64 `json:"roomId"`
}

type RoomMessageRequest struct {
	RoomID  int64  `json:"roomId"`
	Message string `json:"message"`
}

type RoomCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type TypingRequest struct {
	RoomID   int64 `json:"roomId"`
	IsTyping bool  `json:"isTyping"`
}

type TypingPrivateRequest struct {
	To       string `json:"to"`
	IsTyping bool   `json:"isTyping"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

func (*LoginRequest) inbound()          {}
func (*PrivateMessageRequest) inbound() {}
func (*RoomJoinRequest) inbound()       {}
func (*RoomLeaveRequest) inbound()      {}
func (*RoomMessageRequest) inbound()    {}
func (*RoomCreateRequest) inbound()     {}
func (*TypingRequest) inbound()         {}
func (*TypingPrivateRequest) inbound()  {}
func (*StatusRequest) inbound()         {}

// DecodeInbound parses an envelope into its typed payload. Unknown event
// names return ErrUnknownEvent so the transport layer can drop the frame
// without involving the hub.
func DecodeInbound(env *Envelope) (Inbound, error) {
	var payload Inbound

	switch env.Event {
	case EventLogin:
		payload = &LoginRequest{}
	case EventPrivate:
		payload = &PrivateMessageRequest{}
	case EventRoomJoin:
		payload = &RoomJoinRequest{}
	case EventRoomLeave:
		payload = &RoomLeaveRequest{}
	case EventRoomMessage:
		payload = &RoomMessageRequest{}
	case EventRoomCreate:
		payload = &RoomCreateRequest{}
	case EventTyping:
		payload = &TypingRequest{}
	case EventTypingPrivate:
		payload = &TypingPrivateRequest{}
	case EventStatus:
		payload = &StatusRequest{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}
	return payload, nil
}

// Outbound payloads. These mirror the shapes the web client renders.

type RoomUserJoinedPayload struct {
	RoomID    int64     `json:"roomId"`
	User      *Identity `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

type RoomUserLeftPayload struct {
	RoomID    int64     `json:"roomId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type RoomMessagePayload struct {
	RoomID  int64        `json:"roomId"`
	Message *RoomMessage `json:"message"`
}

type RoomJoinedPayload struct {
	RoomID int64 `json:"roomId"`
}

type PrivateMessagePayload struct {
	From      string    `json:"from"`
	Sender    string    `json:"sender"`
	Avatar    string    `json:"avatar"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type PrivateSentPayload struct {
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingPayload struct {
	RoomID   int64  `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type TypingPrivatePayload struct {
	From     string `json:"from"`
	IsTyping bool   `json:"isTyping"`
}

type StatusUpdatePayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type UserOfflinePayload struct {
	UserID string `json:"userId"`
}

type AuthErrorPayload struct {
	Message string `json:"message"`
}
