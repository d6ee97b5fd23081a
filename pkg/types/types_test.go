package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeInbound_KnownEvents(t *testing.T) {
	cases := []struct {
		event string
		data  string
		want  any
	}{
		{EventLogin, `{"userId":"u1","username":"Ana","avatar":"A","token":"tok"}`, &LoginRequest{UserID: "u1", Username: "Ana", Avatar: "A", Token: "tok"}},
		{EventPrivate, `{"to":"u2","message":"hi"}`, &PrivateMessageRequest{To: "u2", Message: "hi"}},
		{EventRoomJoin, `{"roomId":2}`, &RoomJoinRequest{RoomID: 2}},
		{EventRoomLeave, `{"roomId":2}`, &RoomLeaveRequest{RoomID: 2}},
		{EventRoomMessage, `{"roomId":2,"message":"hello"}`, &RoomMessageRequest{RoomID: 2, Message: "hello"}},
		{EventRoomCreate, `{"name":"Chess","description":"","category":"interests"}`, &RoomCreateRequest{Name: "Chess", Category: "interests"}},
		{EventTyping, `{"roomId":2,"isTyping":true}`, &TypingRequest{RoomID: 2, IsTyping: true}},
		{EventTypingPrivate, `{"to":"u2","isTyping":false}`, &TypingPrivateRequest{To: "u2"}},
		{EventStatus, `{"status":"away"}`, &StatusRequest{Status: "away"}},
	}

	for _, tc := range cases {
		env := &Envelope{Event: tc.event, Data: json.RawMessage(tc.data)}
		got, err := DecodeInbound(env)
		if err != nil {
			t.Errorf("DecodeInbound(%s): unexpected error %v", tc.event, err)
			continue
		}

		gotJSON, _ := json.Marshal(got)
		wantJSON, _ := json.Marshal(tc.want)
		if string(gotJSON) != string(wantJSON) {
			t.Errorf("DecodeInbound(%s) = %s, want %s", tc.event, gotJSON, wantJSON)
		}
	}
}

func TestDecodeInbound_UnknownEvent(t *testing.T) {
	env := &Envelope{Event: "room:delete", Data: json.RawMessage(`{}`)}
	_, err := DecodeInbound(env)
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Expected ErrUnknownEvent, got %v", err)
	}
}

func TestDecodeInbound_MalformedPayload(t *testing.T) {
	env := &Envelope{Event: EventRoomJoin, Data: json.RawMessage(`{"roomId":"not-a-number"}`)}
	_, err := DecodeInbound(env)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestDecodeInbound_EmptyData(t *testing.T) {
	env := &Envelope{Event: EventStatus}
	got, err := DecodeInbound(env)
	if err != nil {
		t.Fatalf("Expected no error for empty data, got %v", err)
	}
	if _, ok := got.(*StatusRequest); !ok {
		t.Errorf("Expected *StatusRequest, got %T", got)
	}
}

func TestIsValidUserID(t *testing.T) {
	valid := []string{"u1", "student_42", "a-b-c", strings.Repeat("x", 50)}
	for _, id := range valid {
		if !IsValidUserID(id) {
			t.Errorf("Expected %q to be valid", id)
		}
	}

	invalid := []string{"", "user with spaces", "семен", strings.Repeat("x", 51), "a!b"}
	for _, id := range invalid {
		if IsValidUserID(id) {
			t.Errorf("Expected %q to be invalid", id)
		}
	}
}

func TestIsValidCategory(t *testing.T) {
	for _, c := range []string{CategoryAcademic, CategoryCampus, CategoryInterests} {
		if !IsValidCategory(c) {
			t.Errorf("Expected %q to be a valid category", c)
		}
	}
	if IsValidCategory("sports") {
		t.Error("Expected unknown category to be invalid")
	}
}

func TestRoomCreateRequest_Validate(t *testing.T) {
	req := &RoomCreateRequest{Name: "Chess Club", Category: CategoryInterests}
	if err := req.Validate(); err != nil {
		t.Errorf("Expected valid request, got %v", err)
	}

	if err := (&RoomCreateRequest{Name: "", Category: CategoryCampus}).Validate(); !errors.Is(err, ErrInvalidRoomName) {
		t.Errorf("Expected ErrInvalidRoomName, got %v", err)
	}
	if err := (&RoomCreateRequest{Name: strings.Repeat("n", 201), Category: CategoryCampus}).Validate(); !errors.Is(err, ErrInvalidRoomName) {
		t.Errorf("Expected ErrInvalidRoomName for long name, got %v", err)
	}
	if err := (&RoomCreateRequest{Name: "ok", Category: "nope"}).Validate(); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("Expected ErrInvalidCategory, got %v", err)
	}
}

func TestStatusRequest_Validate(t *testing.T) {
	for _, s := range []string{PresenceOnline, PresenceOffline, PresenceAway} {
		if err := (&StatusRequest{Status: s}).Validate(); err != nil {
			t.Errorf("Expected %q to validate, got %v", s, err)
		}
	}
	if err := (&StatusRequest{Status: "busy"}).Validate(); !errors.Is(err, ErrInvalidPresence) {
		t.Errorf("Expected ErrInvalidPresence, got %v", err)
	}
}
