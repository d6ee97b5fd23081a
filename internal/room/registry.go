package room

import (
	"sync"
	"time"

	"campushub/pkg/types"
)

// Registry owns every room in the process: the fixed default set seeded
// at startup plus any rooms created at runtime. Rooms are never deleted.
// Membership is tracked per user id, subscriptions per connection id;
// history is a FIFO capped at types.MaxRoomHistory.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[int64]*room
	lastID int64
	seeded bool
}

type room struct {
	id          int64
	name        string
	description string
	category    string
	members     map[string]struct{} // userIDs, at most once each
	subscribers map[string]struct{} // connectionIDs receiving room events
	history     []*types.RoomMessage
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int64]*room),
	}
}

// defaultRooms is the fixed set every deployment starts with.
var defaultRooms = []struct {
	id       int64
	name     string
	category string
}{
	{1, "CS Study Group", types.CategoryAcademic},
	{2, "Math Help", types.CategoryAcademic},
	{3, "Campus Events", types.CategoryCampus},
	{4, "Gaming Club", types.CategoryInterests},
	{5, "Photography", types.CategoryInterests},
}

// SeedDefaults populates the default rooms with empty membership and
// history. Called exactly once at process start; later calls are no-ops.
func (r *Registry) SeedDefaults() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seeded {
		return
	}
	r.seeded = true

	for _, d := range defaultRooms {
		r.rooms[d.id] = &room{
			id:          d.id,
			name:        d.name,
			category:    d.category,
			members:     make(map[string]struct{}),
			subscribers: make(map[string]struct{}),
		}
		if d.id > r.lastID {
			r.lastID = d.id
		}
	}
}

// nextID allocates a time-derived monotonic room/message id. Ids are
// never reused; two allocations in the same millisecond still differ.
// Caller must hold r.mu.
func (r *Registry) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return id
}

// Create allocates a new room with the creator as its only member and
// subscriber. Duplicate names are allowed. Returns the room summary for
// the rooms:new announcement.
func (r *Registry) Create(name, description, category, creatorUserID, creatorConnID string) *types.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := &room{
		id:          r.nextID(),
		name:        name,
		description: description,
		category:    category,
		members:     map[string]struct{}{creatorUserID: {}},
		subscribers: map[string]struct{}{creatorConnID: {}},
	}
	r.rooms[rm.id] = rm

	return rm.summary()
}

// Join adds the user to the room's member set (a no-op when already a
// member) and subscribes the connection. Returns the current history for
// replay to the joining connection.
func (r *Registry) Join(roomID int64, userID, connID string) (*types.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, exists := r.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}

	rm.members[userID] = struct{}{}
	rm.subscribers[connID] = struct{}{}

	// Copy the history so callers hold no reference into the live buffer.
	messages := make([]*types.RoomMessage, len(rm.history))
	copy(messages, rm.history)

	return &types.RoomSnapshot{RoomID: roomID, Messages: messages}, nil
}

// Leave removes the user from membership and the connection from the
// subscriber set. Leaving a room the user is not in is a no-op.
func (r *Registry) Leave(roomID int64, userID, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, exists := r.rooms[roomID]
	if !exists {
		return ErrRoomNotFound
	}

	delete(rm.members, userID)
	delete(rm.subscribers, connID)
	return nil
}

// AppendMessage stamps and appends a message from a current member,
// evicting the oldest entry once the history exceeds MaxRoomHistory.
// Membership is checked against the room's member set, not the
// connection directory.
func (r *Registry) AppendMessage(roomID int64, sender *types.Identity, content string) (*types.RoomMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, exists := r.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	if _, member := rm.members[sender.UserID]; !member {
		return nil, ErrNotAMember
	}

	msg := &types.RoomMessage{
		ID:        r.nextID(),
		UserID:    sender.UserID,
		Sender:    sender.DisplayName,
		Avatar:    sender.AvatarLabel,
		Content:   content,
		Timestamp: time.Now(),
	}

	rm.history = append(rm.history, msg)
	if len(rm.history) > types.MaxRoomHistory {
		rm.history = rm.history[1:]
	}

	return msg, nil
}

// Summary returns the current projection of one room.
func (r *Registry) Summary(roomID int64) (*types.RoomSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, exists := r.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return rm.summary(), nil
}

// List returns summaries of every room, default and user-created.
func (r *Registry) List() []*types.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]*types.RoomSummary, 0, len(r.rooms))
	for _, rm := range r.rooms {
		summaries = append(summaries, rm.summary())
	}
	return summaries
}

// ListByCategory returns the read-only projection used by the UI
// selector.
func (r *Registry) ListByCategory(category string) []*types.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var summaries []*types.RoomSummary
	for _, rm := range r.rooms {
		if rm.category == category {
			summaries = append(summaries, rm.summary())
		}
	}
	return summaries
}

// Subscribers returns the connection ids currently subscribed to a room.
func (r *Registry) Subscribers(roomID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, exists := r.rooms[roomID]
	if !exists {
		return nil
	}

	connIDs := make([]string, 0, len(rm.subscribers))
	for connID := range rm.subscribers {
		connIDs = append(connIDs, connID)
	}
	return connIDs
}

// DropSubscriber removes the connection from every room's subscriber
// set. A subscription can outlive the membership that created it (a
// second device already removed the shared membership, or the
// connection re-logged-in under a different user id), so disconnect
// cleanup sweeps by connection id regardless of membership.
func (r *Registry) DropSubscriber(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rm := range r.rooms {
		delete(rm.subscribers, connID)
	}
}

// RoomsWithMember returns the ids of every room the user is currently a
// member of. The disconnect path uses this to unwind membership.
func (r *Registry) RoomsWithMember(userID string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var roomIDs []int64
	for id, rm := range r.rooms {
		if _, member := rm.members[userID]; member {
			roomIDs = append(roomIDs, id)
		}
	}
	return roomIDs
}

// IsMember reports whether the user is in the room's member set.
func (r *Registry) IsMember(roomID int64, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, exists := r.rooms[roomID]
	if !exists {
		return false
	}
	_, member := rm.members[userID]
	return member
}

// Stats reports room counters for the monitoring endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := 0
	for _, rm := range r.rooms {
		members += len(rm.members)
	}
	return map[string]int{
		"rooms":        len(r.rooms),
		"room_members": members,
	}
}

// summary builds the projection. Caller must hold r.mu.
func (rm *room) summary() *types.RoomSummary {
	return &types.RoomSummary{
		ID:          rm.id,
		Name:        rm.name,
		Description: rm.description,
		Category:    rm.category,
		UsersCount:  len(rm.members),
	}
}
