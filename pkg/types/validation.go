package types

import (
	"regexp"
)

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidUserID checks the user id format shared by accounts and
// anonymous sessions.
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return userIDRegex.MatchString(userID)
}

// IsValidCategory reports whether the category is one of the three the
// room selector understands.
func IsValidCategory(category string) bool {
	switch category {
	case CategoryAcademic, CategoryCampus, CategoryInterests:
		return true
	default:
		return false
	}
}

// IsValidPresence reports whether the status is a known presence state.
func IsValidPresence(status string) bool {
	switch status {
	case PresenceOnline, PresenceOffline, PresenceAway:
		return true
	default:
		return false
	}
}

// Validate checks the fields a client controls on a room create request.
// Duplicate room names are allowed; ids are generator-assigned.
func (r *RoomCreateRequest) Validate() error {
	if len(r.Name) < 1 || len(r.Name) > 200 {
		return ErrInvalidRoomName
	}
	if !IsValidCategory(r.Category) {
		return ErrInvalidCategory
	}
	return nil
}

// Validate checks a status change request.
func (r *StatusRequest) Validate() error {
	if !IsValidPresence(r.Status) {
		return ErrInvalidPresence
	}
	return nil
}
