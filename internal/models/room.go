package models

// RoomKind distinguishes group rooms from one-to-one conversations.
type RoomKind string

const (
	RoomGroup   RoomKind = "group"
	RoomPrivate RoomKind = "private"
)

// Room is a conversation context. Rooms are created server-side and are
// immutable for the client; the session selects one at a time.
type Room struct {
	ID   int64    `json:"id"`
	Name string   `json:"name" validate:"required"`
	Kind RoomKind `json:"type"`
}
