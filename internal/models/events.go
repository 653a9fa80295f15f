package models

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates realtime channel frames.
type EventType string

const (
	EventMessageNew     EventType = "message:new"
	EventMessageEdited  EventType = "message:edited"
	EventMessageDeleted EventType = "message:deleted"
	EventTypingStart    EventType = "typing:start"
	EventTypingStop     EventType = "typing:stop"
)

// ChannelEvent is one decoded realtime event, tagged with the room the
// underlying connection was bound to when it was dialed. Only the fields
// relevant to Type are populated.
type ChannelEvent struct {
	RoomID    int64
	Type      EventType
	Message   *Message    // message:new
	MessageID int64       // message:edited, message:deleted
	Content   string      // message:edited
	User      Participant // typing:start, typing:stop
}

// TypingFrame is the outbound client frame announcing local typing state.
type TypingFrame struct {
	Type EventType   `json:"type"`
	User Participant `json:"user"`
}

// Wire envelope: {type, data|id|user}. The server reuses the same shape for
// every event kind and leaves unused fields absent.
type eventEnvelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	ID   int64           `json:"id,omitempty"`
	User *Participant    `json:"user,omitempty"`
}

type editedPayload struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// DecodeChannelEvent parses one wire frame into a ChannelEvent. Frames with
// an unknown type or a payload that does not match the type are rejected;
// callers are expected to drop them without surfacing the error.
func DecodeChannelEvent(roomID int64, frame []byte) (ChannelEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return ChannelEvent{}, fmt.Errorf("decode event envelope: %w", err)
	}

	ev := ChannelEvent{RoomID: roomID, Type: env.Type}
	switch env.Type {
	case EventMessageNew:
		var msg Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return ChannelEvent{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		if msg.ID == 0 || msg.SenderID == "" {
			return ChannelEvent{}, fmt.Errorf("%s payload missing id or sender", env.Type)
		}
		msg.RoomID = roomID
		ev.Message = &msg
	case EventMessageEdited:
		var p editedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return ChannelEvent{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		if p.ID == 0 {
			return ChannelEvent{}, fmt.Errorf("%s payload missing id", env.Type)
		}
		ev.MessageID = p.ID
		ev.Content = p.Content
	case EventMessageDeleted:
		if env.ID == 0 {
			return ChannelEvent{}, fmt.Errorf("%s frame missing id", env.Type)
		}
		ev.MessageID = env.ID
	case EventTypingStart, EventTypingStop:
		if env.User == nil || (env.User.ID == "" && env.User.Name == "") {
			return ChannelEvent{}, fmt.Errorf("%s frame missing user", env.Type)
		}
		ev.User = *env.User
	default:
		return ChannelEvent{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	return ev, nil
}
