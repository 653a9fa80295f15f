package models

import "time"

// AttachmentType classifies an attachment for rendering purposes.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentDocument AttachmentType = "document"
	AttachmentZip      AttachmentType = "zip"
	AttachmentAudio    AttachmentType = "audio"
)

// Attachment is the immutable wire representation of a file attached to a
// sent message. The payload travels as a base64 data URL.
type Attachment struct {
	Name     string         `json:"name" validate:"required"`
	DataURL  string         `json:"data_url" validate:"required"`
	Type     AttachmentType `json:"type"`
	MimeType string         `json:"mime_type"`
	Size     int64          `json:"size"`
}

// Participant identifies a chat user by id and display name.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a chat message as served by the portal API and the realtime
// channel. Ids are server-assigned; the session uses negative ids for
// optimistic entries that have not been confirmed yet.
type Message struct {
	ID          int64        `json:"id"`
	RoomID      int64        `json:"room_id"`
	SenderID    string       `json:"sender_id" validate:"required"`
	SenderName  string       `json:"sender_name"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty" validate:"omitempty,dive"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Sender returns the message author as a Participant.
func (m Message) Sender() Participant {
	return Participant{ID: m.SenderID, Name: m.SenderName}
}

// Confirmed reports whether the message carries a server-assigned id.
func (m Message) Confirmed() bool {
	return m.ID > 0
}
