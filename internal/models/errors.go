package models

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyMessage    = errors.New("message requires text or attachments")
	ErrUnknownEvent    = errors.New("unknown channel event type")
	ErrNoActiveRoom    = errors.New("no active room selected")
)
