package chat

import (
	"github.com/google/uuid"

	"github.com/mycampus-app/quickchat/internal/models"
)

// MessageStore holds the visible, ordered, deduplicated message list for the
// active room. It is not safe for concurrent use on its own; the session
// serializes all access under its lock.
type MessageStore struct {
	roomID  int64
	msgs    []models.Message
	index   map[int64]int    // id -> position in msgs
	pending map[string]int64 // correlation token -> provisional id
	nextTmp int64
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		index:   make(map[int64]int),
		pending: make(map[string]int64),
		nextTmp: -1,
	}
}

// Reset switches the store to a new room, dropping visible and pending state.
func (s *MessageStore) Reset(roomID int64) {
	s.roomID = roomID
	s.msgs = nil
	s.index = make(map[int64]int)
	s.pending = make(map[string]int64)
}

func (s *MessageStore) RoomID() int64 { return s.roomID }

// ReplaceAll installs freshly loaded history for the room.
func (s *MessageStore) ReplaceAll(roomID int64, msgs []models.Message) {
	s.Reset(roomID)
	for _, m := range msgs {
		if _, dup := s.index[m.ID]; dup {
			continue
		}
		s.index[m.ID] = len(s.msgs)
		s.msgs = append(s.msgs, m)
	}
}

// UpsertFromChannel appends a pushed message unless its id is already
// visible. Self-sent messages arrive here too, after their own confirmation.
func (s *MessageStore) UpsertFromChannel(m models.Message) bool {
	if _, ok := s.index[m.ID]; ok {
		return false
	}
	s.index[m.ID] = len(s.msgs)
	s.msgs = append(s.msgs, m)
	return true
}

// ApplyOptimisticSend appends m under a provisional negative id and returns
// the correlation token ConfirmSend keys on.
func (s *MessageStore) ApplyOptimisticSend(m models.Message) string {
	m.ID = s.nextTmp
	s.nextTmp--
	token := uuid.NewString()
	s.pending[token] = m.ID
	s.index[m.ID] = len(s.msgs)
	s.msgs = append(s.msgs, m)
	return token
}

// ConfirmSend reconciles the server response with the optimistic entry for
// token. Whichever order confirmation and channel push arrive in, exactly
// one visible message represents the send afterwards.
func (s *MessageStore) ConfirmSend(token string, confirmed models.Message) {
	tmpID, ok := s.pending[token]
	if !ok {
		return
	}
	delete(s.pending, token)

	pos, visible := s.index[tmpID]
	if !visible {
		// The optimistic entry was deleted or cleared before confirmation;
		// do not resurrect it.
		return
	}
	if _, dup := s.index[confirmed.ID]; dup {
		// The channel push for this send landed first. Keep the pushed
		// entry and drop the optimistic one.
		s.removeAt(pos, tmpID)
		return
	}

	// Replace in place, keeping locally staged attachments the server does
	// not echo back.
	if len(confirmed.Attachments) == 0 {
		confirmed.Attachments = s.msgs[pos].Attachments
	}
	if confirmed.RoomID == 0 {
		confirmed.RoomID = s.roomID
	}
	delete(s.index, tmpID)
	s.index[confirmed.ID] = pos
	s.msgs[pos] = confirmed
}

// PatchText replaces the body of the message with the given id. Absent ids
// are a no-op.
func (s *MessageStore) PatchText(id int64, text string) bool {
	pos, ok := s.index[id]
	if !ok {
		return false
	}
	s.msgs[pos].Content = text
	return true
}

// Remove drops the message with the given id, preserving the relative order
// of the rest. Absent ids are a no-op.
func (s *MessageStore) Remove(id int64) bool {
	pos, ok := s.index[id]
	if !ok {
		return false
	}
	s.removeAt(pos, id)
	return true
}

func (s *MessageStore) removeAt(pos int, id int64) {
	delete(s.index, id)
	s.msgs = append(s.msgs[:pos], s.msgs[pos+1:]...)
	for i := pos; i < len(s.msgs); i++ {
		s.index[s.msgs[i].ID] = i
	}
}

// Clear empties the visible set for the active room. Pending correlation
// tokens stay registered so a late confirmation resolves to a no-op instead
// of re-adding the cleared message.
func (s *MessageStore) Clear() {
	s.msgs = nil
	s.index = make(map[int64]int)
}

func (s *MessageStore) Len() int { return len(s.msgs) }

// Messages returns a copy of the visible ordered list.
func (s *MessageStore) Messages() []models.Message {
	out := make([]models.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}
