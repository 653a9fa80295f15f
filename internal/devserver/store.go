package devserver

import (
	"strings"
	"sync"
	"time"

	"github.com/mycampus-app/quickchat/internal/models"
)

// Store is the dev server's process-local chat state: rooms, ordered
// messages, per-viewer hide state and per-viewer clear marks. It mirrors the
// portal backend's visible-set semantics without any persistence.
type Store struct {
	mu      sync.Mutex
	rooms   []models.Room
	msgs    map[int64][]models.Message
	hidden  map[string]map[int64]struct{}
	cleared map[int64]map[string]time.Time
	nextMsg int64
}

func NewStore() *Store {
	s := &Store{
		msgs:    make(map[int64][]models.Message),
		hidden:  make(map[string]map[int64]struct{}),
		cleared: make(map[int64]map[string]time.Time),
		nextMsg: 1,
	}
	s.rooms = []models.Room{
		{ID: 1, Name: "General", Kind: models.RoomGroup},
		{ID: 2, Name: "Study Group", Kind: models.RoomGroup},
		{ID: 3, Name: "Mentors", Kind: models.RoomPrivate},
	}
	for _, r := range s.rooms {
		s.msgs[r.ID] = nil
	}
	return s
}

func (s *Store) Rooms() []models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Room, len(s.rooms))
	copy(out, s.rooms)
	return out
}

func (s *Store) HasRoom(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.msgs[id]
	return ok
}

// Append stores a new message and assigns its id and timestamp.
func (s *Store) Append(roomID int64, senderID, senderName, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgs[roomID]; !ok {
		return nil, models.ErrRoomNotFound
	}
	msg := models.Message{
		ID:         s.nextMsg,
		RoomID:     roomID,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	}
	s.nextMsg++
	s.msgs[roomID] = append(s.msgs[roomID], msg)
	return &msg, nil
}

// History returns the viewer's visible slice of the room: hidden messages
// and anything at or before the viewer's clear mark are filtered out.
func (s *Store) History(roomID int64, offset, limit int, viewerID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := s.visibleLocked(roomID, viewerID)
	if offset >= len(visible) {
		return []models.Message{}
	}
	visible = visible[offset:]
	if limit > 0 && limit < len(visible) {
		visible = visible[:limit]
	}
	out := make([]models.Message, len(visible))
	copy(out, visible)
	return out
}

func (s *Store) visibleLocked(roomID int64, viewerID string) []models.Message {
	var clearedAt time.Time
	if marks, ok := s.cleared[roomID]; ok {
		clearedAt = marks[viewerID]
	}
	hidden := s.hidden[viewerID]

	var visible []models.Message
	for _, m := range s.msgs[roomID] {
		if !clearedAt.IsZero() && !m.Timestamp.After(clearedAt) {
			continue
		}
		if _, hid := hidden[m.ID]; hid {
			continue
		}
		visible = append(visible, m)
	}
	return visible
}

// Edit replaces a message body in place.
func (s *Store) Edit(id int64, content string) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for roomID, msgs := range s.msgs {
		for i := range msgs {
			if msgs[i].ID == id {
				msgs[i].Content = content
				s.msgs[roomID] = msgs
				m := msgs[i]
				return &m, true
			}
		}
	}
	return nil, false
}

// Delete removes the message for everyone and reports which room held it.
func (s *Store) Delete(id int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for roomID, msgs := range s.msgs {
		for i := range msgs {
			if msgs[i].ID == id {
				s.msgs[roomID] = append(msgs[:i], msgs[i+1:]...)
				return roomID, true
			}
		}
	}
	return 0, false
}

// Hide marks the message invisible for one viewer only.
func (s *Store) Hide(id int64, viewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hidden[viewerID] == nil {
		s.hidden[viewerID] = make(map[int64]struct{})
	}
	s.hidden[viewerID][id] = struct{}{}
}

// Clear sets the viewer's clear mark for the room to now.
func (s *Store) Clear(roomID int64, viewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleared[roomID] == nil {
		s.cleared[roomID] = make(map[string]time.Time)
	}
	s.cleared[roomID][viewerID] = time.Now().UTC()
}

// Search returns up to limit matches in the room, newest first.
func (s *Store) Search(roomID int64, query string, limit int) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(query)
	msgs := s.msgs[roomID]
	out := make([]models.Message, 0, limit)
	for i := len(msgs) - 1; i >= 0; i-- {
		if query != "" && !strings.Contains(strings.ToLower(msgs[i].Content), query) {
			continue
		}
		out = append(out, msgs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
