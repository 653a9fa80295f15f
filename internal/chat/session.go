package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"

	"github.com/mycampus-app/quickchat/internal/config"
	"github.com/mycampus-app/quickchat/internal/models"
	"github.com/mycampus-app/quickchat/internal/repo/channel"
	"github.com/mycampus-app/quickchat/internal/repo/portalapi"
)

// RoomState tracks the load lifecycle of a room within this session.
type RoomState int

const (
	RoomUnloaded RoomState = iota
	RoomLoading
	RoomReady
)

// Session orchestrates one user's chat: room selection, history loading,
// send/edit/delete/hide/clear, and the merge of optimistic local state with
// server-confirmed and channel-pushed state.
//
// Every exported operation is non-blocking for the caller. Network work runs
// in goroutines and lands back under the session lock, where each selection
// generation and the store's idempotence rules resolve interleavings; a
// response or event belonging to a superseded room selection is discarded.
type Session struct {
	self         models.Participant
	api          portalapi.Client
	dialer       channel.Dialer
	historyLimit int

	mu          sync.Mutex
	store       *MessageStore
	typing      *TypingTracker
	staging     *AttachmentStaging
	states      map[int64]RoomState
	activeRoom  int64
	gen         uint64
	conn        channel.Conn
	inflightDel map[int64]struct{}
}

func NewSession(conf *config.Config, api portalapi.Client, dialer channel.Dialer) (*Session, error) {
	staging, err := NewAttachmentStaging(conf.Chat.StagingDir)
	if err != nil {
		return nil, err
	}
	self := models.Participant{ID: conf.Session.UserID, Name: conf.Session.UserName}
	return &Session{
		self:         self,
		api:          api,
		dialer:       dialer,
		historyLimit: conf.Chat.HistoryLimit,
		store:        NewMessageStore(),
		typing:       NewTypingTracker(self, conf.Chat.TypingQuiet, conf.Chat.TypingSlack),
		staging:      staging,
		states:       make(map[int64]RoomState),
		inflightDel:  make(map[int64]struct{}),
	}, nil
}

func (s *Session) Self() models.Participant     { return s.self }
func (s *Session) Staging() *AttachmentStaging  { return s.staging }
func (s *Session) TypingPeers() []string        { return s.typing.CurrentlyTyping() }
func (s *Session) MarkTyping()                  { s.typing.MarkTyping() }

func (s *Session) Rooms(ctx context.Context) ([]models.Room, error) {
	return s.api.ListRooms(ctx)
}

// SelectRoom tears down the previous channel binding, resets typing presence
// and starts loading the room's history. Dial and fetch run asynchronously;
// the room reaches RoomReady even when the fetch fails, just with an empty
// visible set.
func (s *Session) SelectRoom(ctx context.Context, roomID int64) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.typing.Reset()
	s.activeRoom = roomID
	s.states[roomID] = RoomLoading
	s.store.Reset(roomID)
	s.mu.Unlock()

	go s.connect(ctx, roomID, gen)
	go s.loadHistory(ctx, roomID, gen)
}

func (s *Session) connect(ctx context.Context, roomID int64, gen uint64) {
	conn, err := s.dialer.Dial(ctx, roomID)
	if err != nil {
		// Live delivery and typing degrade silently; history and sends
		// still work over the request path.
		log.Warnw(ctx, "channel unavailable", "room_id", roomID, "error", err)
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.typing.Bind(conn)
	s.mu.Unlock()

	go s.pump(conn)
}

func (s *Session) pump(conn channel.Conn) {
	for ev := range conn.Events() {
		s.apply(ev)
	}
}

func (s *Session) loadHistory(ctx context.Context, roomID int64, gen uint64) {
	msgs, err := s.api.History(ctx, roomID, 0, s.historyLimit, s.self.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return // the user already moved on
	}
	if err != nil {
		log.Warnw(ctx, "history load failed, starting empty", "room_id", roomID, "error", err)
		msgs = nil
	}
	s.store.ReplaceAll(roomID, msgs)
	s.states[roomID] = RoomReady
}

func (s *Session) apply(ev models.ChannelEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.RoomID != s.activeRoom {
		return // event from a torn-down binding
	}
	switch ev.Type {
	case models.EventMessageNew:
		s.store.UpsertFromChannel(*ev.Message)
	case models.EventMessageEdited:
		s.store.PatchText(ev.MessageID, ev.Content)
	case models.EventMessageDeleted:
		s.store.Remove(ev.MessageID)
	case models.EventTypingStart:
		s.typing.RemoteStart(ev.User)
	case models.EventTypingStop:
		s.typing.RemoteStop(ev.User)
	}
}

// Send applies an optimistic insert and confirms it against the server in
// the background. Text is what the server persists; an attachment-only send
// stays a local-only message.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" && len(s.staging.Staged()) == 0 {
		return models.ErrEmptyMessage
	}

	s.mu.Lock()
	roomID := s.activeRoom
	s.mu.Unlock()
	if roomID == 0 {
		return models.ErrNoActiveRoom
	}

	staged := s.staging.DrainForSend()
	attachments := make([]models.Attachment, 0, len(staged))
	for _, att := range staged {
		attachments = append(attachments, att.Encode())
		att.Release()
	}
	if len(attachments) == 0 {
		attachments = nil
	}

	s.mu.Lock()
	msg := models.Message{
		RoomID:      s.activeRoom,
		SenderID:    s.self.ID,
		SenderName:  s.self.Name,
		Content:     text,
		Attachments: attachments,
		Timestamp:   time.Now(),
	}
	token := s.store.ApplyOptimisticSend(msg)
	gen := s.gen
	roomID = s.activeRoom
	s.mu.Unlock()

	if text == "" {
		return nil
	}

	go func() {
		saved, err := s.api.Send(ctx, roomID, s.self, text)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return
		}
		if err != nil {
			log.Warnw(ctx, "send not confirmed, keeping local copy", "room_id", roomID, "error", err)
			return
		}
		s.store.ConfirmSend(token, *saved)
	}()
	return nil
}

// Edit patches the local copy immediately and fires the confirmation without
// waiting for it. A failed confirmation leaves the local patch in place.
func (s *Session) Edit(ctx context.Context, id int64, text string) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	patched := s.store.PatchText(id, text)
	s.mu.Unlock()
	if !patched || id <= 0 {
		return // absent, or still unconfirmed: nothing to tell the server
	}

	go func() {
		if _, err := s.api.Edit(ctx, id, text); err != nil {
			log.Warnw(ctx, "edit not confirmed", "message_id", id, "error", err)
		}
	}()
}

// Hide removes the message from this viewer's visible set and informs the
// server best-effort; a missing ack does not restore it.
func (s *Session) Hide(ctx context.Context, id int64) {
	s.mu.Lock()
	removed := s.store.Remove(id)
	s.mu.Unlock()
	if !removed || id <= 0 {
		return
	}

	go func() {
		if err := s.api.Hide(ctx, id, s.self.ID); err != nil {
			log.Warnw(ctx, "hide not acknowledged, message stays hidden locally", "message_id", id, "error", err)
		}
	}()
}

// DeleteForAll removes the message locally right away and issues the global
// delete. A later message:deleted push for the same id is absorbed by the
// store's idempotence. Repeat calls while one is in flight are coalesced.
func (s *Session) DeleteForAll(ctx context.Context, id int64) {
	s.mu.Lock()
	if _, busy := s.inflightDel[id]; busy {
		s.mu.Unlock()
		return
	}
	s.store.Remove(id)
	if id <= 0 {
		s.mu.Unlock()
		return
	}
	s.inflightDel[id] = struct{}{}
	s.mu.Unlock()

	go func() {
		if err := s.api.Delete(ctx, id); err != nil {
			log.Warnw(ctx, "delete not acknowledged, message stays removed locally", "message_id", id, "error", err)
		}
		s.mu.Lock()
		delete(s.inflightDel, id)
		s.mu.Unlock()
	}()
}

// ClearRoom empties the local visible set immediately and informs the server
// best-effort.
func (s *Session) ClearRoom(ctx context.Context) {
	s.mu.Lock()
	roomID := s.activeRoom
	s.store.Clear()
	s.mu.Unlock()
	if roomID == 0 {
		return
	}

	go func() {
		if err := s.api.ClearRoom(ctx, roomID, s.self.ID); err != nil {
			log.Warnw(ctx, "clear not acknowledged, room stays empty locally", "room_id", roomID, "error", err)
		}
	}()
}

// Search queries the active room's history server-side.
func (s *Session) Search(ctx context.Context, query string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	roomID := s.activeRoom
	s.mu.Unlock()
	if roomID == 0 {
		return nil, models.ErrNoActiveRoom
	}
	return s.api.Search(ctx, roomID, query, limit)
}

// Messages returns a copy of the active room's visible ordered list.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Messages()
}

func (s *Session) ActiveRoom() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRoom
}

func (s *Session) State(roomID int64) RoomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[roomID]
}

// Close tears down the channel binding and releases staged previews.
func (s *Session) Close() {
	s.mu.Lock()
	s.gen++
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.typing.Reset()
	s.mu.Unlock()
	s.staging.Close()
}
