package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycampus-app/quickchat/internal/models"
)

func msg(id int64, content string) models.Message {
	return models.Message{
		ID:         id,
		RoomID:     1,
		SenderID:   "u2",
		SenderName: "Sam",
		Content:    content,
		Timestamp:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func ids(msgs []models.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestReplaceAllDropsDuplicateIDs(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceAll(1, []models.Message{msg(1, "a"), msg(2, "b"), msg(1, "a again")})

	require.Equal(t, 2, s.Len())
	assert.Equal(t, []int64{1, 2}, ids(s.Messages()))
	assert.Equal(t, "a", s.Messages()[0].Content)
}

func TestUpsertFromChannelIgnoresKnownID(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceAll(1, []models.Message{msg(1, "a")})

	assert.True(t, s.UpsertFromChannel(msg(2, "b")))
	assert.False(t, s.UpsertFromChannel(msg(2, "b repeat")))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "b", s.Messages()[1].Content)
}

func TestOptimisticSendConfirmInPlace(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceAll(1, []models.Message{msg(1, "a")})

	local := models.Message{RoomID: 1, SenderID: "u1", Content: "yo"}
	token := s.ApplyOptimisticSend(local)

	// Visible immediately under a provisional id.
	require.Equal(t, 2, s.Len())
	provisional := s.Messages()[1]
	assert.Negative(t, provisional.ID)
	assert.False(t, provisional.Confirmed())

	s.ConfirmSend(token, msg(42, "yo"))

	require.Equal(t, 2, s.Len())
	got := s.Messages()[1]
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "yo", got.Content)
	assert.True(t, got.Confirmed())
}

func TestConfirmAfterChannelPushKeepsOneMessage(t *testing.T) {
	s := NewMessageStore()
	s.Reset(1)
	token := s.ApplyOptimisticSend(models.Message{RoomID: 1, SenderID: "u1", Content: "yo"})

	// The room socket echoes the send before the REST response arrives.
	s.UpsertFromChannel(msg(42, "yo"))
	require.Equal(t, 2, s.Len())

	s.ConfirmSend(token, msg(42, "yo"))

	require.Equal(t, 1, s.Len())
	assert.Equal(t, int64(42), s.Messages()[0].ID)
}

func TestConfirmAfterLocalDeleteDoesNotResurrect(t *testing.T) {
	s := NewMessageStore()
	s.Reset(1)
	token := s.ApplyOptimisticSend(models.Message{RoomID: 1, SenderID: "u1", Content: "oops"})
	tmpID := s.Messages()[0].ID

	require.True(t, s.Remove(tmpID))
	s.ConfirmSend(token, msg(42, "oops"))

	assert.Equal(t, 0, s.Len())
}

func TestConfirmAfterClearDoesNotReAdd(t *testing.T) {
	s := NewMessageStore()
	s.Reset(1)
	token := s.ApplyOptimisticSend(models.Message{RoomID: 1, SenderID: "u1", Content: "yo"})

	s.Clear()
	s.ConfirmSend(token, msg(42, "yo"))

	assert.Equal(t, 0, s.Len())
}

func TestConfirmUnknownTokenIsNoop(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceAll(1, []models.Message{msg(1, "a")})

	s.ConfirmSend("no-such-token", msg(42, "yo"))
	assert.Equal(t, []int64{1}, ids(s.Messages()))
}

func TestConfirmKeepsLocalAttachments(t *testing.T) {
	s := NewMessageStore()
	s.Reset(1)
	att := models.Attachment{Name: "notes.pdf", DataURL: "data:application/pdf;base64,QQ==", Type: models.AttachmentDocument}
	token := s.ApplyOptimisticSend(models.Message{RoomID: 1, SenderID: "u1", Content: "see attached", Attachments: []models.Attachment{att}})

	// The server persists text only; its echo carries no attachments.
	s.ConfirmSend(token, msg(42, "see attached"))

	got := s.Messages()[0]
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "notes.pdf", got.Attachments[0].Name)
	assert.Equal(t, int64(1), got.RoomID)
}

func TestPatchText(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceAll(1, []models.Message{msg(1, "a"), msg(2, "b")})

	assert.True(t, s.PatchText(2, "b2"))
	assert.Equal(t, "b2", s.Messages()[1].Content)
	assert.False(t, s.PatchText(99, "nope"))
}

func TestRemoveKeepsOrderAndIndex(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceAll(1, []models.Message{msg(1, "a"), msg(2, "b"), msg(3, "c")})

	require.True(t, s.Remove(2))
	assert.Equal(t, []int64{1, 3}, ids(s.Messages()))

	// The reindexed tail must still be addressable.
	assert.True(t, s.PatchText(3, "c2"))
	assert.Equal(t, "c2", s.Messages()[1].Content)
	assert.False(t, s.Remove(2))
}

func TestResetDropsPendingConfirms(t *testing.T) {
	s := NewMessageStore()
	s.Reset(1)
	token := s.ApplyOptimisticSend(models.Message{RoomID: 1, SenderID: "u1", Content: "old room"})

	s.Reset(2)
	s.ConfirmSend(token, msg(42, "old room"))

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(2), s.RoomID())
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewMessageStore()
	s.ReplaceAll(1, []models.Message{msg(1, "a")})

	got := s.Messages()
	got[0].Content = "mutated"
	assert.Equal(t, "a", s.Messages()[0].Content)
}
