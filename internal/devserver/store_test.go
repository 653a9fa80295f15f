package devserver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycampus-app/quickchat/internal/models"
)

func TestAppendAssignsIDs(t *testing.T) {
	s := NewStore()

	first, err := s.Append(1, "u1", "Riley", "a")
	require.NoError(t, err)
	second, err := s.Append(1, "u1", "Riley", "b")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, first.Timestamp.IsZero())

	_, err = s.Append(999, "u1", "Riley", "x")
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}

func TestHistoryOffsetAndLimit(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		_, err := s.Append(1, "u1", "Riley", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	page := s.History(1, 1, 2, "u1")
	require.Len(t, page, 2)
	assert.Equal(t, "m1", page[0].Content)
	assert.Equal(t, "m2", page[1].Content)

	assert.Empty(t, s.History(1, 10, 2, "u1"))
	assert.Len(t, s.History(1, 0, 0, "u1"), 5)
}

func TestHideFiltersOneViewer(t *testing.T) {
	s := NewStore()
	m, err := s.Append(1, "u2", "Sam", "noisy")
	require.NoError(t, err)

	s.Hide(m.ID, "u1")
	assert.Empty(t, s.History(1, 0, 10, "u1"))
	assert.Len(t, s.History(1, 0, 10, "u2"), 1)
}

func TestClearMarksOneViewer(t *testing.T) {
	s := NewStore()
	_, err := s.Append(1, "u2", "Sam", "old")
	require.NoError(t, err)

	s.Clear(1, "u1")
	assert.Empty(t, s.History(1, 0, 10, "u1"))
	assert.Len(t, s.History(1, 0, 10, "u2"), 1)
	// Other rooms keep their history.
	_, err = s.Append(2, "u2", "Sam", "elsewhere")
	require.NoError(t, err)
	assert.Len(t, s.History(2, 0, 10, "u1"), 1)
}

func TestEditAndDelete(t *testing.T) {
	s := NewStore()
	m, err := s.Append(1, "u1", "Riley", "helo")
	require.NoError(t, err)

	edited, ok := s.Edit(m.ID, "hello")
	require.True(t, ok)
	assert.Equal(t, "hello", edited.Content)
	assert.Equal(t, "hello", s.History(1, 0, 10, "u1")[0].Content)

	roomID, ok := s.Delete(m.ID)
	require.True(t, ok)
	assert.Equal(t, int64(1), roomID)
	assert.Empty(t, s.History(1, 0, 10, "u1"))

	_, ok = s.Edit(m.ID, "gone")
	assert.False(t, ok)
	_, ok = s.Delete(m.ID)
	assert.False(t, ok)
}

func TestSearchNewestFirstWithLimit(t *testing.T) {
	s := NewStore()
	for _, text := range []string{"exam friday", "lunch", "exam monday", "exam tuesday"} {
		_, err := s.Append(1, "u1", "Riley", text)
		require.NoError(t, err)
	}

	got := s.Search(1, "EXAM", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "exam tuesday", got[0].Content)
	assert.Equal(t, "exam monday", got[1].Content)
}
