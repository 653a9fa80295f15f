package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycampus-app/quickchat/internal/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewEcho(NewController(NewStore(), NewHub())))
	t.Cleanup(ts.Close)
	return ts
}

func dialRoom(t *testing.T, ts *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSendValidationRejected(t *testing.T) {
	ts := newTestServer(t)

	body := bytes.NewBufferString(`{"sender_id":"u1","sender_name":"Riley"}`)
	resp, err := http.Post(ts.URL+"/api/messages/1", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoomSocketRejectsUnknownRoom(t *testing.T) {
	ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/999"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
}

func TestSendBroadcastsToRoomSockets(t *testing.T) {
	ts := newTestServer(t)
	watcher := dialRoom(t, ts, "1")
	other := dialRoom(t, ts, "2")

	body := bytes.NewBufferString(`{"sender_id":"u1","sender_name":"Riley","content":"hello"}`)
	resp, err := http.Post(ts.URL+"/api/messages/1", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frame := readFrame(t, watcher)
	assert.Equal(t, string(models.EventMessageNew), frame["type"])
	data, ok := frame["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", data["content"])

	// The socket joined to another room stays quiet.
	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	var stray map[string]any
	assert.Error(t, other.ReadJSON(&stray))
}

func TestEditAndDeleteBroadcast(t *testing.T) {
	ts := newTestServer(t)
	watcher := dialRoom(t, ts, "1")

	body := bytes.NewBufferString(`{"sender_id":"u1","sender_name":"Riley","content":"helo"}`)
	resp, err := http.Post(ts.URL+"/api/messages/1", "application/json", body)
	require.NoError(t, err)
	var saved models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	resp.Body.Close()
	readFrame(t, watcher) // message:new

	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/api/messages/1", bytes.NewBufferString(`{"content":"hello"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frame := readFrame(t, watcher)
	assert.Equal(t, string(models.EventMessageEdited), frame["type"])

	req, err = http.NewRequest(http.MethodDelete, ts.URL+"/api/messages/1", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frame = readFrame(t, watcher)
	assert.Equal(t, string(models.EventMessageDeleted), frame["type"])
	assert.Equal(t, float64(1), frame["id"])
}

func TestTypingRelayedToPeers(t *testing.T) {
	ts := newTestServer(t)
	typist := dialRoom(t, ts, "1")
	peer := dialRoom(t, ts, "1")

	err := typist.WriteJSON(models.TypingFrame{
		Type: models.EventTypingStart,
		User: models.Participant{ID: "u1", Name: "Riley"},
	})
	require.NoError(t, err)

	// The relay reaches everyone in the room, sender included.
	for _, conn := range []*websocket.Conn{peer, typist} {
		frame := readFrame(t, conn)
		assert.Equal(t, string(models.EventTypingStart), frame["type"])
		user, ok := frame["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "u1", user["id"])
		assert.NotEmpty(t, frame["ts"])
	}
}

func TestNonTypingInboundFramesIgnored(t *testing.T) {
	ts := newTestServer(t)
	typist := dialRoom(t, ts, "1")
	peer := dialRoom(t, ts, "1")

	require.NoError(t, typist.WriteMessage(websocket.TextMessage, []byte(`garbage`)))
	require.NoError(t, typist.WriteJSON(map[string]any{"type": "message:new", "data": map[string]any{"id": 1}}))
	require.NoError(t, typist.WriteJSON(models.TypingFrame{
		Type: models.EventTypingStop,
		User: models.Participant{ID: "u1"},
	}))

	frame := readFrame(t, peer)
	assert.Equal(t, string(models.EventTypingStop), frame["type"])
}
